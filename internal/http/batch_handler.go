package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

type batchService interface {
	PlanBatch(ctx context.Context, input application.BatchInput) (scheduler.BatchResult, error)
	CommitBatch(ctx context.Context, params application.CommitBatchParams) (application.BatchCommit, error)
}

// BatchHandler serves batch planning and commit endpoints.
type BatchHandler struct {
	service batchService
	responder
}

// NewBatchHandler constructs a batch handler.
func NewBatchHandler(service batchService, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{service: service, responder: newResponder(logging.OrDefault(logger).With("handler", "batch"))}
}

type ruleDTO struct {
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Mode          string `json:"mode" validate:"required,oneof=none daily weekly monthly"`
	Selectors     []int  `json:"selectors"`
	TotalSessions int    `json:"total_sessions" validate:"gte=0"`
	SkipWeekends  bool   `json:"skip_weekends"`
	SkipHolidays  bool   `json:"skip_holidays"`
}

func (r ruleDTO) toRule() recurrence.Rule {
	rule := recurrence.Rule{
		StartDate:     parseDate(r.StartDate),
		Mode:          recurrence.Mode(r.Mode),
		Selectors:     r.Selectors,
		TotalSessions: r.TotalSessions,
		SkipWeekends:  r.SkipWeekends,
		SkipHolidays:  r.SkipHolidays,
	}
	if r.EndDate != "" {
		end := parseDate(r.EndDate)
		rule.EndDate = &end
	}
	return rule
}

type batchRequest struct {
	Rule        ruleDTO   `json:"rule"`
	Slots       []slotDTO `json:"slots" validate:"required,min=1,dive"`
	TeacherID   string    `json:"teacher_id" validate:"required"`
	ClassroomID *string   `json:"classroom_id"`
	ClassID     string    `json:"class_id" validate:"required"`
	CourseID    string    `json:"course_id" validate:"required"`
	// Digest and Reason are only read by the commit endpoint.
	Digest string `json:"digest"`
	Reason string `json:"reason"`
}

func (b batchRequest) toInput() application.BatchInput {
	slots := make([]recurrence.TimeSlot, 0, len(b.Slots))
	for _, s := range b.Slots {
		slots = append(slots, s.toSlot())
	}
	return application.BatchInput{
		Rule:        b.Rule.toRule(),
		Slots:       slots,
		TeacherID:   b.TeacherID,
		ClassroomID: b.ClassroomID,
		ClassID:     b.ClassID,
		CourseID:    b.CourseID,
	}
}

type batchCommitResponse struct {
	BatchID  string       `json:"batch_id"`
	Digest   string       `json:"digest"`
	Sessions []sessionDTO `json:"sessions"`
}

// Plan handles POST /batches/plan. The manifest is returned without storing anything.
func (h *BatchHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	result, err := h.service.PlanBatch(r.Context(), req.toInput())
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, toManifestDTO(result))
}

// Commit handles POST /batches/commit. The body repeats the planned batch together
// with the digest of the manifest the caller reviewed.
func (h *BatchHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	commit, err := h.service.CommitBatch(r.Context(), application.CommitBatchParams{
		Input:  req.toInput(),
		Digest: req.Digest,
		Reason: req.Reason,
	})
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusCreated, batchCommitResponse{
		BatchID:  commit.BatchID,
		Digest:   commit.Digest,
		Sessions: toSessionDTOs(commit.Sessions),
	})
}

// DecodeBatchInput reads a batch body in the POST /batches/plan format from r.
// Field failures are reported in one error, sorted by field.
func DecodeBatchInput(r io.Reader) (application.BatchInput, error) {
	decoder := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	decoder.DisallowUnknownFields()
	var req batchRequest
	if err := decoder.Decode(&req); err != nil {
		return application.BatchInput{}, fmt.Errorf("decode batch: %w", err)
	}
	if err := validateStruct(&req); err != nil {
		var rErr *requestError
		if errors.As(err, &rErr) && len(rErr.Fields) > 0 {
			keys := make([]string, 0, len(rErr.Fields))
			for key := range rErr.Fields {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, key := range keys {
				parts = append(parts, key+" "+rErr.Fields[key])
			}
			return application.BatchInput{}, fmt.Errorf("invalid batch: %s", strings.Join(parts, "; "))
		}
		return application.BatchInput{}, err
	}
	return req.toInput(), nil
}

// EncodeManifest writes result as indented manifest JSON.
func EncodeManifest(w io.Writer, result scheduler.BatchResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toManifestDTO(result))
}
