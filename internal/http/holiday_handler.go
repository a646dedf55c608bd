package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/recurrence"
)

type holidayService interface {
	ListHolidays(ctx context.Context, year int) ([]holiday.Holiday, error)
	SetHoliday(ctx context.Context, h holiday.Holiday) (holiday.Holiday, error)
	DeleteHoliday(ctx context.Context, date recurrence.Date) error
}

// HolidayHandler maintains the holiday calendar.
type HolidayHandler struct {
	service holidayService
	responder
}

// NewHolidayHandler constructs a holiday handler.
func NewHolidayHandler(service holidayService, logger *slog.Logger) *HolidayHandler {
	return &HolidayHandler{service: service, responder: newResponder(logging.OrDefault(logger).With("handler", "holiday"))}
}

type holidayRequest struct {
	Name string `json:"name" validate:"required"`
}

type holidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// List handles GET /holidays?year=YYYY.
func (h *HolidayHandler) List(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year")))
	if err != nil {
		h.writeValidation(r.Context(), w, map[string]string{"year": "is required"})
		return
	}

	days, err := h.service.ListHolidays(r.Context(), year)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]holidayDTO, 0, len(days))
	for _, d := range days {
		out = append(out, holidayDTO{Date: d.Date.String(), Name: d.Name})
	}
	h.writeJSON(r.Context(), w, http.StatusOK, out)
}

// Put handles PUT /holidays/{date}.
func (h *HolidayHandler) Put(w http.ResponseWriter, r *http.Request) {
	date, ok := h.holidayDate(w, r)
	if !ok {
		return
	}
	var req holidayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	stored, err := h.service.SetHoliday(r.Context(), holiday.Holiday{Date: date, Name: req.Name})
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, holidayDTO{Date: stored.Date.String(), Name: stored.Name})
}

// Delete handles DELETE /holidays/{date}.
func (h *HolidayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	date, ok := h.holidayDate(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteHoliday(r.Context(), date); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *HolidayHandler) holidayDate(w http.ResponseWriter, r *http.Request) (recurrence.Date, bool) {
	date, err := recurrence.ParseDate(strings.TrimSpace(r.PathValue("date")))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, errInvalidHolidayDate)
		return recurrence.Date{}, false
	}
	return date, true
}
