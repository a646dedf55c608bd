package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/recurrence"
	"github.com/example/class-scheduler/internal/scheduler"
)

var (
	errBadRequestBody     = errors.New("無効なリクエスト形式です。")
	errInvalidSessionID   = errors.New("無効なセッション ID です。")
	errInvalidHolidayDate = errors.New("無効な日付です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) writeValidation(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		ErrorCode: "VALIDATION_FAILED",
		Message:   "入力内容に誤りがあります。",
		Errors:    localizeFieldErrors(fields),
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		conflictErr *application.ConflictError
		rejectedErr *application.BatchRejectedError
		appErr      *application.ValidationError
		schedErr    *scheduler.ValidationError
		ruleErr     *recurrence.ValidationError
	)

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.As(err, &conflictErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SCHEDULE_CONFLICT",
			Message:   "講師・教室・クラスのいずれかが同じ時間帯に予約済みです。",
			Conflicts: toConflictDTOs(conflictErr.Conflicts),
		})
	case errors.As(err, &rejectedErr):
		manifest := toManifestDTO(rejectedErr.Result)
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BATCH_REJECTED",
			Message:   "競合する授業が含まれているため一括登録できません。",
			Manifest:  &manifest,
		})
	case errors.Is(err, application.ErrStalePlan):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "STALE_PLAN",
			Message:   "確認後に時間割が変更されました。再度プレビューしてください。",
		})
	case errors.Is(err, scheduler.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "完了済みまたは休講済みの授業は変更できません。",
		})
	case errors.Is(err, recurrence.ErrUnbounded):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "UNBOUNDED_RULE",
			Message:   "繰り返し条件から授業日を生成できません。終了日または回数を見直してください。",
		})
	case errors.Is(err, holiday.ErrInvalidRange):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: "入力内容に誤りがあります。"})
	case errors.As(err, &appErr):
		r.writeValidation(ctx, w, appErr.FieldErrors)
	case errors.As(err, &schedErr):
		r.writeValidation(ctx, w, schedErr.FieldErrors)
	case errors.As(err, &ruleErr):
		r.writeValidation(ctx, w, ruleErr.FieldErrors)
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Scoped(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "サービスを利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeFieldErrors(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}

	translated := make(map[string]string, len(fields))
	for field, msg := range fields {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "at least one time slot is required":
		return "時間帯を 1 件以上指定してください。"
	case "start time must be before end time":
		return "終了時刻は開始時刻より後である必要があります。"
	case "start date is required":
		return "開始日は必須です。"
	case "end date must not be before start date":
		return "終了日は開始日以降を指定してください。"
	case "total sessions must not be negative":
		return "回数は 0 以上で指定してください。"
	case "repeat mode is not supported":
		return "繰り返し種別が不正です。"
	case "end date or total sessions is required":
		return "終了日または回数のいずれかを指定してください。"
	case "at least one selector is required":
		return "繰り返しの曜日または日付を指定してください。"
	case "selector is out of range":
		return "繰り返しの曜日または日付が範囲外です。"
	case "teacher id is required", "teacher id must not be blank":
		return "講師 ID は必須です。"
	case "class id is required":
		return "クラス ID は必須です。"
	case "course id is required":
		return "科目 ID は必須です。"
	case "date is required":
		return "日付は必須です。"
	case "reason is required":
		return "理由は必須です。"
	case "substitute teacher id is required":
		return "代講講師 ID は必須です。"
	case "digest of the reviewed plan is required":
		return "プレビュー結果のダイジェストを指定してください。"
	case "name is required":
		return "名称は必須です。"
	case "to must not be before from":
		return "終了日は開始日以降を指定してください。"
	case "year must be between 1 and 9999":
		return "年は 1 から 9999 の範囲で指定してください。"
	case "is required":
		return "必須項目です。"
	case "has an invalid format":
		return "形式が不正です。"
	case "is not an allowed value":
		return "指定できない値です。"
	case "is out of range":
		return "範囲外の値です。"
	case "is invalid":
		return "値が不正です。"
	default:
		if strings.HasPrefix(message, "unknown status") {
			return "不明なステータスです: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown status"))
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
	Manifest  *manifestDTO      `json:"manifest,omitempty"`
}
