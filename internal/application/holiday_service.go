package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/recurrence"
)

// HolidayRepository captures the holiday persistence operations needed by the service.
type HolidayRepository interface {
	ListHolidays(ctx context.Context, from, to recurrence.Date) ([]holiday.Holiday, error)
	UpsertHoliday(ctx context.Context, h holiday.Holiday) error
	DeleteHoliday(ctx context.Context, date recurrence.Date) error
}

// HolidayCalendar is the cached view of the holiday repository.
type HolidayCalendar interface {
	InYear(ctx context.Context, year int) ([]holiday.Holiday, error)
	Invalidate(year int)
}

// HolidayService maintains the holiday calendar and keeps its cache coherent.
type HolidayService struct {
	holidays HolidayRepository
	calendar HolidayCalendar
	logger   *slog.Logger
}

// NewHolidayService constructs a holiday service. calendar may be nil, in
// which case reads go straight to the repository.
func NewHolidayService(holidays HolidayRepository, calendar HolidayCalendar, logger *slog.Logger) *HolidayService {
	return &HolidayService{holidays: holidays, calendar: calendar, logger: logging.OrDefault(logger)}
}

func (s *HolidayService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, append([]any{"service", "HolidayService", "operation", operation}, attrs...)...)
}

// ListHolidays returns the holidays of year ordered by date.
func (s *HolidayService) ListHolidays(ctx context.Context, year int) ([]holiday.Holiday, error) {
	if s == nil || s.holidays == nil {
		return nil, fmt.Errorf("holiday repository not configured")
	}
	if year < 1 || year > 9999 {
		vErr := &ValidationError{}
		vErr.add("year", "year must be between 1 and 9999")
		return nil, vErr
	}

	if s.calendar != nil {
		return s.calendar.InYear(ctx, year)
	}
	days, err := s.holidays.ListHolidays(ctx, recurrence.NewDate(year, time.January, 1), recurrence.NewDate(year, time.December, 31))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return days, nil
}

// SetHoliday creates or renames the holiday on h.Date.
func (s *HolidayService) SetHoliday(ctx context.Context, h holiday.Holiday) (stored holiday.Holiday, err error) {
	if s == nil || s.holidays == nil {
		err = fmt.Errorf("holiday repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetHoliday", "date", h.Date.String())
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to set holiday", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "holiday stored")
	}()

	vErr := &ValidationError{}
	if h.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	name := strings.TrimSpace(h.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	stored = holiday.Holiday{Date: h.Date, Name: name}
	if err = s.holidays.UpsertHoliday(ctx, stored); err != nil {
		stored = holiday.Holiday{}
		return
	}
	s.invalidate(h.Date.Year)
	return
}

// DeleteHoliday removes the holiday on date.
func (s *HolidayService) DeleteHoliday(ctx context.Context, date recurrence.Date) (err error) {
	if s == nil || s.holidays == nil {
		return fmt.Errorf("holiday repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteHoliday", "date", date.String())
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to delete holiday", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "holiday deleted")
	}()

	if date.IsZero() {
		return ErrNotFound
	}
	if err = s.holidays.DeleteHoliday(ctx, date); err != nil {
		return mapRepoError(err)
	}
	s.invalidate(date.Year)
	return nil
}

func (s *HolidayService) invalidate(year int) {
	if s.calendar != nil {
		s.calendar.Invalidate(year)
	}
}
