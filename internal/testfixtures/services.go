package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/holiday"
	"github.com/example/class-scheduler/internal/recurrence"
)

// Deterministic builds application services whose generated ids and
// timestamps are predictable.
type Deterministic struct {
	Clock *Clock
	IDs   *IDGenerator
	// Engine expands recurrence rules; nil means a UTC engine with the
	// default ceiling.
	Engine *recurrence.Engine
	Logger *slog.Logger
}

// NewDeterministic starts at ReferenceTime with ids "<prefix>-n".
func NewDeterministic(prefix string) *Deterministic {
	return &Deterministic{Clock: NewClock(time.Time{}), IDs: NewIDGenerator(prefix)}
}

// SessionService wires sessions and calendar into a session service.
func (d *Deterministic) SessionService(sessions application.SessionRepository, calendar holiday.Calendar) *application.SessionService {
	engine := d.Engine
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	return application.NewSessionServiceWithLogger(sessions, calendar, engine, d.IDs.NextFunc(), d.Clock.NowFunc(), d.Logger)
}

// HolidayService wires holidays into a holiday service. calendar may be nil
// when the test does not exercise caching.
func (d *Deterministic) HolidayService(holidays application.HolidayRepository, calendar application.HolidayCalendar) *application.HolidayService {
	return application.NewHolidayService(holidays, calendar, d.Logger)
}
