package recurrence

import (
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

// DefaultCeiling is the number of day-steps an expansion may walk before it
// is reported as unbounded.
const DefaultCeiling = 365

// Mode selects how dates are picked while walking forward from the start date.
type Mode string

const (
	// ModeNone produces a single session on the start date.
	ModeNone Mode = "none"
	// ModeDaily includes every date that survives the skip filters.
	ModeDaily Mode = "daily"
	// ModeWeekly includes dates whose ISO weekday (Monday=1) is selected.
	ModeWeekly Mode = "weekly"
	// ModeMonthly includes dates whose day-of-month is selected.
	ModeMonthly Mode = "monthly"
)

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeDaily, ModeWeekly, ModeMonthly:
		return true
	}
	return false
}

// Rule describes how a class repeats.
type Rule struct {
	StartDate Date
	EndDate   *Date
	Mode      Mode
	// Selectors holds weekday numbers (1-7) for weekly rules or days of the
	// month (1-31) for monthly rules. Duplicates are ignored.
	Selectors []int
	// TotalSessions caps the number of generated dates; zero means unset.
	TotalSessions int
	SkipWeekends  bool
	SkipHolidays  bool
}

// Occurrence is one slot on one generated date.
type Occurrence struct {
	// Sequence is the 1-based index of the generated date. Slots expanded on
	// the same date share a sequence number.
	Sequence int
	Date     Date
	Slot     TimeSlot
	Start    time.Time
	End      time.Time
}

// Engine expands recurrence rules into occurrences.
type Engine struct {
	location *time.Location
	ceiling  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCeiling overrides the iteration ceiling. Non-positive values keep the default.
func WithCeiling(steps int) Option {
	return func(e *Engine) {
		if steps > 0 {
			e.ceiling = steps
		}
	}
}

// NewEngine constructs an Engine whose occurrence instants are expressed in
// loc. If loc is nil, Asia/Tokyo (JST) is used.
func NewEngine(loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = jst
	}
	e := &Engine{location: loc, ceiling: DefaultCeiling}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Location returns the zone used for occurrence instants.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return jst
	}
	return e.location
}

// Ceiling returns the configured iteration ceiling.
func (e *Engine) Ceiling() int {
	if e == nil || e.ceiling <= 0 {
		return DefaultCeiling
	}
	return e.ceiling
}

// Expand walks the rule forward one day at a time and returns one occurrence
// per slot for each included date, ordered by date and then by the order in
// which slots were supplied.
//
// Skipped weekend and holiday dates do not count towards TotalSessions. The
// walk stops when TotalSessions dates were generated, when EndDate is passed,
// or when the iteration ceiling is hit. Hitting the ceiling before the bound
// is satisfied, or generating no dates at all, yields a *BoundednessError.
func (e *Engine) Expand(rule Rule, slots []TimeSlot, holidays HolidaySet) ([]Occurrence, error) {
	if vErr := validate(rule, slots); vErr.HasErrors() {
		return nil, vErr
	}

	loc := e.Location()
	ceiling := e.Ceiling()
	selectors := selectorSet(rule.Selectors)

	target := rule.TotalSessions
	if rule.Mode == ModeNone {
		target = 1
	}

	occurrences := make([]Occurrence, 0, estimateCapacity(target, len(slots)))
	generated := 0
	steps := 0
	current := rule.StartDate

	for ; steps < ceiling; steps++ {
		if target > 0 && generated >= target {
			return occurrences, nil
		}
		if rule.EndDate != nil && current.After(*rule.EndDate) {
			break
		}
		if rule.Mode == ModeNone && current != rule.StartDate {
			break
		}

		if include(rule, selectors, holidays, current) {
			generated++
			for _, slot := range slots {
				occurrences = append(occurrences, Occurrence{
					Sequence: generated,
					Date:     current,
					Slot:     slot,
					Start:    slot.Start.On(current, loc),
					End:      slot.End.On(current, loc),
				})
			}
		}

		current = current.AddDays(1)
	}

	if target > 0 && generated >= target {
		return occurrences, nil
	}

	reachedEnd := rule.Mode == ModeNone || (rule.EndDate != nil && current.After(*rule.EndDate))
	if generated == 0 || !reachedEnd {
		return nil, &BoundednessError{Ceiling: ceiling, Steps: steps, Generated: generated, Target: target}
	}

	return occurrences, nil
}

func include(rule Rule, selectors map[int]struct{}, holidays HolidaySet, day Date) bool {
	if rule.SkipWeekends && day.IsWeekend() {
		return false
	}
	if rule.SkipHolidays && holidays.Contains(day) {
		return false
	}

	switch rule.Mode {
	case ModeNone:
		return day == rule.StartDate
	case ModeDaily:
		return true
	case ModeWeekly:
		_, ok := selectors[day.ISOWeekday()]
		return ok
	case ModeMonthly:
		_, ok := selectors[day.Day]
		return ok
	default:
		return false
	}
}

func validate(rule Rule, slots []TimeSlot) *ValidationError {
	vErr := &ValidationError{}

	if len(slots) == 0 {
		vErr.add("slots", "at least one time slot is required")
	}
	for _, slot := range slots {
		if !slot.Valid() {
			vErr.add("slots", "start time must be before end time")
			break
		}
	}

	if rule.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if rule.EndDate != nil && !rule.StartDate.IsZero() && rule.StartDate.After(*rule.EndDate) {
		vErr.add("end_date", "end date must not be before start date")
	}
	if rule.TotalSessions < 0 {
		vErr.add("total_sessions", "total sessions must not be negative")
	}

	if !rule.Mode.Valid() {
		vErr.add("repeat_mode", "repeat mode is not supported")
		return vErr
	}

	if rule.Mode != ModeNone && rule.EndDate == nil && rule.TotalSessions <= 0 {
		vErr.add("end_date", "end date or total sessions is required")
	}

	switch rule.Mode {
	case ModeWeekly:
		checkSelectors(vErr, rule.Selectors, 1, 7)
	case ModeMonthly:
		checkSelectors(vErr, rule.Selectors, 1, 31)
	}

	return vErr
}

func checkSelectors(vErr *ValidationError, selectors []int, lo, hi int) {
	if len(selectors) == 0 {
		vErr.add("repeat_selectors", "at least one selector is required")
		return
	}
	for _, value := range selectors {
		if value < lo || value > hi {
			vErr.add("repeat_selectors", "selector is out of range")
			return
		}
	}
}

func selectorSet(values []int) map[int]struct{} {
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func estimateCapacity(target, slots int) int {
	if target <= 0 || target > DefaultCeiling {
		return slots
	}
	return target * slots
}
