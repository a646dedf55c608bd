// Package holiday provides the non-working-day calendar consulted when a
// recurrence rule skips holidays.
package holiday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/class-scheduler/internal/recurrence"
)

// DefaultCacheSize is the number of calendar years kept in memory.
const DefaultCacheSize = 16

// ErrInvalidRange is returned when the requested range ends before it starts.
var ErrInvalidRange = errors.New("holiday: range end is before start")

// Holiday is a named non-working day.
type Holiday struct {
	Date recurrence.Date
	Name string
}

// Calendar answers which dates in a range are holidays.
type Calendar interface {
	Holidays(ctx context.Context, from, to recurrence.Date) (recurrence.HolidaySet, error)
}

// Source loads the holidays of a single calendar year.
type Source interface {
	HolidaysInYear(ctx context.Context, year int) ([]Holiday, error)
}

// CachedCalendar fronts a Source with an LRU cache keyed by year. Writers
// must call Invalidate after changing the underlying source.
type CachedCalendar struct {
	source Source
	cache  *lru.Cache[int, []Holiday]
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCachedCalendar builds a calendar holding at most size years. A
// non-positive size uses DefaultCacheSize.
func NewCachedCalendar(source Source, size int, logger *slog.Logger) (*CachedCalendar, error) {
	if source == nil {
		return nil, errors.New("holiday: source is required")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[int, []Holiday](size)
	if err != nil {
		return nil, fmt.Errorf("holiday: create cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCalendar{
		source: source,
		cache:  cache,
		logger: logger.With("component", "holiday_calendar"),
	}, nil
}

// Holidays returns the holidays between from and to inclusive.
func (c *CachedCalendar) Holidays(ctx context.Context, from, to recurrence.Date) (recurrence.HolidaySet, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	set := recurrence.NewHolidaySet()
	for year := from.Year; year <= to.Year; year++ {
		days, err := c.InYear(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, h := range days {
			if h.Date.Before(from) || h.Date.After(to) {
				continue
			}
			set[h.Date] = struct{}{}
		}
	}
	return set, nil
}

// InYear returns the holidays of year ordered by date.
func (c *CachedCalendar) InYear(ctx context.Context, year int) ([]Holiday, error) {
	if cached, ok := c.cache.Get(year); ok {
		return cloneHolidays(cached), nil
	}

	// Serialize loads so concurrent misses for one year hit the source once.
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache.Get(year); ok {
		return cloneHolidays(cached), nil
	}

	days, err := c.source.HolidaysInYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("holiday: load %d: %w", year, err)
	}
	days = cloneHolidays(days)
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	c.cache.Add(year, days)
	c.logger.DebugContext(ctx, "holiday year loaded", "year", year, "count", len(days))
	return cloneHolidays(days), nil
}

// Invalidate drops the cached entry for year.
func (c *CachedCalendar) Invalidate(year int) {
	c.cache.Remove(year)
}

// Purge drops every cached year.
func (c *CachedCalendar) Purge() {
	c.cache.Purge()
}

func cloneHolidays(values []Holiday) []Holiday {
	if len(values) == 0 {
		return []Holiday{}
	}
	out := make([]Holiday, len(values))
	copy(out, values)
	return out
}
