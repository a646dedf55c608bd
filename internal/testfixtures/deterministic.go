package testfixtures

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Clock is a manually advanced time source. It is safe for concurrent use.
type Clock struct {
	unixNano atomic.Int64
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	c := &Clock{}
	c.unixNano.Store(start.UnixNano())
	return c
}

// Now reports the clock's instant in UTC.
func (c *Clock) Now() time.Time {
	return time.Unix(0, c.unixNano.Load()).UTC()
}

// NowFunc returns Now as a service dependency; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	return time.Unix(0, c.unixNano.Add(int64(d))).UTC()
}

// IDGenerator hands out "<prefix>-1", "<prefix>-2", ...
type IDGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewIDGenerator uses prefix, or "id" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.n.Add(1), 10)
}

// NextFunc returns Next as a service dependency. A nil generator yields a nil
// func so the services fall back to UUIDs.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return nil
	}
	return g.Next
}

// Reset restarts the sequence.
func (g *IDGenerator) Reset() { g.n.Store(0) }
