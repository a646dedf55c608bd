package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}

	nowFn := clock.NowFunc()
	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(ReferenceTime().Add(90*time.Minute)) || !nowFn().Equal(updated) {
		t.Fatalf("expected NowFunc to follow Advance, got %v / %v", updated, nowFn())
	}

	var missing *Clock
	if missing.NowFunc() == nil {
		t.Fatalf("nil clock must fall back to time.Now")
	}
	if clock.Now().Location() != time.UTC {
		t.Fatalf("expected UTC instants")
	}
}

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("batch")

	first, second := gen.Next(), gen.Next()
	if first != "batch-1" || second != "batch-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset()
	if next := gen.NextFunc()(); next != "batch-1" {
		t.Fatalf("expected batch-1 after reset, got %q", next)
	}

	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}

	var none *IDGenerator
	if none.NextFunc() != nil {
		t.Fatalf("nil generator must yield a nil func")
	}
}
