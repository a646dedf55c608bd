package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/class-scheduler/internal/persistence"
)

func TestHolidayRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestStorage(t).Holidays

	for _, h := range []persistence.Holiday{
		{Date: "2026-05-05", Name: "Children's Day"},
		{Date: "2026-01-01", Name: "New Year"},
		{Date: "2027-01-01", Name: "New Year"},
	} {
		if err := repo.UpsertHoliday(ctx, h); err != nil {
			t.Fatalf("UpsertHoliday: %v", err)
		}
	}

	if err := repo.UpsertHoliday(ctx, persistence.Holiday{Date: "2026-05-05", Name: "こどもの日"}); err != nil {
		t.Fatalf("UpsertHoliday rename: %v", err)
	}

	got, err := repo.ListHolidays(ctx, "2026-01-01", "2026-12-31")
	if err != nil {
		t.Fatalf("ListHolidays: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2026-01-01" || got[1].Name != "こどもの日" {
		t.Fatalf("unexpected holidays: %+v", got)
	}

	all, err := repo.ListHolidays(ctx, "", "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected open range to list all holidays, got %d (%v)", len(all), err)
	}

	if err := repo.DeleteHoliday(ctx, "2026-01-01"); err != nil {
		t.Fatalf("DeleteHoliday: %v", err)
	}
	if err := repo.DeleteHoliday(ctx, "2026-01-01"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpsertHoliday(ctx, persistence.Holiday{}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for empty date, got %v", err)
	}
}
