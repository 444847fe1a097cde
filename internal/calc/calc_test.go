package calc

import (
	"testing"

	"envelope/internal/core"
)

func TestUpcomingDates_Monthly(t *testing.T) {
	anchor := core.MustParseDate("2026-01-15")
	today := core.MustParseDate("2026-03-10")

	got := UpcomingDates(core.Monthly, anchor, today, 3)
	want := []string{"2026-03-15", "2026-04-15", "2026-05-15"}

	assertDates(t, got, want)
}

func TestUpcomingDates_MonthlyDay31Clamps(t *testing.T) {
	anchor := core.MustParseDate("2026-01-31")
	today := core.MustParseDate("2026-02-01")

	got := UpcomingDates(core.Monthly, anchor, today, 4)
	want := []string{"2026-02-28", "2026-03-31", "2026-04-30", "2026-05-31"}

	assertDates(t, got, want)
}

func TestUpcomingDates_MonthlyOnAnchorDay(t *testing.T) {
	anchor := core.MustParseDate("2026-04-15")
	today := core.MustParseDate("2026-04-15")

	got := UpcomingDates(core.Monthly, anchor, today, 2)
	assertDates(t, got, []string{"2026-04-15", "2026-05-15"})
}

func TestUpcomingDates_Weekly(t *testing.T) {
	anchor := core.MustParseDate("2026-01-05")
	today := core.MustParseDate("2026-01-20")

	got := UpcomingDates(core.Weekly, anchor, today, 3)
	assertDates(t, got, []string{"2026-01-26", "2026-02-02", "2026-02-09"})
}

func TestUpcomingDates_Daily(t *testing.T) {
	anchor := core.MustParseDate("2026-01-01")
	today := core.MustParseDate("2026-06-10")

	got := UpcomingDates(core.Daily, anchor, today, 3)
	assertDates(t, got, []string{"2026-06-10", "2026-06-11", "2026-06-12"})
}

func TestUpcomingDates_DailyFutureAnchor(t *testing.T) {
	anchor := core.MustParseDate("2026-07-01")
	today := core.MustParseDate("2026-06-10")

	got := UpcomingDates(core.Daily, anchor, today, 2)
	assertDates(t, got, []string{"2026-07-01", "2026-07-02"})
}

func TestUpcomingDates_Yearly(t *testing.T) {
	anchor := core.MustParseDate("2024-02-29")
	today := core.MustParseDate("2026-01-01")

	got := UpcomingDates(core.Yearly, anchor, today, 3)
	assertDates(t, got, []string{"2026-02-28", "2027-02-28", "2028-02-29"})
}

func TestUpcomingDates_Deterministic(t *testing.T) {
	anchor := core.MustParseDate("2026-01-31")
	today := core.MustParseDate("2026-04-02")

	a := UpcomingDates(core.Monthly, anchor, today, 5)
	b := UpcomingDates(core.Monthly, anchor, today, 5)
	if len(a) != len(b) {
		t.Fatal("projection is not deterministic")
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("projection differs at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestUpcomingDates_ZeroCount(t *testing.T) {
	if got := UpcomingDates(core.Monthly, core.MustParseDate("2026-01-15"), core.MustParseDate("2026-01-01"), 0); got != nil {
		t.Errorf("n=0 should project nothing, got %v", got)
	}
}

func assertDates(t *testing.T, got []core.Date, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates %v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Errorf("date[%d] = %s, want %s", i, got[i], w)
		}
	}
}
