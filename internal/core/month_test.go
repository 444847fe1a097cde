package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMonth_Parse(t *testing.T) {
	m, err := ParseMonth("2026-03")
	if err != nil {
		t.Fatalf("ParseMonth error: %v", err)
	}
	if m.Year() != 2026 || m.Month() != time.March {
		t.Errorf("ParseMonth = %v, want 2026-03", m)
	}

	if _, err := ParseMonth("2026-3"); err == nil {
		t.Error("ParseMonth should reject non-padded month")
	}
	if _, err := ParseMonth("garbage"); err == nil {
		t.Error("ParseMonth should reject garbage")
	}
}

func TestMonth_AddMonths(t *testing.T) {
	m := MustParseMonth("2026-11")

	if got := m.AddMonths(2); got.String() != "2027-01" {
		t.Errorf("AddMonths(2) = %s, want 2027-01", got)
	}
	if got := m.AddMonths(-11); got.String() != "2025-12" {
		t.Errorf("AddMonths(-11) = %s, want 2025-12", got)
	}
}

func TestMonth_MonthsApart(t *testing.T) {
	a := MustParseMonth("2025-11")
	b := MustParseMonth("2026-02")

	if got := a.MonthsApart(b); got != 3 {
		t.Errorf("MonthsApart = %d, want 3", got)
	}
	if got := b.MonthsApart(a); got != -3 {
		t.Errorf("reverse MonthsApart = %d, want -3", got)
	}
}

func TestMonth_Ordering(t *testing.T) {
	a := MustParseMonth("2026-01")
	b := MustParseMonth("2026-02")

	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After ordering wrong")
	}
}

func TestMonth_Days(t *testing.T) {
	feb := MustParseMonth("2026-02")
	if got := feb.FirstDay().String(); got != "2026-02-01" {
		t.Errorf("FirstDay = %s, want 2026-02-01", got)
	}
	if got := feb.LastDay().String(); got != "2026-02-28" {
		t.Errorf("LastDay = %s, want 2026-02-28", got)
	}

	leap := MustParseMonth("2028-02")
	if got := leap.LastDay().String(); got != "2028-02-29" {
		t.Errorf("leap LastDay = %s, want 2028-02-29", got)
	}
}

func TestDate_AddMonthsClamped(t *testing.T) {
	tests := []struct {
		name string
		date string
		n    int
		want string
	}{
		{name: "plain month step", date: "2026-03-15", n: 1, want: "2026-04-15"},
		{name: "day 31 clamps to 30", date: "2026-01-31", n: 3, want: "2026-04-30"},
		{name: "day 31 clamps to feb", date: "2026-01-31", n: 1, want: "2026-02-28"},
		{name: "clamp does not stick", date: "2026-01-31", n: 2, want: "2026-03-31"},
		{name: "year step", date: "2026-06-10", n: 12, want: "2027-06-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseDate(tt.date).AddMonthsClamped(tt.n)
			if got.String() != tt.want {
				t.Errorf("%s.AddMonthsClamped(%d) = %s, want %s", tt.date, tt.n, got, tt.want)
			}
		})
	}
}

func TestDate_AddDays(t *testing.T) {
	d := MustParseDate("2026-02-27")
	if got := d.AddDays(2).String(); got != "2026-03-01" {
		t.Errorf("AddDays(2) = %s, want 2026-03-01", got)
	}
}

func TestDate_MonthOf(t *testing.T) {
	d := MustParseDate("2026-07-31")
	if got := d.Month().String(); got != "2026-07" {
		t.Errorf("Month() = %s, want 2026-07", got)
	}
}

func TestMonthAndDate_JSON(t *testing.T) {
	type wrapper struct {
		M Month `json:"m"`
		D Date  `json:"d"`
	}
	in := wrapper{M: MustParseMonth("2026-05"), D: MustParseDate("2026-05-15")}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"m":"2026-05","d":"2026-05-15"}` {
		t.Errorf("Marshal = %s", data)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
