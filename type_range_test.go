package costbasis

import (
	"slices"
	"testing"
)

func TestRange_Periods(t *testing.T) {
	day := func(s string) Date { return mustDay(t, s) }
	tests := []struct {
		r    Range
		p    Period
		want []string
	}{
		{NewRange(day("2024-01-10"), day("2024-01-17")), Weekly, []string{
			"2024-01-08..2024-01-14",
			"2024-01-15..2024-01-21",
		}},
		{NewRange(day("2024-02-15"), day("2024-04-10")), Monthly, []string{
			"2024-02-01..2024-02-29",
			"2024-03-01..2024-03-31",
			"2024-04-01..2024-04-30",
		}},
		{NewRange(day("2023-11-30"), day("2024-01-01")), Quarterly, []string{
			"2023-10-01..2023-12-31",
			"2024-01-01..2024-03-31",
		}},
		{NewRange(day("2024-01-01"), day("2024-12-31")), Yearly, []string{
			"2024-01-01..2024-12-31",
		}},
		{NewRange(day("2024-03-30"), day("2024-04-01")), Daily, []string{
			"2024-03-30..2024-03-30",
			"2024-03-31..2024-03-31",
			"2024-04-01..2024-04-01",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.r.String()+"/"+tt.p.String(), func(t *testing.T) {
			var got []string
			for r := range tt.r.Periods(tt.p) {
				got = append(got, r.String())
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Periods(%s) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	// the iteration stops when asked.
	n := 0
	for range NewRange(day("2024-01-01"), day("2024-12-31")).Periods(Daily) {
		if n++; n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("iterated %d days, want 3", n)
	}
}

func TestRange_Split(t *testing.T) {
	day := func(s string) Date { return mustDay(t, s) }
	var got []string
	for r := range NewRange(day("2024-01-15"), day("2024-03-10")).Split(Monthly) {
		got = append(got, r.String())
	}
	want := []string{
		"2024-01-15..2024-01-31",
		"2024-02-01..2024-02-29",
		"2024-03-01..2024-03-10",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Split(month) = %v, want %v", got, want)
	}

	got = got[:0]
	for r := range NewRange(day("2024-05-02"), day("2024-05-03")).Split(Yearly) {
		got = append(got, r.String())
	}
	if want := []string{"2024-05-02..2024-05-03"}; !slices.Equal(got, want) {
		t.Errorf("Split(year) = %v, want %v", got, want)
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "Daily", " month ", "QUARTER", "yearly"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q) error = %v", s, err)
		}
	}
	if p, _ := ParsePeriod("week"); p != Weekly {
		t.Errorf("ParsePeriod(week) = %s, want weekly", p)
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("ParsePeriod(fortnight) error = nil, want an error")
	}
	if got := PeriodNames(); !slices.Equal(got, []string{"day", "week", "month", "quarter", "year"}) {
		t.Errorf("PeriodNames() = %v", got)
	}
}

func TestRange_Contains(t *testing.T) {
	jan, mar := NewDate(2024, 1, 1), NewDate(2024, 3, 31)
	tests := []struct {
		r    Range
		d    Date
		want bool
	}{
		{NewRange(jan, mar), jan, true},
		{NewRange(jan, mar), mar, true},
		{NewRange(jan, mar), mar.Add(1), false},
		{NewRange(jan, mar), jan.Add(-1), false},
		{Range{From: jan}, NewDate(2099, 1, 1), true},
		{Range{To: mar}, NewDate(1999, 1, 1), true},
		{Range{}, jan, true},
	}
	for _, tt := range tests {
		if got := tt.r.Contains(tt.d); got != tt.want {
			t.Errorf("%s.Contains(%s) = %v, want %v", tt.r, tt.d, got, tt.want)
		}
	}
}

func TestRange_Validate(t *testing.T) {
	if err := (Range{From: NewDate(2024, 2, 1), To: NewDate(2024, 1, 1)}).Validate(); err == nil {
		t.Error("Validate() of a reversed range error = nil, want an error")
	}
	if got := NewRange(NewDate(2024, 2, 1), NewDate(2024, 1, 1)); got.From != NewDate(2024, 1, 1) {
		t.Errorf("NewRange() did not swap boundaries: %s", got)
	}
	if got, want := (Range{}).String(), "start..end"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
