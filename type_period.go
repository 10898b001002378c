package costbasis

import (
	"fmt"
	"strings"
)

// Period is a calendar period used to cut reporting windows: a day, a week
// starting on Monday, a month, a quarter or a year.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

// periodNames holds the adjective then the noun of each period, both accepted
// by ParsePeriod.
var periodNames = [...][2]string{
	Daily:     {"daily", "day"},
	Weekly:    {"weekly", "week"},
	Monthly:   {"monthly", "month"},
	Quarterly: {"quarterly", "quarter"},
	Yearly:    {"yearly", "year"},
}

// PeriodNames returns the nouns accepted by ParsePeriod, shortest period first.
func PeriodNames() []string {
	names := make([]string, len(periodNames))
	for i, n := range periodNames {
		names[i] = n[1]
	}
	return names
}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p][0]
}

// Range returns the period containing d.
func (p Period) Range(d Date) Range {
	return Range{From: d.StartOf(p), To: d.EndOf(p)}
}

// ParsePeriod parses a period name like "year" or "monthly", case insensitive.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, n := range periodNames {
		if s == n[0] || s == n[1] {
			return Period(p), nil
		}
	}
	return Daily, fmt.Errorf("unknown period %q, want one of %s", s, strings.Join(PeriodNames(), ", "))
}
