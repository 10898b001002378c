package costbasis

import (
	"fmt"
	"iter"
)

// Range represents an inclusive range of days.
//
// As a reporting window, a zero From leaves the range open on the left (from
// the first event) and a zero To leaves it open on the right (up to the last
// event).
type Range struct{ From, To Date }

// NewRange creates a new date range. If 'from' is after 'to', they are swapped.
func NewRange(from, to Date) Range {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Contains return true date is included in the range (boundaries included).
// Zero boundaries are open.
func (r Range) Contains(date Date) bool {
	if !r.From.IsZero() && date.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && date.After(r.To) {
		return false
	}
	return true
}

// Validate checks that the range is not reversed.
func (r Range) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("invalid range: start %s is after end %s", r.From, r.To)
	}
	return nil
}

// Periods returns an iterator that yields each sequential range of a given
// period 'p' that contains at least one day within the original range 'r'.
// Both boundaries must be set.
func (r Range) Periods(p Period) iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for current := r.From; !current.After(r.To); {
			periodRange := p.Range(current)
			if !yield(periodRange) {
				return
			}
			current = periodRange.To.Add(1)
		}
	}
}

// Split is like Periods but clamps the first and last ranges to r, so no
// yielded range reaches outside r.
func (r Range) Split(p Period) iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for w := range r.Periods(p) {
			if w.From.Before(r.From) {
				w.From = r.From
			}
			if w.To.After(r.To) {
				w.To = r.To
			}
			if !yield(w) {
				return
			}
		}
	}
}

func (r Range) String() string {
	from, to := r.From.String(), r.To.String()
	if from == "" {
		from = "start"
	}
	if to == "" {
		to = "end"
	}
	return from + ".." + to
}
