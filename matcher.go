package costbasis

import (
	"fmt"
	"strings"
	"time"
)

// OversellPolicy decides what happens when a disposal exceeds the holdings.
type OversellPolicy int

const (
	// RejectOversell fails the disposal with an *InsufficientLotsError and
	// leaves the ledger untouched.
	RejectOversell OversellPolicy = iota
	// ZeroCostShort consumes what is held and books the remainder at zero
	// cost basis, as a shortfall on the ledger.
	ZeroCostShort
)

func (p OversellPolicy) String() string {
	switch p {
	case RejectOversell:
		return "reject"
	case ZeroCostShort:
		return "zero-cost"
	default:
		return "unknown"
	}
}

// ParseOversellPolicy parses "reject" or "zero-cost".
func ParseOversellPolicy(s string) (OversellPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return RejectOversell, nil
	case "zero-cost":
		return ZeroCostShort, nil
	default:
		return RejectOversell, fmt.Errorf("unknown oversell policy %q (want reject or zero-cost)", s)
	}
}

// Disposal is the part of an event the matcher needs.
type Disposal struct {
	EventID   string
	Kind      Kind
	At        time.Time
	Quantity  Quantity
	UnitPrice Money // zero when unknown
	Fee       Money
}

// disposalOf extracts a Disposal from an event.
func disposalOf(e TransactionEvent) Disposal {
	return Disposal{
		EventID:   e.ID,
		Kind:      e.Kind,
		At:        e.Timestamp,
		Quantity:  e.Quantity,
		UnitPrice: e.UnitPrice,
		Fee:       e.Fee,
	}
}

// LotConsumption is the part of a lot taken by a disposal.
type LotConsumption struct {
	LotID    int64
	Quantity Quantity
	UnitCost Money
}

func (c LotConsumption) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("lotId", c.LotID)
	w.Append("quantityTaken", c.Quantity)
	w.Append("unitCost", c.UnitCost)
	return w.MarshalJSON()
}

// DisposalRecord is the outcome of matching one disposal.
type DisposalRecord struct {
	EventID           string
	Kind              Kind
	Date              time.Time // disposal timestamp
	Asset             string
	QuantityDisposed  Quantity
	Proceeds          Money // quantity*unitPrice - fee
	CostBasisConsumed Money
	RealizedGainLoss  Money // Proceeds - CostBasisConsumed
	LotsConsumed      []LotConsumption // in consumption order, empty under AverageCost
	UnmatchedQuantity Quantity         // booked at zero cost, under ZeroCostShort
	Method            CostBasisMethod
}

// MarshalJSON writes the record with decimals as strings and the disposal
// timestamp in ISO-8601.
func (r DisposalRecord) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("eventId", r.EventID)
	w.Append("kind", r.Kind)
	w.Append("disposalDate", r.Date.Format(TimestampFormat))
	w.Append("asset", r.Asset)
	w.Append("quantityDisposed", r.QuantityDisposed)
	w.Append("proceeds", r.Proceeds)
	w.Append("costBasisConsumed", r.CostBasisConsumed)
	w.Append("realizedGainLoss", r.RealizedGainLoss)
	consumed := r.LotsConsumed
	if consumed == nil {
		consumed = []LotConsumption{}
	}
	w.Append("lotsConsumed", consumed)
	w.Optional("unmatchedQuantity", r.UnmatchedQuantity)
	w.Append("method", r.Method)
	return w.MarshalJSON()
}

// Matcher consumes ledger positions for disposals.
type Matcher struct {
	Oversell OversellPolicy
}

// Match disposes d.Quantity from the ledger, following the ledger's method.
//
// FIFO takes from the smallest lot IDs first, LIFO from the largest. Under
// AverageCost the consumed cost is quantity times the bucket unit cost, and a
// disposal of the whole bucket consumes exactly TotalCost.
//
// When the ledger holds less than requested, Match fails with an
// *InsufficientLotsError before any mutation, unless the policy is
// ZeroCostShort.
func (m Matcher) Match(l *Ledger, d Disposal) (DisposalRecord, error) {
	if !d.Quantity.IsPositive() {
		return DisposalRecord{}, fmt.Errorf("cannot dispose %s %s: quantity must be positive", d.Quantity, l.Asset())
	}
	available := l.AvailableQuantity()
	if available.LessThan(d.Quantity) && m.Oversell != ZeroCostShort {
		return DisposalRecord{}, &InsufficientLotsError{
			EventID:   d.EventID,
			Asset:     l.Asset(),
			At:        d.At,
			Requested: d.Quantity,
			Available: available,
		}
	}

	rec := DisposalRecord{
		EventID:          d.EventID,
		Kind:             d.Kind,
		Date:             d.At,
		Asset:            l.Asset(),
		QuantityDisposed: d.Quantity,
		Proceeds:         d.UnitPrice.Mul(d.Quantity).Sub(d.Fee),
		Method:           l.Method(),
	}

	matched := d.Quantity.Min(available)
	var err error
	switch l.Method() {
	case FIFO, LIFO:
		rec.CostBasisConsumed, rec.LotsConsumed = l.consumeLots(matched)
	case AverageCost:
		rec.CostBasisConsumed, err = l.consumeBucket(matched)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownMethod, int(l.Method()))
	}
	if err != nil {
		return DisposalRecord{}, err
	}

	if unmatched := d.Quantity.Sub(matched); unmatched.IsPositive() {
		rec.UnmatchedQuantity = unmatched
		l.shortfall = l.shortfall.Add(unmatched)
	}
	rec.RealizedGainLoss = rec.Proceeds.Sub(rec.CostBasisConsumed)
	return rec, nil
}

// consumeLots takes q from the lot queue in method order. q must not exceed
// the available quantity.
func (l *Ledger) consumeLots(q Quantity) (Money, []LotConsumption) {
	var cost Money
	var consumed []LotConsumption
	for q.IsPositive() && len(l.lots) > 0 {
		i := 0
		if l.method == LIFO {
			i = len(l.lots) - 1
		}
		lot := &l.lots[i]
		taken := q.Min(lot.RemainingQuantity)
		cost = cost.Add(lot.UnitCost.Mul(taken))
		consumed = append(consumed, LotConsumption{LotID: lot.ID, Quantity: taken, UnitCost: lot.UnitCost})
		lot.RemainingQuantity = lot.RemainingQuantity.Sub(taken)
		q = q.Sub(taken)
		if lot.RemainingQuantity.IsZero() {
			l.lots = append(l.lots[:i], l.lots[i+1:]...)
		}
	}
	return cost, consumed
}

// consumeBucket takes q from the average cost bucket. q must not exceed the
// bucket quantity.
func (l *Ledger) consumeBucket(q Quantity) (Money, error) {
	if q.IsZero() {
		return Money{}, nil
	}
	var cost Money
	if q.Equal(l.bucket.TotalQuantity) {
		cost = l.bucket.TotalCost
	} else {
		unit, err := l.bucket.UnitCost()
		if err != nil {
			return Money{}, fmt.Errorf("average cost of %s: %w", l.asset, err)
		}
		cost = unit.Mul(q)
	}
	l.bucket.TotalQuantity = l.bucket.TotalQuantity.Sub(q)
	l.bucket.TotalCost = l.bucket.TotalCost.Sub(cost)
	if l.bucket.TotalQuantity.IsZero() {
		l.bucket = AverageCostBucket{}
		l.bucketFirst, l.bucketLast = time.Time{}, time.Time{}
	}
	return cost, nil
}
