package costbasis

import (
	"fmt"
	"slices"
	"time"
)

// Lot is a single acquisition of an asset, tracked for cost basis.
type Lot struct {
	ID                int64     // strictly increasing within a ledger, starting at 1
	Acquired          time.Time // acquisition timestamp
	OriginalQuantity  Quantity
	RemainingQuantity Quantity // 0 < RemainingQuantity <= OriginalQuantity while the lot is open
	UnitCost          Money    // unit price plus the fee spread over the quantity
	Source            string
}

// CostBasis returns the cost basis of the remaining quantity.
func (l Lot) CostBasis() Money { return l.UnitCost.Mul(l.RemainingQuantity) }

// MarshalJSON writes the lot with decimals as strings.
func (l Lot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("lotId", l.ID)
	w.Append("acquisitionDate", l.Acquired.Format(TimestampFormat))
	w.Append("originalQuantity", l.OriginalQuantity)
	w.Append("remainingQuantity", l.RemainingQuantity)
	w.Append("unitCost", l.UnitCost)
	w.Optional("source", l.Source)
	return w.MarshalJSON()
}

// AverageCostBucket pools every open unit of an asset at one blended cost.
type AverageCostBucket struct {
	TotalQuantity Quantity
	TotalCost     Money
}

// UnitCost returns TotalCost / TotalQuantity. It fails with ErrDivisionByZero
// on an empty bucket.
func (b AverageCostBucket) UnitCost() (Money, error) {
	u, err := b.TotalCost.Div(b.TotalQuantity)
	if err != nil {
		return Money{}, fmt.Errorf("unit cost of an empty bucket: %w", err)
	}
	return u, nil
}

// Ledger holds the open positions of one asset for one replay.
//
// Under FIFO and LIFO it keeps an ordered queue of lots, under AverageCost a
// single bucket, never both. Acquisitions and disposals must be applied in
// timestamp order.
type Ledger struct {
	asset  string
	method CostBasisMethod

	lots   []Lot // sorted by ID
	nextID int64

	bucket AverageCostBucket
	// acquisition timestamps of the bucket since it was last emptied.
	bucketFirst, bucketLast time.Time

	// quantity disposed without matching lots, under ZeroCostShort.
	shortfall Quantity
}

// NewLedger returns an empty ledger for asset.
func NewLedger(asset string, method CostBasisMethod) *Ledger {
	return &Ledger{asset: asset, method: method, nextID: 1}
}

// Asset returns the asset symbol the ledger tracks.
func (l *Ledger) Asset() string { return l.asset }

// Method returns the cost basis method the ledger applies.
func (l *Ledger) Method() CostBasisMethod { return l.method }

// RecordAcquisition adds quantity units bought at unitPrice with a fee.
//
// Under FIFO and LIFO it opens a new lot whose unit cost is
// unitPrice + fee/quantity. Under AverageCost it merges into the bucket:
// the cost grows by quantity*unitPrice + fee.
func (l *Ledger) RecordAcquisition(quantity Quantity, unitPrice, fee Money, at time.Time, source string) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("cannot acquire %s %s: quantity must be positive", quantity, l.asset)
	}
	if l.method.usesLots() {
		feePerUnit, err := fee.Div(quantity)
		if err != nil {
			return err
		}
		l.lots = append(l.lots, Lot{
			ID:                l.nextID,
			Acquired:          at,
			OriginalQuantity:  quantity,
			RemainingQuantity: quantity,
			UnitCost:          unitPrice.Add(feePerUnit),
			Source:            source,
		})
		l.nextID++
		return nil
	}

	if l.bucket.TotalQuantity.IsZero() {
		l.bucketFirst = at
	}
	l.bucketLast = at
	l.bucket.TotalQuantity = l.bucket.TotalQuantity.Add(quantity)
	l.bucket.TotalCost = l.bucket.TotalCost.Add(unitPrice.Mul(quantity)).Add(fee)
	return nil
}

// AvailableQuantity returns the quantity held in lots or in the bucket.
func (l *Ledger) AvailableQuantity() Quantity {
	if !l.method.usesLots() {
		return l.bucket.TotalQuantity
	}
	var total Quantity
	for _, lot := range l.lots {
		total = total.Add(lot.RemainingQuantity)
	}
	return total
}

// Shortfall returns the quantity disposed beyond the holdings under
// ZeroCostShort. It is zero otherwise.
func (l *Ledger) Shortfall() Quantity { return l.shortfall }

// Position returns the net quantity: available quantity minus shortfall.
func (l *Ledger) Position() Quantity { return l.AvailableQuantity().Sub(l.shortfall) }

// CostBasis returns the cost basis of the open quantity.
func (l *Ledger) CostBasis() Money {
	if !l.method.usesLots() {
		return l.bucket.TotalCost
	}
	var total Money
	for _, lot := range l.lots {
		total = total.Add(lot.CostBasis())
	}
	return total
}

// Lots returns a copy of the open lots, in ID order. It is empty under
// AverageCost.
func (l *Ledger) Lots() []Lot { return slices.Clone(l.lots) }

// Bucket returns a copy of the average cost bucket. It is empty under FIFO and
// LIFO.
func (l *Ledger) Bucket() AverageCostBucket { return l.bucket }

// acquisitionSpan returns the first and last acquisition timestamps of the
// quantity still open.
func (l *Ledger) acquisitionSpan() (earliest, latest time.Time) {
	if !l.method.usesLots() {
		if l.bucket.TotalQuantity.IsZero() {
			return time.Time{}, time.Time{}
		}
		return l.bucketFirst, l.bucketLast
	}
	for i, lot := range l.lots {
		if i == 0 || lot.Acquired.Before(earliest) {
			earliest = lot.Acquired
		}
		if i == 0 || lot.Acquired.After(latest) {
			latest = lot.Acquired
		}
	}
	return earliest, latest
}

// Holding returns a point in time copy of the ledger.
func (l *Ledger) Holding() AssetHolding {
	h := AssetHolding{
		Asset:          l.asset,
		TotalAmount:    l.Position(),
		TotalCostBasis: l.CostBasis(),
		Shortfall:      l.shortfall,
		Lots:           l.Lots(),
	}
	h.EarliestAcquisition, h.LatestAcquisition = l.acquisitionSpan()
	if available := l.AvailableQuantity(); available.IsPositive() {
		// cannot fail, available is not zero.
		h.AverageCost, _ = h.TotalCostBasis.Div(available)
	}
	return h
}

// empty reports whether the ledger has nothing left to report.
func (l *Ledger) empty() bool {
	return l.AvailableQuantity().IsZero() && l.shortfall.IsZero()
}
