package costbasis

import "time"

// AssetHolding is the position in one asset at a point in time. It is a copy:
// nothing in it refers back to ledger state.
type AssetHolding struct {
	Asset               string
	TotalAmount         Quantity // net quantity, negative under a zero cost short
	TotalCostBasis      Money
	AverageCost         Money // zero when nothing is held
	EarliestAcquisition time.Time
	LatestAcquisition   time.Time
	Shortfall           Quantity
	Lots                []Lot // empty under AverageCost
}

// MarshalJSON writes the holding with decimals as strings and timestamps in
// ISO-8601.
func (h AssetHolding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asset", h.Asset)
	w.Append("totalAmount", h.TotalAmount)
	w.Append("totalCostBasis", h.TotalCostBasis)
	w.Append("averageCost", h.AverageCost)
	if !h.EarliestAcquisition.IsZero() {
		w.Append("earliestAcquisition", h.EarliestAcquisition.Format(TimestampFormat))
		w.Append("latestAcquisition", h.LatestAcquisition.Format(TimestampFormat))
	}
	w.Optional("shortfall", h.Shortfall)
	lots := h.Lots
	if lots == nil {
		lots = []Lot{}
	}
	w.Append("lots", lots)
	return w.MarshalJSON()
}

// totalCostBasis sums the cost basis of holdings.
func totalCostBasis(holdings []AssetHolding) Money {
	var total Money
	for _, h := range holdings {
		total = total.Add(h.TotalCostBasis)
	}
	return total
}
