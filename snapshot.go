package costbasis

import "fmt"

// PortfolioSnapshot is the state of the holdings at the end of a day, without
// disposal detail.
type PortfolioSnapshot struct {
	Date           Date
	Method         CostBasisMethod
	Holdings       []AssetHolding // sorted by asset
	TotalCostBasis Money
}

// Position returns the net quantity held in asset.
func (s *PortfolioSnapshot) Position(asset string) Quantity {
	for _, h := range s.Holdings {
		if h.Asset == asset {
			return h.TotalAmount
		}
	}
	return Quantity{}
}

// MarshalJSON writes the snapshot with decimals as strings and the date in
// ISO-8601.
func (s *PortfolioSnapshot) MarshalJSON() ([]byte, error) {
	holdings := s.Holdings
	if holdings == nil {
		holdings = []AssetHolding{}
	}
	var w jsonObjectWriter
	w.Append("date", s.Date)
	w.Append("method", s.Method)
	w.Append("holdings", holdings)
	w.Append("totalCostBasis", s.TotalCostBasis)
	return w.MarshalJSON()
}

// SnapshotAt replays the events of every day up to asOf, included, and
// returns the holdings. A zero asOf replays everything.
//
// It runs the same replay as ComputeGainsLosses, so the holdings equal the
// CurrentHoldings of a gains report ending on asOf.
func (e *Engine) SnapshotAt(events []TransactionEvent, asOf Date) (*PortfolioSnapshot, error) {
	if asOf.IsZero() {
		asOf = lastDay(events)
	}
	r, err := e.run(events, e.Method, asOf, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot on %s: %w", asOf, err)
	}
	holdings := r.holdings()
	return &PortfolioSnapshot{
		Date:           asOf,
		Method:         e.Method,
		Holdings:       holdings,
		TotalCostBasis: totalCostBasis(holdings),
	}, nil
}
