package costbasis

import (
	"fmt"
	"slices"
	"strings"
)

// GainsLossesResult is the gains and losses report of one replay.
type GainsLossesResult struct {
	Method CostBasisMethod
	Period Range // reporting window, boundaries resolved against the events

	Disposals []DisposalRecord // disposals in Period, in replay order
	Holdings  []AssetHolding   // positions at the end of Period, sorted by asset

	TotalRealizedGains  Money // sum of positive realized results
	TotalRealizedLosses Money // sum of negative realized results, negative or zero
	NetRealizedPnL      Money
	TotalProceeds       Money
	TotalCostBasis      Money // cost basis consumed by the reported disposals

	Assets []AssetTotals // per asset breakdown of the reported disposals, sorted by asset
}

// AssetTotals aggregates the reported disposals of one asset.
type AssetTotals struct {
	Asset            string
	Disposals        int
	QuantityDisposed Quantity
	Proceeds         Money
	CostBasis        Money
	RealizedGains    Money
	RealizedLosses   Money
	NetRealizedPnL   Money
}

func (a AssetTotals) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asset", a.Asset)
	w.Append("disposals", a.Disposals)
	w.Append("quantityDisposed", a.QuantityDisposed)
	w.Append("proceeds", a.Proceeds)
	w.Append("costBasis", a.CostBasis)
	w.Append("realizedGains", a.RealizedGains)
	w.Append("realizedLosses", a.RealizedLosses)
	w.Append("netRealizedPnL", a.NetRealizedPnL)
	return w.MarshalJSON()
}

// MarshalJSON writes the result with decimals as strings and dates in
// ISO-8601, in a fixed field order.
func (r *GainsLossesResult) MarshalJSON() ([]byte, error) {
	var period jsonObjectWriter
	period.Append("start", r.Period.From)
	period.Append("end", r.Period.To)

	disposals, holdings, assets := r.Disposals, r.Holdings, r.Assets
	if disposals == nil {
		disposals = []DisposalRecord{}
	}
	if holdings == nil {
		holdings = []AssetHolding{}
	}
	if assets == nil {
		assets = []AssetTotals{}
	}

	var w jsonObjectWriter
	w.Append("method", r.Method)
	w.Append("period", &period)
	w.Append("disposalEvents", disposals)
	w.Append("currentHoldings", holdings)
	w.Append("totalRealizedGains", r.TotalRealizedGains)
	w.Append("totalRealizedLosses", r.TotalRealizedLosses)
	w.Append("netRealizedPnL", r.NetRealizedPnL)
	w.Append("totalProceeds", r.TotalProceeds)
	w.Append("totalCostBasis", r.TotalCostBasis)
	w.Append("perAsset", assets)
	return w.MarshalJSON()
}

// ComputeGainsLosses replays every event up to the end of window.To and
// reports the disposals whose day lies in window.
//
// Disposals before window.From are not reported but still consume lots, so
// the cost basis of later disposals and of the holdings is correct. A zero
// window.From starts at the first event, a zero window.To ends at the last
// one.
//
// A disposal exceeding the holdings aborts the replay with an error wrapping
// *InsufficientLotsError, unless the engine uses ZeroCostShort.
func (e *Engine) ComputeGainsLosses(events []TransactionEvent, window Range) (*GainsLossesResult, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	period := window
	if period.From.IsZero() {
		period.From = firstDay(events)
	}
	if period.To.IsZero() {
		period.To = lastDay(events)
	}
	e.logger().Debug("computing gains and losses", "settings", e.describe(), "period", period.String(), "events", len(events))

	r, err := e.run(events, e.Method, period.To, period.Contains)
	if err != nil {
		return nil, fmt.Errorf("computing gains and losses: %w", err)
	}

	result := &GainsLossesResult{
		Method:    e.Method,
		Period:    period,
		Disposals: r.disposals,
		Holdings:  r.holdings(),
	}
	result.total()
	return result, nil
}

// total computes the aggregate totals from the disposals.
func (r *GainsLossesResult) total() {
	byAsset := make(map[string]*AssetTotals)
	for _, d := range r.Disposals {
		a, ok := byAsset[d.Asset]
		if !ok {
			a = &AssetTotals{Asset: d.Asset}
			byAsset[d.Asset] = a
		}
		a.Disposals++
		a.QuantityDisposed = a.QuantityDisposed.Add(d.QuantityDisposed)
		a.Proceeds = a.Proceeds.Add(d.Proceeds)
		a.CostBasis = a.CostBasis.Add(d.CostBasisConsumed)
		if d.RealizedGainLoss.IsPositive() {
			a.RealizedGains = a.RealizedGains.Add(d.RealizedGainLoss)
		} else {
			a.RealizedLosses = a.RealizedLosses.Add(d.RealizedGainLoss)
		}
		a.NetRealizedPnL = a.NetRealizedPnL.Add(d.RealizedGainLoss)
	}

	r.Assets = make([]AssetTotals, 0, len(byAsset))
	for _, a := range byAsset {
		r.Assets = append(r.Assets, *a)
	}
	slices.SortFunc(r.Assets, func(a, b AssetTotals) int { return strings.Compare(a.Asset, b.Asset) })

	r.TotalRealizedGains, r.TotalRealizedLosses = Money{}, Money{}
	r.NetRealizedPnL, r.TotalProceeds, r.TotalCostBasis = Money{}, Money{}, Money{}
	for _, a := range r.Assets {
		r.TotalRealizedGains = r.TotalRealizedGains.Add(a.RealizedGains)
		r.TotalRealizedLosses = r.TotalRealizedLosses.Add(a.RealizedLosses)
		r.NetRealizedPnL = r.NetRealizedPnL.Add(a.NetRealizedPnL)
		r.TotalProceeds = r.TotalProceeds.Add(a.Proceeds)
		r.TotalCostBasis = r.TotalCostBasis.Add(a.CostBasis)
	}
}

// Holding returns the current holding of asset, if any.
func (r *GainsLossesResult) Holding(asset string) (AssetHolding, bool) {
	for _, h := range r.Holdings {
		if h.Asset == asset {
			return h, true
		}
	}
	return AssetHolding{}, false
}
