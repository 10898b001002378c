package costbasis

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Engine replays transaction histories into ledgers.
//
// The zero Engine uses FIFO, the default classification, and rejects
// oversells. An Engine holds no state between calls and can be shared.
type Engine struct {
	Method         CostBasisMethod
	Classification Classification
	Oversell       OversellPolicy
	Logger         *slog.Logger // nil discards
}

// Option configures an Engine.
type Option func(*Engine)

func WithMethod(m CostBasisMethod) Option { return func(e *Engine) { e.Method = m } }

func WithClassification(c Classification) Option {
	return func(e *Engine) { e.Classification = c }
}

func WithOversell(p OversellPolicy) Option { return func(e *Engine) { e.Oversell = p } }

// WithLogger makes the engine log skipped events and zero cost shorts at
// debug level.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.Logger = l } }

// NewEngine returns an engine configured by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// replay is the state of one pass over a history.
type replay struct {
	method    CostBasisMethod
	ledgers   map[string]*Ledger
	disposals []DisposalRecord
}

// ledger returns the ledger of asset, creating it on first use.
func (r *replay) ledger(asset string) *Ledger {
	l, ok := r.ledgers[asset]
	if !ok {
		l = NewLedger(asset, r.method)
		r.ledgers[asset] = l
	}
	return l
}

// holdings returns a copy of every non empty ledger, sorted by asset.
func (r *replay) holdings() []AssetHolding {
	assets := make([]string, 0, len(r.ledgers))
	for asset, l := range r.ledgers {
		if !l.empty() {
			assets = append(assets, asset)
		}
	}
	slices.Sort(assets)
	holdings := make([]AssetHolding, 0, len(assets))
	for _, asset := range assets {
		holdings = append(holdings, r.ledgers[asset].Holding())
	}
	return holdings
}

// run replays events with method, in (timestamp, id) order, up to the end of
// the cutoff day. A zero cutoff replays everything.
//
// Every disposal mutates the ledgers; report decides whether its record is
// kept.
func (e *Engine) run(events []TransactionEvent, method CostBasisMethod, cutoff Date, report func(Date) bool) (*replay, error) {
	log := e.logger()
	sorted := slices.Clone(events)
	SortEvents(sorted)

	matcher := Matcher{Oversell: e.Oversell}
	r := &replay{method: method, ledgers: make(map[string]*Ledger)}
	for _, ev := range sorted {
		day := ev.Date()
		if !cutoff.IsZero() && day.After(cutoff) {
			break
		}
		switch treatment := e.Classification.Classify(ev.Kind); treatment {
		case Ignore:
			log.Debug("event ignored", "id", ev.ID, "kind", ev.Kind.String(), "asset", ev.Asset)
		case Acquire:
			if err := r.ledger(ev.Asset).RecordAcquisition(ev.Quantity, ev.UnitPrice, ev.Fee, ev.Timestamp, ev.Source); err != nil {
				return nil, fmt.Errorf("event %q: %w", ev.ID, err)
			}
		case Dispose:
			rec, err := matcher.Match(r.ledger(ev.Asset), disposalOf(ev))
			if err != nil {
				return nil, fmt.Errorf("event %q: %w", ev.ID, err)
			}
			if rec.UnmatchedQuantity.IsPositive() {
				log.Debug("disposal exceeds holdings, remainder booked at zero cost",
					"id", ev.ID, "asset", ev.Asset, "unmatched", rec.UnmatchedQuantity.String())
			}
			if report == nil || report(day) {
				r.disposals = append(r.disposals, rec)
			}
		default:
			return nil, fmt.Errorf("event %q: unsupported treatment %s", ev.ID, treatment)
		}
	}
	return r, nil
}

// lastDay returns the day of the latest event, or the zero date.
func lastDay(events []TransactionEvent) Date {
	var last Date
	for _, ev := range events {
		if d := ev.Date(); last.IsZero() || d.After(last) {
			last = d
		}
	}
	return last
}

// firstDay returns the day of the earliest event, or the zero date.
func firstDay(events []TransactionEvent) Date {
	var first Date
	for _, ev := range events {
		if d := ev.Date(); first.IsZero() || d.Before(first) {
			first = d
		}
	}
	return first
}

// ComputeGainsLosses replays events with method and reports the disposals
// whose day falls in window. See Engine.ComputeGainsLosses.
func ComputeGainsLosses(events []TransactionEvent, method CostBasisMethod, window Range) (*GainsLossesResult, error) {
	return NewEngine(WithMethod(method)).ComputeGainsLosses(events, window)
}

// SnapshotAt returns the FIFO holdings at the end of asOf. See
// Engine.SnapshotAt.
func SnapshotAt(events []TransactionEvent, asOf Date) (*PortfolioSnapshot, error) {
	return NewEngine().SnapshotAt(events, asOf)
}

// describe returns a one line summary of the engine settings, for logs.
func (e *Engine) describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "method=%s oversell=%s classification=%s", e.Method, e.Oversell, e.Classification)
	return b.String()
}
