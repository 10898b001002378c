package costbasis

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"
)

// ClientResult is the gains report of one client in a batch.
type ClientResult struct {
	Client string             `json:"client"`
	Result *GainsLossesResult `json:"result"`
}

// ReplayBatch computes the gains report of several independent clients in
// parallel, at most workers at a time (no limit when workers <= 0).
//
// Each client gets its own ledgers, so the results do not depend on
// scheduling. They are returned sorted by client. A client that fails is
// logged and left out of the results; the others are still replayed, and the
// failures are returned joined.
func (e *Engine) ReplayBatch(ctx context.Context, batches map[string][]TransactionEvent, window Range, workers int) ([]ClientResult, error) {
	clients := slices.Sorted(maps.Keys(batches))
	results := make([]ClientResult, len(clients))
	errs := make([]error, len(clients))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, client := range clients {
		events := batches[client]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("client %q: %w", client, err)
				return nil
			}
			res, err := e.ComputeGainsLosses(events, window)
			if err != nil {
				e.logger().Warn("client replay failed", "client", client, "error", err)
				errs[i] = fmt.Errorf("client %q: %w", client, err)
				return nil
			}
			results[i] = ClientResult{Client: client, Result: res}
			return nil
		})
	}
	g.Wait()

	done := results[:0]
	for i, r := range results {
		if errs[i] == nil {
			done = append(done, r)
		}
	}
	return done, errors.Join(errs...)
}
