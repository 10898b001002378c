package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/etnz/costbasis"
)

// StoredSnapshot is a materialized snapshot.
type StoredSnapshot struct {
	Client  string
	AsOf    costbasis.Date
	Method  costbasis.CostBasisMethod
	Payload json.RawMessage // the snapshot as served by the API
}

// SaveSnapshot stores snap for client, replacing any snapshot with the same
// date and method.
func (s *Store) SaveSnapshot(ctx context.Context, client string, snap *costbasis.PortfolioSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (client_id, as_of, method, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id, as_of, method) DO UPDATE SET payload = excluded.payload`,
		client, snap.Date.String(), snap.Method.String(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot of client for method, or
// ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, client string, method costbasis.CostBasisMethod) (*StoredSnapshot, error) {
	var asOf, payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT as_of, payload FROM snapshots
		WHERE client_id = ? AND method = ?
		ORDER BY as_of DESC LIMIT 1`, client, method.String()).Scan(&asOf, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot of client %q: %w", client, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	on, err := costbasis.ParseDate(asOf)
	if err != nil {
		return nil, err
	}
	return &StoredSnapshot{Client: client, AsOf: on, Method: method, Payload: json.RawMessage(payload)}, nil
}
