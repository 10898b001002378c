package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/costbasis"
)

// ImportResult summarizes an import.
type ImportResult struct {
	Imported   int
	Duplicates int // records whose id was already stored for the client
	Rejected   []*costbasis.MalformedTransactionError
}

// ImportRaw normalizes raws and appends them to the history of client.
//
// Records are keyed by id: importing the same file twice stores it once.
// Malformed records are handled according to policy; with RejectBatch nothing
// is stored.
func (s *Store) ImportRaw(ctx context.Context, client string, raws []costbasis.RawTransaction, policy costbasis.BatchPolicy) (*ImportResult, error) {
	if strings.TrimSpace(client) == "" {
		return nil, errors.New("client id is required")
	}
	events, rejected, err := costbasis.NormalizeAll(raws, policy)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Rejected: rejected}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (client_id, id, timestamp, kind, asset, quantity, unit_price, fee, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		var price, fee, source sql.NullString
		if ev.HasPrice {
			price = sql.NullString{String: ev.UnitPrice.String(), Valid: true}
		}
		if !ev.Fee.IsZero() {
			fee = sql.NullString{String: ev.Fee.String(), Valid: true}
		}
		if ev.Source != "" {
			source = sql.NullString{String: ev.Source, Valid: true}
		}
		res, err := stmt.ExecContext(ctx, client, ev.ID, ev.Timestamp.Format(time.RFC3339Nano),
			ev.Kind.String(), ev.Asset, ev.Quantity.String(), price, fee, source)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction %q: %w", ev.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			result.Duplicates++
		} else {
			result.Imported++
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}

// Transactions returns the history of client, in chronological order.
// An unknown client has an empty history.
func (s *Store) Transactions(ctx context.Context, client string) ([]costbasis.TransactionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, kind, asset, quantity, unit_price, fee, source
		FROM transactions
		WHERE client_id = ?
		ORDER BY seq ASC`, client)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var raws []costbasis.RawTransaction
	for rows.Next() {
		var raw costbasis.RawTransaction
		var price, fee, source sql.NullString
		if err := rows.Scan(&raw.ID, &raw.Timestamp, &raw.Kind, &raw.Asset, &raw.Quantity, &price, &fee, &source); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		raw.UnitPrice, raw.Fee, raw.Source = nullable(price), nullable(fee), nullable(source)
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	// stored records were normalized on import, this cannot reject any.
	events, _, err := costbasis.NormalizeAll(raws, costbasis.RejectBatch)
	if err != nil {
		return nil, fmt.Errorf("corrupted history for client %q: %w", client, err)
	}
	return events, nil
}

// Clients lists the clients with at least one transaction, sorted.
func (s *Store) Clients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT client_id FROM transactions ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
