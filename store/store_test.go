package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/costbasis"
)

// setupTestStore opens a fresh database in a temporary folder.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) *string { return &s }

func raws() []costbasis.RawTransaction {
	return []costbasis.RawTransaction{
		{ID: "a1", Timestamp: "2024-01-01T12:00:00Z", Kind: "BUY", Asset: "btc", Quantity: "5", UnitPrice: str("10"), Source: str("kraken")},
		{ID: "a2", Timestamp: "2024-01-02T12:00:00Z", Kind: "BUY", Asset: "BTC", Quantity: "5", UnitPrice: str("12"), Fee: str("0.5")},
		{ID: "d1", Timestamp: "2024-01-03T12:00:00Z", Kind: "SELL", Asset: "BTC", Quantity: "7", UnitPrice: str("15")},
		{Timestamp: "2024-01-04", Kind: "DEPOSIT", Asset: "ETH", Quantity: "1"},
	}
}

func TestOpen_Migrates(t *testing.T) {
	s := setupTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", v)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestImportRaw(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	res, err := s.ImportRaw(ctx, "alice", raws(), costbasis.SkipMalformed)
	if err != nil {
		t.Fatalf("ImportRaw() error = %v", err)
	}
	if res.Imported != 4 || res.Duplicates != 0 || len(res.Rejected) != 0 {
		t.Errorf("ImportRaw() = %+v, want 4 imported", res)
	}

	// importing again is a no-op.
	res, err = s.ImportRaw(ctx, "alice", raws(), costbasis.SkipMalformed)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 0 || res.Duplicates != 4 {
		t.Errorf("second ImportRaw() = %+v, want 4 duplicates", res)
	}

	events, err := s.Transactions(ctx, "alice")
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("Transactions() = %d events, want 4", len(events))
	}
	first := events[0]
	if first.ID != "a1" || first.Asset != "BTC" || first.Source != "kraken" || !first.HasPrice {
		t.Errorf("events[0] = %+v", first)
	}
	if !first.Timestamp.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("events[0].Timestamp = %v", first.Timestamp)
	}
	if !events[1].Fee.Equal(costbasis.MustMoney("0.5")) {
		t.Errorf("events[1].Fee = %s, want 0.5", events[1].Fee)
	}
	if events[3].HasPrice || events[3].ID == "" {
		t.Errorf("events[3] = %+v, want a derived id and no price", events[3])
	}

	// the stored history replays like the original one.
	res2, err := costbasis.ComputeGainsLosses(events, costbasis.FIFO, costbasis.Range{})
	if err != nil {
		t.Fatal(err)
	}
	if !res2.NetRealizedPnL.Equal(costbasis.MustMoney("30.8")) {
		t.Errorf("NetRealizedPnL = %s, want 30.8", res2.NetRealizedPnL)
	}
}

func TestImportRaw_Malformed(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	batch := append(raws(), costbasis.RawTransaction{ID: "bad", Timestamp: "2024-01-05", Kind: "BUY", Asset: "BTC", Quantity: "-1"})

	if _, err := s.ImportRaw(ctx, "bob", batch, costbasis.RejectBatch); !errors.Is(err, costbasis.ErrMalformedTransaction) {
		t.Fatalf("ImportRaw(RejectBatch) error = %v, want ErrMalformedTransaction", err)
	}
	if events, _ := s.Transactions(ctx, "bob"); len(events) != 0 {
		t.Errorf("rejected batch stored %d events", len(events))
	}

	res, err := s.ImportRaw(ctx, "bob", batch, costbasis.SkipMalformed)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 4 || len(res.Rejected) != 1 || res.Rejected[0].ID != "bad" {
		t.Errorf("ImportRaw(SkipMalformed) = %+v", res)
	}

	if _, err := s.ImportRaw(ctx, " ", batch, costbasis.SkipMalformed); err == nil {
		t.Error("ImportRaw() without client error = nil")
	}
}

func TestImportRaw_IdenticalFills(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	fill := costbasis.RawTransaction{Timestamp: "2024-01-01T12:00:00Z", Kind: "BUY", Asset: "BTC", Quantity: "1", UnitPrice: str("10")}
	batch := []costbasis.RawTransaction{fill, fill}

	res, err := s.ImportRaw(ctx, "carol", batch, costbasis.RejectBatch)
	if err != nil {
		t.Fatalf("ImportRaw() error = %v", err)
	}
	if res.Imported != 2 || res.Duplicates != 0 {
		t.Errorf("ImportRaw() = %+v, want 2 imported", res)
	}
	// the same file again is still a no-op.
	if res, err = s.ImportRaw(ctx, "carol", batch, costbasis.RejectBatch); err != nil || res.Imported != 0 || res.Duplicates != 2 {
		t.Errorf("second ImportRaw() = %+v, %v, want 2 duplicates", res, err)
	}

	events, err := s.Transactions(ctx, "carol")
	if err != nil {
		t.Fatal(err)
	}
	snap, err := costbasis.SnapshotAt(events, costbasis.NewDate(2024, time.December, 31))
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Position("BTC"); !got.Equal(costbasis.MustQuantity("2")) {
		t.Errorf("Position(BTC) = %s, want 2", got)
	}
}

func TestClients(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	for _, c := range []string{"carol", "alice"} {
		if _, err := s.ImportRaw(ctx, c, raws(), costbasis.RejectBatch); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Clients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "alice" || got[1] != "carol" {
		t.Errorf("Clients() = %v, want [alice carol]", got)
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	if _, err := s.ImportRaw(ctx, "alice", raws(), costbasis.RejectBatch); err != nil {
		t.Fatal(err)
	}
	events, err := s.Transactions(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.LatestSnapshot(ctx, "alice", costbasis.FIFO); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestSnapshot() error = %v, want ErrNotFound", err)
	}

	for _, on := range []costbasis.Date{costbasis.NewDate(2024, time.January, 2), costbasis.NewDate(2024, time.January, 3)} {
		snap, err := costbasis.SnapshotAt(events, on)
		if err != nil {
			t.Fatal(err)
		}
		// saving twice replaces.
		for range 2 {
			if err := s.SaveSnapshot(ctx, "alice", snap); err != nil {
				t.Fatalf("SaveSnapshot() error = %v", err)
			}
		}
	}

	got, err := s.LatestSnapshot(ctx, "alice", costbasis.FIFO)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsOf != costbasis.NewDate(2024, time.January, 3) || got.Method != costbasis.FIFO {
		t.Errorf("LatestSnapshot() = %+v", got)
	}
	if len(got.Payload) == 0 || got.Payload[0] != '{' {
		t.Errorf("Payload = %s, want a JSON object", got.Payload)
	}
	if _, err := s.LatestSnapshot(ctx, "alice", costbasis.LIFO); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestSnapshot(LIFO) error = %v, want ErrNotFound", err)
	}
}
