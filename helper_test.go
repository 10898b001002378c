package costbasis

import (
	"testing"
	"time"
)

// str returns a pointer to s, for the nullable fields of RawTransaction.
func str(s string) *string { return &s }

// at returns a UTC timestamp at noon on the given day.
func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// event is a helper for tests to build a valid event. An empty price means
// unknown.
func event(t *testing.T, id string, ts time.Time, kind Kind, asset, quantity, price, fee string) TransactionEvent {
	t.Helper()
	raw := RawTransaction{
		ID:        id,
		Timestamp: ts.Format(time.RFC3339),
		Kind:      kind.String(),
		Asset:     asset,
		Quantity:  quantity,
	}
	if price != "" {
		raw.UnitPrice = str(price)
	}
	if fee != "" {
		raw.Fee = str(fee)
	}
	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize(%+v) error = %v", raw, err)
	}
	return ev
}

// twoLots returns the acquisitions A1 (t=1, q=5, cost=10) and A2 (t=2, q=5,
// cost=12) of BTC, followed by a disposal of 7 units at 15 on day 3.
func twoLots(t *testing.T) []TransactionEvent {
	t.Helper()
	return []TransactionEvent{
		event(t, "a1", at(2024, time.January, 1), Buy, "BTC", "5", "10", ""),
		event(t, "a2", at(2024, time.January, 2), Buy, "BTC", "5", "12", ""),
		event(t, "d1", at(2024, time.January, 3), Sell, "BTC", "7", "15", ""),
	}
}

func assertMoney(t *testing.T, name string, got Money, want string) {
	t.Helper()
	if !got.Equal(MustMoney(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func assertQuantity(t *testing.T, name string, got Quantity, want string) {
	t.Helper()
	if !got.Equal(MustQuantity(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// mustDay parses an absolute day or fails the test.
func mustDay(t *testing.T, s string) Date {
	t.Helper()
	d, err := parseDay(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
