package renderer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
)

// twoLots replays two BTC buys followed by a partial sell.
func twoLots(t *testing.T) []costbasis.TransactionEvent {
	t.Helper()
	raws := []costbasis.RawTransaction{
		{ID: "a1", Timestamp: "2024-01-01T12:00:00Z", Kind: "BUY", Asset: "BTC", Quantity: "5", UnitPrice: str("10")},
		{ID: "a2", Timestamp: "2024-01-02T12:00:00Z", Kind: "BUY", Asset: "BTC", Quantity: "5", UnitPrice: str("12")},
		{ID: "d1", Timestamp: "2024-01-03T12:00:00Z", Kind: "SELL", Asset: "BTC", Quantity: "7", UnitPrice: str("15")},
	}
	events, _, err := costbasis.NormalizeAll(raws, costbasis.RejectBatch)
	if err != nil {
		t.Fatal(err)
	}
	return events
}

func str(s string) *string { return &s }

func TestGainsMarkdown(t *testing.T) {
	res, err := costbasis.NewEngine().ComputeGainsLosses(twoLots(t), costbasis.Range{})
	if err != nil {
		t.Fatal(err)
	}
	want := `# Gains and Losses from 2024-01-01 to 2024-01-03

Method: FIFO

| Realized gains | Realized losses | Net realized | Proceeds | Cost basis |
|---:|---:|---:|---:|---:|
| +31.00 | - | +31.00 | 105.00 | 74.00 |

## Disposals

| Date | Asset | Kind | Quantity | Proceeds | Cost basis | Gain/Loss |
|:---|:---|:---|---:|---:|---:|---:|
| 2024-01-03 | BTC | SELL | 7 | 105.00 | 74.00 | +31.00 |

## Holdings

| Asset | Amount | Cost basis | Average cost | Since |
|:---|---:|---:|---:|:---|
| BTC | 3 | 36.00 | 12.00 | 2024-01-02 |
`
	if got := GainsMarkdown(res, Options{}); got != want {
		t.Errorf("GainsMarkdown() mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestGainsMarkdown_NoDisposals(t *testing.T) {
	events := twoLots(t)
	window := costbasis.NewRange(costbasis.NewDate(2024, time.January, 1), costbasis.NewDate(2024, time.January, 2))
	res, err := costbasis.NewEngine().ComputeGainsLosses(events, window)
	if err != nil {
		t.Fatal(err)
	}
	got := GainsMarkdown(res, Options{Currency: "USD"})
	for _, line := range []string{
		"No disposals in this period.",
		"| BTC | 10 | $110.00 | $11.00 | 2024-01-01 |",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("GainsMarkdown() does not contain %q:\n%s", line, got)
		}
	}
}

func TestGainsMarkdown_PerAsset(t *testing.T) {
	raws := []costbasis.RawTransaction{
		{ID: "b", Timestamp: "2024-01-01", Kind: "BUY", Asset: "BTC", Quantity: "1", UnitPrice: str("100")},
		{ID: "e", Timestamp: "2024-01-01", Kind: "BUY", Asset: "ETH", Quantity: "2", UnitPrice: str("10")},
		{ID: "sb", Timestamp: "2024-01-02", Kind: "SELL", Asset: "BTC", Quantity: "1", UnitPrice: str("90")},
		{ID: "se", Timestamp: "2024-01-02", Kind: "SELL", Asset: "ETH", Quantity: "1", UnitPrice: str("15")},
	}
	events, _, err := costbasis.NormalizeAll(raws, costbasis.RejectBatch)
	if err != nil {
		t.Fatal(err)
	}
	res, err := costbasis.NewEngine().ComputeGainsLosses(events, costbasis.Range{})
	if err != nil {
		t.Fatal(err)
	}
	got := GainsMarkdown(res, Options{})
	for _, line := range []string{
		"| +5.00 | -10.00 | -5.00 | 105.00 | 110.00 |",
		"| BTC | 1 | 1 | 90.00 | 100.00 | -10.00 |",
		"| ETH | 1 | 1 | 15.00 | 10.00 | +5.00 |",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("GainsMarkdown() does not contain %q:\n%s", line, got)
		}
	}
}

func TestSnapshotMarkdown(t *testing.T) {
	snap, err := costbasis.NewEngine(costbasis.WithMethod(costbasis.LIFO)).SnapshotAt(twoLots(t), costbasis.NewDate(2024, time.January, 3))
	if err != nil {
		t.Fatal(err)
	}
	want := `# Holdings on 2024-01-03

Method: LIFO

Total cost basis: 30.00

## Holdings

| Asset | Amount | Cost basis | Average cost | Since |
|:---|---:|---:|---:|:---|
| BTC | 3 | 30.00 | 10.00 | 2024-01-01 |
`
	if got := SnapshotMarkdown(snap, Options{}); got != want {
		t.Errorf("SnapshotMarkdown() mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}

	empty, err := costbasis.SnapshotAt(twoLots(t), costbasis.NewDate(2023, time.December, 1))
	if err != nil {
		t.Fatal(err)
	}
	if got := SnapshotMarkdown(empty, Options{}); !strings.Contains(got, "No holdings.") {
		t.Errorf("SnapshotMarkdown() of an empty snapshot = %q", got)
	}
}

func TestHTML(t *testing.T) {
	got, err := HTML("| A | B |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<table>") || !strings.Contains(got, "<td>1</td>") {
		t.Errorf("HTML() = %q, want a table", got)
	}
}

func TestClientsMarkdown(t *testing.T) {
	e := costbasis.NewEngine(costbasis.WithMethod(costbasis.LIFO))
	batches := map[string][]costbasis.TransactionEvent{
		"bob":   twoLots(t),
		"alice": twoLots(t)[:2],
	}
	results, err := e.ReplayBatch(context.Background(), batches, costbasis.Range{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := `# Realized Gains by Client

Method: LIFO

| Client | Disposals | Proceeds | Cost basis | Net realized | Holdings cost basis |
|:---|---:|---:|---:|---:|---:|
| alice | 0 | 0.00 | 0.00 | - | 110.00 |
| bob | 1 | 105.00 | 80.00 | +25.00 | 30.00 |
`
	if got := ClientsMarkdown(results, costbasis.Range{}, e.Method, Options{}); got != want {
		t.Errorf("ClientsMarkdown() mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}

	window := costbasis.Range{To: costbasis.NewDate(2024, time.March, 31)}
	if got := ClientsMarkdown(nil, window, e.Method, Options{}); !strings.Contains(got, "# Realized Gains by Client up to 2024-03-31") || !strings.Contains(got, "No clients.") {
		t.Errorf("ClientsMarkdown(nil) = %q", got)
	}
}
