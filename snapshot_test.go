package costbasis

import (
	"reflect"
	"testing"
	"time"
)

func TestSnapshotAt_DefaultsToFIFO(t *testing.T) {
	snap, err := SnapshotAt(twoLots(t), NewDate(2024, time.January, 3))
	if err != nil {
		t.Fatalf("SnapshotAt() error = %v", err)
	}
	if snap.Method != FIFO {
		t.Errorf("Method = %s, want FIFO", snap.Method)
	}
	if len(snap.Holdings) != 1 {
		t.Fatalf("Holdings = %v, want BTC only", snap.Holdings)
	}
	h := snap.Holdings[0]
	assertQuantity(t, "TotalAmount", h.TotalAmount, "3")
	assertMoney(t, "TotalCostBasis", h.TotalCostBasis, "36")
	assertMoney(t, "AverageCost", h.AverageCost, "12")
	assertMoney(t, "snapshot TotalCostBasis", snap.TotalCostBasis, "36")
	if len(h.Lots) != 1 || h.Lots[0].ID != 2 {
		t.Errorf("Lots = %v, want lot 2", h.Lots)
	}
}

func TestSnapshotAt_Cutoff(t *testing.T) {
	events := twoLots(t)
	tests := []struct {
		on     Date
		amount string
		cost   string
	}{
		{NewDate(2023, time.December, 31), "", ""},
		{NewDate(2024, time.January, 1), "5", "50"},
		{NewDate(2024, time.January, 2), "10", "110"},
		{NewDate(2024, time.January, 3), "3", "36"},
		{NewDate(2025, time.January, 1), "3", "36"},
	}
	for _, tt := range tests {
		t.Run(tt.on.String(), func(t *testing.T) {
			snap, err := SnapshotAt(events, tt.on)
			if err != nil {
				t.Fatal(err)
			}
			if snap.Date != tt.on {
				t.Errorf("Date = %s, want %s", snap.Date, tt.on)
			}
			if tt.amount == "" {
				if len(snap.Holdings) != 0 {
					t.Errorf("Holdings = %v, want none", snap.Holdings)
				}
				return
			}
			assertQuantity(t, "Position", snap.Position("BTC"), tt.amount)
			assertMoney(t, "TotalCostBasis", snap.TotalCostBasis, tt.cost)
		})
	}
}

func TestSnapshotAt_Idempotent(t *testing.T) {
	events := twoLots(t)
	on := NewDate(2024, time.January, 3)
	e := NewEngine(WithMethod(LIFO))
	first, err := e.SnapshotAt(events, on)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.SnapshotAt(events, on)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("SnapshotAt() is not idempotent:\n%+v\n%+v", first, second)
	}

	// Mutating a returned lot does not leak into the next snapshot.
	first.Holdings[0].Lots[0].RemainingQuantity = Q(1000)
	third, err := e.SnapshotAt(events, on)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(second, third) {
		t.Errorf("SnapshotAt() changed after mutating a previous result")
	}
}

func TestSnapshotAt_MatchesGainsHoldings(t *testing.T) {
	events := twoLots(t)
	on := NewDate(2024, time.January, 3)
	for _, method := range []CostBasisMethod{FIFO, LIFO, AverageCost} {
		e := NewEngine(WithMethod(method))
		snap, err := e.SnapshotAt(events, on)
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.ComputeGainsLosses(events, Range{To: on})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(snap.Holdings, res.Holdings) {
			t.Errorf("%s: snapshot holdings %v differ from report holdings %v", method, snap.Holdings, res.Holdings)
		}
	}
}
