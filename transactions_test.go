package costbasis

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	valid := RawTransaction{
		ID:        "tx-1",
		Timestamp: "2024-03-01T10:30:00+02:00",
		Kind:      "buy",
		Asset:     " btc ",
		Quantity:  "0.5",
		UnitPrice: str("60000.00"),
		Fee:       str("12.5"),
		Source:    str("kraken"),
	}
	ev, err := Normalize(valid)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if want := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC); !ev.Timestamp.Equal(want) || ev.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
	if ev.Asset != "BTC" || ev.Kind != Buy || ev.Source != "kraken" || !ev.HasPrice {
		t.Errorf("Normalize() = %+v", ev)
	}
	assertQuantity(t, "Quantity", ev.Quantity, "0.5")
	assertMoney(t, "UnitPrice", ev.UnitPrice, "60000")
	assertMoney(t, "Fee", ev.Fee, "12.5")

	tests := []struct {
		name  string
		edit  func(r *RawTransaction)
		field string
	}{
		{"missing timestamp", func(r *RawTransaction) { r.Timestamp = "" }, "timestamp"},
		{"bad timestamp", func(r *RawTransaction) { r.Timestamp = "yesterday" }, "timestamp"},
		{"empty asset", func(r *RawTransaction) { r.Asset = "  " }, "asset"},
		{"unknown kind", func(r *RawTransaction) { r.Kind = "AIRDROP" }, "kind"},
		{"zero quantity", func(r *RawTransaction) { r.Quantity = "0" }, "quantity"},
		{"negative quantity", func(r *RawTransaction) { r.Quantity = "-1" }, "quantity"},
		{"missing quantity", func(r *RawTransaction) { r.Quantity = "" }, "quantity"},
		{"garbled quantity", func(r *RawTransaction) { r.Quantity = "1.2.3" }, "quantity"},
		{"negative price", func(r *RawTransaction) { r.UnitPrice = str("-2") }, "unitPrice"},
		{"bad fee", func(r *RawTransaction) { r.Fee = str("ten") }, "fee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			tt.edit(&raw)
			_, err := Normalize(raw)
			if !errors.Is(err, ErrMalformedTransaction) {
				t.Fatalf("Normalize() error = %v, want ErrMalformedTransaction", err)
			}
			var merr *MalformedTransactionError
			if !errors.As(err, &merr) || merr.Field != tt.field || merr.ID != "tx-1" {
				t.Errorf("Normalize() error = %#v, want field %q of tx-1", err, tt.field)
			}
		})
	}
}

func TestNormalize_Optional(t *testing.T) {
	ev, err := Normalize(RawTransaction{Timestamp: "1700000000", Kind: "DEPOSIT", Asset: "eth", Quantity: "2"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.HasPrice || !ev.UnitPrice.IsZero() || !ev.Fee.IsZero() {
		t.Errorf("absent price and fee must be zero, got %+v", ev)
	}
	if want := time.Unix(1700000000, 0).UTC(); !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
	if ev.ID == "" {
		t.Fatal("ID is empty, want a derived id")
	}
	again, _ := Normalize(RawTransaction{Timestamp: "1700000000", Kind: "DEPOSIT", Asset: "eth", Quantity: "2"})
	if again.ID != ev.ID {
		t.Errorf("derived ids differ: %q and %q", ev.ID, again.ID)
	}
	other, _ := Normalize(RawTransaction{Timestamp: "1700000000", Kind: "DEPOSIT", Asset: "eth", Quantity: "3"})
	if other.ID == ev.ID {
		t.Errorf("two different records share the id %q", ev.ID)
	}
}

func TestNormalizeAll_IdenticalRecords(t *testing.T) {
	fill := RawTransaction{Timestamp: "2024-01-01T12:00:00Z", Kind: "BUY", Asset: "BTC", Quantity: "1", UnitPrice: str("10")}
	events, _, err := NormalizeAll([]RawTransaction{fill, fill, fill}, RejectBatch)
	if err != nil {
		t.Fatalf("NormalizeAll() error = %v", err)
	}
	seen := map[string]bool{}
	for _, ev := range events {
		if seen[ev.ID] {
			t.Errorf("id %q derived twice", ev.ID)
		}
		seen[ev.ID] = true
	}
	// the first occurrence keeps the id of a lone record.
	if single, _ := Normalize(fill); !seen[single.ID] {
		t.Errorf("ids %v miss the lone record id %q", seen, single.ID)
	}
	again, _, _ := NormalizeAll([]RawTransaction{fill, fill, fill}, RejectBatch)
	for i := range events {
		if again[i].ID != events[i].ID {
			t.Errorf("events[%d].ID = %q on the second run, want %q", i, again[i].ID, events[i].ID)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, input := range []string{
		"2024-05-06T07:08:09Z",
		"2024-05-06T09:08:09+02:00",
		"2024-05-06T07:08:09",
		"2024-05-06 07:08:09",
		"1714979289",
	} {
		got, err := ParseTimestamp(input)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error = %v", input, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", input, got, want)
		}
	}
	if got, _ := ParseTimestamp("2024-05-06"); !got.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseTimestamp(2024-05-06) = %v, want midnight UTC", got)
	}
}

func TestNormalizeAll(t *testing.T) {
	raws := []RawTransaction{
		{ID: "c", Timestamp: "2024-01-02", Kind: "SELL", Asset: "BTC", Quantity: "1"},
		{ID: "bad", Timestamp: "2024-01-01", Kind: "BUY", Asset: "BTC", Quantity: "-1"},
		{ID: "b", Timestamp: "2024-01-01", Kind: "BUY", Asset: "BTC", Quantity: "1"},
		{ID: "a", Timestamp: "2024-01-01", Kind: "BUY", Asset: "BTC", Quantity: "1"},
	}

	events, rejected, err := NormalizeAll(raws, SkipMalformed)
	if err != nil {
		t.Fatalf("NormalizeAll() error = %v", err)
	}
	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	if got, want := ids, []string{"a", "b", "c"}; len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if len(rejected) != 1 || rejected[0].Index != 1 || rejected[0].ID != "bad" {
		t.Errorf("rejected = %v, want record 1", rejected)
	}

	events, _, err = NormalizeAll(raws, RejectBatch)
	var merr *MalformedTransactionError
	if !errors.As(err, &merr) || merr.Index != 1 {
		t.Errorf("NormalizeAll(RejectBatch) error = %v, want record 1", err)
	}
	if events != nil {
		t.Errorf("NormalizeAll(RejectBatch) events = %v, want none", events)
	}
}

func TestRawTransaction_UnmarshalJSON(t *testing.T) {
	var raw RawTransaction
	input := `{"id":7,"timestamp":1700000000,"kind":"BUY","asset":"BTC","quantity":0.00000001,"unitPrice":"42000.5","fee":null}`
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw.ID != "7" || raw.Timestamp != "1700000000" || raw.Quantity != "0.00000001" {
		t.Errorf("Unmarshal() = %+v", raw)
	}
	if raw.UnitPrice == nil || *raw.UnitPrice != "42000.5" {
		t.Errorf("UnitPrice = %v, want 42000.5", raw.UnitPrice)
	}
	if raw.Fee != nil || raw.Source != nil {
		t.Errorf("Fee, Source = %v, %v, want nil", raw.Fee, raw.Source)
	}

	if err := json.Unmarshal([]byte(`{"quantity":true}`), &raw); err == nil {
		t.Error("Unmarshal() of a boolean quantity error = nil, want an error")
	}
}

func TestTransactionEvent_MarshalJSON(t *testing.T) {
	ev := event(t, "x", at(2024, 1, 1), Reward, "dot", "1.25", "", "")
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"x","timestamp":"2024-01-01T12:00:00Z","kind":"REWARD","asset":"DOT","quantity":"1.25"}`
	if string(b) != want {
		t.Errorf("MarshalJSON() = %s, want %s", b, want)
	}

	raws, err := DecodeJSONL(bytes.NewReader(b))
	if err != nil || len(raws) != 1 {
		t.Fatalf("DecodeJSONL() = %v, %v", raws, err)
	}
	back, err := Normalize(raws[0])
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != ev.ID || !back.Timestamp.Equal(ev.Timestamp) || !back.Quantity.Equal(ev.Quantity) || back.HasPrice {
		t.Errorf("decoded %+v, want %+v", back, ev)
	}
}
