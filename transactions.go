package costbasis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawTransaction is a transaction record as received from an external
// collaborator. Every field is textual; nullable fields are pointers.
type RawTransaction struct {
	ID        string  `json:"id,omitempty"`
	Timestamp string  `json:"timestamp"`          // ISO-8601, or epoch seconds
	Kind      string  `json:"kind"`               // BUY, SELL, DEPOSIT, ...
	Asset     string  `json:"asset"`              // asset symbol
	Quantity  string  `json:"quantity"`           // decimal string, strictly positive
	UnitPrice *string `json:"unitPrice,omitempty"` // decimal string, nil means unknown (zero cost)
	Fee       *string `json:"fee,omitempty"`       // decimal string
	Source    *string `json:"source,omitempty"`    // exchange name or on-chain tag
}

// UnmarshalJSON accepts JSON numbers as well as strings for every field, so
// that exports writing `"quantity": 0.5` or `"timestamp": 1700000000` decode
// without going through float64.
func (r *RawTransaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID        json.RawMessage `json:"id"`
		Timestamp json.RawMessage `json:"timestamp"`
		Kind      json.RawMessage `json:"kind"`
		Asset     json.RawMessage `json:"asset"`
		Quantity  json.RawMessage `json:"quantity"`
		UnitPrice json.RawMessage `json:"unitPrice"`
		Fee       json.RawMessage `json:"fee"`
		Source    json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	var err error
	text := func(field string, raw json.RawMessage) *string {
		if err != nil {
			return nil
		}
		var s *string
		s, err = rawText(raw)
		if err != nil {
			err = fmt.Errorf("field %q: %w", field, err)
		}
		return s
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	r.ID = deref(text("id", temp.ID))
	r.Timestamp = deref(text("timestamp", temp.Timestamp))
	r.Kind = deref(text("kind", temp.Kind))
	r.Asset = deref(text("asset", temp.Asset))
	r.Quantity = deref(text("quantity", temp.Quantity))
	r.UnitPrice = text("unitPrice", temp.UnitPrice)
	r.Fee = text("fee", temp.Fee)
	r.Source = text("source", temp.Source)
	return err
}

// rawText returns the text of a JSON string or the literal of a JSON number.
// Absent and null values are nil.
func rawText(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("want a string or a number, got %s", raw)
	}
	s := n.String()
	return &s, nil
}

// TransactionEvent is a validated, immutable transaction.
type TransactionEvent struct {
	ID        string
	Timestamp time.Time // UTC
	Asset     string
	Kind      Kind
	Quantity  Quantity // strictly positive
	UnitPrice Money    // zero when HasPrice is false
	HasPrice  bool
	Fee       Money
	Source    string
}

// Date returns the UTC day of the event.
func (e TransactionEvent) Date() Date { return DateOf(e.Timestamp) }

// MarshalJSON writes the event with decimals as strings.
func (e TransactionEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", e.ID)
	w.Append("timestamp", e.Timestamp.Format(TimestampFormat))
	w.Append("kind", e.Kind)
	w.Append("asset", e.Asset)
	w.Append("quantity", e.Quantity)
	if e.HasPrice {
		w.Append("unitPrice", e.UnitPrice)
	}
	w.Optional("fee", e.Fee)
	w.Optional("source", e.Source)
	return w.MarshalJSON()
}

// compareEvents orders events by (timestamp, id).
func compareEvents(a, b TransactionEvent) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// SortEvents sorts events ascending by (timestamp, id). Ties keep their input
// order.
func SortEvents(events []TransactionEvent) {
	slices.SortStableFunc(events, compareEvents)
}

// timestampLayouts are tried in order on non numeric timestamps. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp or an integer number of epoch
// seconds. The result is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

// idNamespace scopes the ids derived for records that come without one.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/etnz/costbasis/transaction"))

// contentKey joins the fields of a record that identify it when it has no id.
func contentKey(raw RawTransaction) string {
	opt := func(s *string) string {
		if s == nil {
			return "\x00"
		}
		return *s
	}
	return strings.Join([]string{
		raw.Timestamp, raw.Kind, raw.Asset, raw.Quantity,
		opt(raw.UnitPrice), opt(raw.Fee), opt(raw.Source),
	}, "\x1f")
}

// deriveID returns a stable id from the content key of a record. n is the
// number of identical id-less records met before it in the same batch.
func deriveID(key string, n int) string {
	if n > 0 {
		key += "\x1f" + strconv.Itoa(n)
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// Normalize validates a raw record into a TransactionEvent.
//
// It fails with a *MalformedTransactionError when the timestamp is missing or
// unreadable, the asset is empty, the kind is unknown, the quantity is not a
// strictly positive decimal, or the price or fee are malformed or negative.
// A record without id gets one derived from its content.
func Normalize(raw RawTransaction) (TransactionEvent, error) {
	return normalize(-1, raw, nil)
}

// normalize validates raw. seen counts the id-less records already met in the
// batch, by content key; it may be nil.
func normalize(index int, raw RawTransaction, seen map[string]int) (TransactionEvent, error) {
	fail := func(field, format string, args ...any) (TransactionEvent, error) {
		return TransactionEvent{}, &MalformedTransactionError{
			Index:  index,
			ID:     raw.ID,
			Field:  field,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	ev := TransactionEvent{ID: strings.TrimSpace(raw.ID)}
	if ev.ID == "" {
		key := contentKey(raw)
		n := 0
		if seen != nil {
			n = seen[key]
			seen[key]++
		}
		ev.ID = deriveID(key, n)
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return fail("timestamp", "%v", err)
	}
	ev.Timestamp = ts

	ev.Asset = strings.ToUpper(strings.TrimSpace(raw.Asset))
	if ev.Asset == "" {
		return fail("asset", "missing asset symbol")
	}

	if ev.Kind, err = ParseKind(raw.Kind); err != nil {
		return fail("kind", "%v", err)
	}

	if strings.TrimSpace(raw.Quantity) == "" {
		return fail("quantity", "missing quantity")
	}
	if ev.Quantity, err = ParseQuantity(raw.Quantity); err != nil {
		return fail("quantity", "%v", err)
	}
	if !ev.Quantity.IsPositive() {
		return fail("quantity", "quantity must be positive, got %s", ev.Quantity)
	}

	if raw.UnitPrice != nil && strings.TrimSpace(*raw.UnitPrice) != "" {
		if ev.UnitPrice, err = ParseMoney(*raw.UnitPrice); err != nil {
			return fail("unitPrice", "%v", err)
		}
		if ev.UnitPrice.IsNegative() {
			return fail("unitPrice", "unit price cannot be negative, got %s", ev.UnitPrice)
		}
		ev.HasPrice = true
	}

	if raw.Fee != nil && strings.TrimSpace(*raw.Fee) != "" {
		if ev.Fee, err = ParseMoney(*raw.Fee); err != nil {
			return fail("fee", "%v", err)
		}
		if ev.Fee.IsNegative() {
			return fail("fee", "fee cannot be negative, got %s", ev.Fee)
		}
	}

	if raw.Source != nil {
		ev.Source = strings.TrimSpace(*raw.Source)
	}
	return ev, nil
}

// BatchPolicy decides what NormalizeAll does with a malformed record.
type BatchPolicy int

const (
	// SkipMalformed reports malformed records and keeps the valid ones.
	SkipMalformed BatchPolicy = iota
	// RejectBatch fails the whole batch on the first malformed record.
	RejectBatch
)

func (p BatchPolicy) String() string {
	switch p {
	case SkipMalformed:
		return "skip"
	case RejectBatch:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseBatchPolicy parses "skip" or "reject".
func ParseBatchPolicy(s string) (BatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip":
		return SkipMalformed, nil
	case "reject":
		return RejectBatch, nil
	default:
		return SkipMalformed, fmt.Errorf("unknown batch policy %q (want skip or reject)", s)
	}
}

// NormalizeAll normalizes a batch of raw records and returns the events sorted
// by (timestamp, id).
//
// With SkipMalformed, malformed records are returned in rejected, in input
// order, and err is nil. With RejectBatch, the first malformed record is
// returned as err and no events are returned.
func NormalizeAll(raws []RawTransaction, policy BatchPolicy) (events []TransactionEvent, rejected []*MalformedTransactionError, err error) {
	events = make([]TransactionEvent, 0, len(raws))
	seen := make(map[string]int)
	for i, raw := range raws {
		ev, err := normalize(i, raw, seen)
		if err != nil {
			merr := err.(*MalformedTransactionError)
			if policy == RejectBatch {
				return nil, nil, merr
			}
			rejected = append(rejected, merr)
			continue
		}
		events = append(events, ev)
	}
	SortEvents(events)
	return events, rejected, nil
}
