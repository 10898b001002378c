package costbasis

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// JSONPathMapping extracts raw transactions from an arbitrary JSON document,
// such as an exchange export.
//
// Records selects the list of transaction objects in the document ("$" when
// empty, the document must then be a list). Fields maps each RawTransaction
// field name (id, timestamp, kind, asset, quantity, unitPrice, fee, source)
// to an expression evaluated on one record, like "$.executedQty".
type JSONPathMapping struct {
	Records string
	Fields  map[string]string
}

// rawFields lists the RawTransaction fields, in declaration order.
var rawFields = []string{"id", "timestamp", "kind", "asset", "quantity", "unitPrice", "fee", "source"}

// ParseJSONPathMapping parses a mapping written as semicolon separated
// name=expression pairs, where "records" is the record list expression:
//
//	records=$.data.trades;timestamp=$.time;kind=$.side;asset=$.symbol;quantity=$.qty
func ParseJSONPathMapping(s string) (JSONPathMapping, error) {
	m := JSONPathMapping{Fields: make(map[string]string)}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, expr, ok := strings.Cut(pair, "=")
		name, expr = strings.TrimSpace(name), strings.TrimSpace(expr)
		if !ok || expr == "" {
			return m, fmt.Errorf("invalid mapping %q, want name=expression", pair)
		}
		if name == "records" {
			m.Records = expr
			continue
		}
		if !slices.Contains(rawFields, name) {
			return m, fmt.Errorf("invalid mapping %q: unknown field %q", pair, name)
		}
		m.Fields[name] = expr
	}
	return m, m.Validate()
}

// Validate checks that the mandatory fields are mapped.
func (m JSONPathMapping) Validate() error {
	for _, required := range []string{"timestamp", "kind", "asset", "quantity"} {
		if _, ok := m.Fields[required]; !ok {
			return fmt.Errorf("jsonpath mapping: field %q is not mapped", required)
		}
	}
	return nil
}

// DecodeJSONDocument reads one JSON document and extracts raw transactions
// with the mapping. Numbers are kept as their literal text. A field whose
// expression selects nothing is absent.
func DecodeJSONDocument(r io.Reader, m JSONPathMapping) ([]RawTransaction, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("cannot decode json document: %w", err)
	}

	root := m.Records
	if root == "" {
		root = "$"
	}
	selected, err := jsonpath.Get(root, doc)
	if err != nil {
		return nil, fmt.Errorf("records %q: %w", root, err)
	}
	records, ok := selected.([]any)
	if !ok {
		return nil, fmt.Errorf("records %q: want a list, got %T", root, selected)
	}

	raws := make([]RawTransaction, 0, len(records))
	for i, record := range records {
		values := make(map[string]*string, len(m.Fields))
		for name, expr := range m.Fields {
			v, err := jsonpathText(expr, record)
			if err != nil {
				return nil, fmt.Errorf("record %d: field %s: %w", i, name, err)
			}
			values[name] = v
		}
		text := func(name string) string {
			if v := values[name]; v != nil {
				return *v
			}
			return ""
		}
		raws = append(raws, RawTransaction{
			ID:        text("id"),
			Timestamp: text("timestamp"),
			Kind:      text("kind"),
			Asset:     text("asset"),
			Quantity:  text("quantity"),
			UnitPrice: values["unitPrice"],
			Fee:       values["fee"],
			Source:    values["source"],
		})
	}
	return raws, nil
}

// jsonpathText evaluates expr on v and returns its value as text.
func jsonpathText(expr string, v any) (*string, error) {
	val, err := jsonpath.Get(expr, v)
	if err != nil {
		// unknown keys are absent values.
		return nil, nil
	}
	// jsonpath returns a list for wildcards and filters, keep the first match.
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return nil, nil
		}
		val = list[0]
	}
	var s string
	switch t := val.(type) {
	case nil:
		return nil, nil
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil, fmt.Errorf("%q selects a %T, want a string or a number", expr, val)
	}
	return &s, nil
}
