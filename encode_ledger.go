package costbasis

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DecodeJSONL reads raw transactions from a stream of JSONL data, one JSON
// object per line. Blank lines are skipped.
func DecodeJSONL(r io.Reader) ([]RawTransaction, error) {
	var raws []RawTransaction
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(strings.TrimSpace(string(lineBytes))) == 0 {
			continue
		}
		var raw RawTransaction
		if err := json.Unmarshal(lineBytes, &raw); err != nil {
			return nil, fmt.Errorf("line %d: cannot decode transaction %q: %w", line, string(lineBytes), err)
		}
		raws = append(raws, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return raws, nil
}

// EncodeJSONL writes events as JSONL, one event per line, in (timestamp, id)
// order. The output decodes back with DecodeJSONL.
func EncodeJSONL(w io.Writer, events []TransactionEvent) error {
	sorted := append([]TransactionEvent(nil), events...)
	SortEvents(sorted)
	bw := bufio.NewWriter(w)
	for _, ev := range sorted {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("cannot encode transaction %q: %w", ev.ID, err)
		}
		bw.Write(b)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// csvColumns maps the accepted header names, lower-cased, to their field.
var csvColumns = map[string]string{
	"id":         "id",
	"txid":       "id",
	"timestamp":  "timestamp",
	"date":       "timestamp",
	"time":       "timestamp",
	"kind":       "kind",
	"type":       "kind",
	"asset":      "asset",
	"symbol":     "asset",
	"quantity":   "quantity",
	"amount":     "quantity",
	"unitprice":  "unitPrice",
	"unit_price": "unitPrice",
	"price":      "unitPrice",
	"fee":        "fee",
	"fees":       "fee",
	"source":     "source",
	"exchange":   "source",
}

// DecodeCSV reads raw transactions from CSV data with a header row. Header
// names are matched case-insensitively and unknown columns are ignored. Empty
// cells of nullable columns are absent values.
func DecodeCSV(r io.Reader) ([]RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read csv header: %w", err)
	}
	columns := make(map[string]int)
	for i, name := range header {
		field, ok := csvColumns[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := columns[field]; dup {
			return nil, fmt.Errorf("csv header: column %q given twice", field)
		}
		columns[field] = i
	}
	for _, required := range []string{"timestamp", "kind", "asset", "quantity"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("csv header: missing column %q", required)
		}
	}

	cell := func(record []string, field string) (string, bool) {
		i, ok := columns[field]
		if !ok || i >= len(record) {
			return "", false
		}
		v := strings.TrimSpace(record[i])
		return v, v != ""
	}
	optional := func(record []string, field string) *string {
		if v, ok := cell(record, field); ok {
			return &v
		}
		return nil
	}

	var raws []RawTransaction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read csv: %w", err)
		}
		var raw RawTransaction
		raw.ID, _ = cell(record, "id")
		raw.Timestamp, _ = cell(record, "timestamp")
		raw.Kind, _ = cell(record, "kind")
		raw.Asset, _ = cell(record, "asset")
		raw.Quantity, _ = cell(record, "quantity")
		raw.UnitPrice = optional(record, "unitPrice")
		raw.Fee = optional(record, "fee")
		raw.Source = optional(record, "source")
		raws = append(raws, raw)
	}
	return raws, nil
}
