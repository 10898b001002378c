package costbasis

import (
	"encoding/csv"
	"fmt"
	"io"
)

var (
	disposalsHeader = []string{"date", "asset", "quantityDisposed", "proceeds", "costBasisConsumed", "realizedGainLoss"}
	holdingsHeader  = []string{"asset", "amount", "costBasis"}
)

// ExportCSV writes the result as two CSV sections: one row per disposal
// under "# disposals", then a blank line, then one row per holding under
// "# holdings". An empty result writes the section headers only.
func ExportCSV(w io.Writer, r *GainsLossesResult) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{"# disposals"}, disposalsHeader}
	for _, d := range r.Disposals {
		rows = append(rows, []string{
			DateOf(d.Date).String(),
			d.Asset,
			d.QuantityDisposed.String(),
			d.Proceeds.String(),
			d.CostBasisConsumed.String(),
			d.RealizedGainLoss.String(),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing disposals: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	rows = [][]string{{"# holdings"}, holdingsHeader}
	for _, h := range r.Holdings {
		rows = append(rows, []string{h.Asset, h.TotalAmount.String(), h.TotalCostBasis.String()})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing holdings: %w", err)
	}
	return nil
}
