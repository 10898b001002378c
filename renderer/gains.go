package renderer

import "github.com/etnz/costbasis"

// GainsMarkdown renders a gains and losses report.
func GainsMarkdown(r *costbasis.GainsLossesResult, opts Options) string {
	partials := map[string]string{
		"gains_title":     "gains_title.md",
		"gains_totals":    "gains_totals.md",
		"gains_disposals": "gains_disposals.md",
		"holdings":        "holdings.md",
	}
	return renderTemplate("gains", "gains.md", partials, opts, r)
}
