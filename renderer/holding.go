package renderer

import "github.com/etnz/costbasis"

// SnapshotMarkdown renders the holdings of a snapshot.
func SnapshotMarkdown(s *costbasis.PortfolioSnapshot, opts Options) string {
	partials := map[string]string{
		"holdings": "holdings.md",
	}
	return renderTemplate("snapshot", "snapshot.md", partials, opts, s)
}
