package renderer

import "github.com/etnz/costbasis"

// clientsReport is the view of ClientsMarkdown.
type clientsReport struct {
	Period  costbasis.Range
	Method  costbasis.CostBasisMethod
	Clients []costbasis.ClientResult
}

// ClientsMarkdown renders one summary line per client of a batch replay. All
// results are expected to share the window and method.
func ClientsMarkdown(results []costbasis.ClientResult, window costbasis.Range, method costbasis.CostBasisMethod, opts Options) string {
	return renderTemplate("clients", "clients.md", nil, opts, clientsReport{Period: window, Method: method, Clients: results})
}
