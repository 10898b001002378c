package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	input  inputFlags
	engine engineFlags
	window windowFlags
	by     string
	format string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized gains and losses over a period" }
func (*gainsCmd) Usage() string {
	return `cbs gains [-f <file> | -client <id>] [-period <period>] [-s <date>] [-d <date>] [-method <method>] [-by <period>] [-format md|json|html]

  Replays the transactions and reports the disposals of the period, their
  realized gains or losses, and the holdings left at the end of the period.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	c.input.register(f)
	c.engine.register(f)
	c.window.register(f)
	f.StringVar(&c.by, "by", "", "Split the period in sub-periods (day, week, month, quarter, year)")
	f.StringVar(&c.format, "format", "md", "Output format: md, json or html")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := setup()
	if err != nil {
		return failure("Error loading configuration: %v", err)
	}
	engine, err := c.engine.engine(cfg)
	if err != nil {
		return usage("Error parsing engine flags: %v", err)
	}
	events, err := c.input.events(ctx, cfg)
	if err != nil {
		return failure("Error loading transactions: %v", err)
	}
	window, err := c.window.window(events)
	if err != nil {
		return usage("Error parsing period: %v", err)
	}

	windows, err := splitWindow(window, c.by)
	if err != nil {
		return usage("Error parsing -by: %v", err)
	}

	var results []*costbasis.GainsLossesResult
	var md []string
	opts := renderer.Options{Currency: cfg.Currency}
	for _, w := range windows {
		res, err := engine.ComputeGainsLosses(events, w)
		if err != nil {
			return failure("Error calculating gains: %v", err)
		}
		results = append(results, res)
		md = append(md, renderer.GainsMarkdown(res, opts))
	}

	var data any = results
	if c.by == "" {
		data = results[0]
	}
	if err := printReport(c.format, strings.Join(md, "\n"), data); err != nil {
		return failure("Error printing report: %v", err)
	}
	return subcommands.ExitSuccess
}

// splitWindow cuts window into one range per period named by, each clamped to
// window. An empty by keeps the window whole.
func splitWindow(window costbasis.Range, by string) ([]costbasis.Range, error) {
	if by == "" {
		return []costbasis.Range{window}, nil
	}
	p, err := costbasis.ParsePeriod(by)
	if err != nil {
		return nil, err
	}
	if window.From.IsZero() || window.To.IsZero() {
		return nil, errors.New("-by needs a bounded period")
	}
	var windows []costbasis.Range
	for w := range window.Split(p) {
		windows = append(windows, w)
	}
	return windows, nil
}
