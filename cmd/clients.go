package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/etnz/costbasis/store"
	"github.com/google/subcommands"
)

type clientsCmd struct {
	gains  bool
	engine engineFlags
	window windowFlags
	format string
}

func (*clientsCmd) Name() string     { return "clients" }
func (*clientsCmd) Synopsis() string { return "list the clients in the database" }
func (*clientsCmd) Usage() string {
	return `cbs clients [-gains [-period <period>] [-s <date>] [-d <date>] [-method <method>] [-format md|json|html]]

  Lists the clients with at least one imported transaction.

  With -gains, replays every client in parallel (CBS_WORKERS at a time) and
  prints their realized gains over the period. Without dates, each client is
  reported over its whole history.
`
}

func (c *clientsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.gains, "gains", false, "Report the realized gains of each client")
	c.engine.register(f)
	c.window.register(f)
	f.StringVar(&c.format, "format", "md", "Output format of -gains: md, json or html")
}

func (c *clientsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := setup()
	if err != nil {
		return failure("Error loading configuration: %v", err)
	}
	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return failure("Error opening database: %v", err)
	}
	defer st.Close()

	clients, err := st.Clients(ctx)
	if err != nil {
		return failure("Error listing clients: %v", err)
	}
	if !c.gains {
		for _, c := range clients {
			fmt.Println(c)
		}
		return subcommands.ExitSuccess
	}

	engine, err := c.engine.engine(cfg)
	if err != nil {
		return usage("Error parsing engine flags: %v", err)
	}
	// no events: open boundaries stay open and each replay resolves its own.
	window, err := c.window.window(nil)
	if err != nil {
		return usage("Error parsing period: %v", err)
	}

	batches := make(map[string][]costbasis.TransactionEvent, len(clients))
	for _, client := range clients {
		events, err := st.Transactions(ctx, client)
		if err != nil {
			return failure("Error loading transactions of %q: %v", client, err)
		}
		batches[client] = events
	}
	// failed clients are left out of the report and reported after it.
	results, replayErr := engine.ReplayBatch(ctx, batches, window, cfg.Workers)

	md := renderer.ClientsMarkdown(results, window, engine.Method, renderer.Options{Currency: cfg.Currency})
	if err := printReport(c.format, md, results); err != nil {
		return failure("Error printing report: %v", err)
	}
	if replayErr != nil {
		return failure("Error calculating gains: %v", replayErr)
	}
	return subcommands.ExitSuccess
}
