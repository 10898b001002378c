package cmd

import (
	"context"
	"flag"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/etnz/costbasis/store"
	"github.com/google/subcommands"
)

// snapshotCmd holds the flags for the 'snapshot' subcommand.
type snapshotCmd struct {
	input  inputFlags
	engine engineFlags
	date   string
	save   bool
	format string
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "holdings and cost basis on a date" }
func (*snapshotCmd) Usage() string {
	return `cbs snapshot [-f <file> | -client <id> [-save]] [-d <date>] [-method <method>] [-format md|json|html]

  Replays the transactions up to the end of the date and reports the open
  holdings, their lots and cost basis.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	c.input.register(f)
	c.engine.register(f)
	f.StringVar(&c.date, "d", "", "Date of the snapshot, defaults to the last transaction")
	f.BoolVar(&c.save, "save", false, "Store the snapshot in the database (with -client)")
	f.StringVar(&c.format, "format", "md", "Output format: md, json or html")
}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.save && c.input.client == "" {
		return usage("-save needs -client")
	}
	cfg, err := setup()
	if err != nil {
		return failure("Error loading configuration: %v", err)
	}
	engine, err := c.engine.engine(cfg)
	if err != nil {
		return usage("Error parsing engine flags: %v", err)
	}
	var on costbasis.Date
	if c.date != "" {
		if on, err = costbasis.ParseDate(c.date); err != nil {
			return usage("Error parsing date: %v", err)
		}
	}
	events, err := c.input.events(ctx, cfg)
	if err != nil {
		return failure("Error loading transactions: %v", err)
	}

	snap, err := engine.SnapshotAt(events, on)
	if err != nil {
		return failure("Error computing snapshot: %v", err)
	}

	if c.save {
		st, err := store.Open(ctx, cfg.Database.Path)
		if err != nil {
			return failure("Error opening database: %v", err)
		}
		defer st.Close()
		if err := st.SaveSnapshot(ctx, c.input.client, snap); err != nil {
			return failure("Error saving snapshot: %v", err)
		}
	}

	md := renderer.SnapshotMarkdown(snap, renderer.Options{Currency: cfg.Currency})
	if err := printReport(c.format, md, snap); err != nil {
		return failure("Error printing report: %v", err)
	}
	return subcommands.ExitSuccess
}
