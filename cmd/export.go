package cmd

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
)

// exportCmd holds the flags for the 'export' subcommand.
type exportCmd struct {
	input  inputFlags
	engine engineFlags
	window windowFlags
	output string
	jsonl  bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export a gains report as CSV" }
func (*exportCmd) Usage() string {
	return `cbs export [-f <file> | -client <id>] [-period <period>] [-s <date>] [-d <date>] [-method <method>] [-o <file>]
cbs export -jsonl [-f <file> | -client <id>] [-o <file>]

  Writes the disposals and holdings of a gains report as CSV.

  With -jsonl, writes the normalized transactions instead, one JSON object per
  line in replay order. The output can be read back with -f.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.input.register(f)
	c.engine.register(f)
	c.window.register(f)
	f.StringVar(&c.output, "o", "", "Output file, defaults to stdout")
	f.BoolVar(&c.jsonl, "jsonl", false, "Write the normalized transactions as JSON lines")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	var w io.Writer = os.Stdout
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			return failure("Error creating %q: %v", c.output, err)
		}
		defer file.Close()
		w = file
	}
	if c.jsonl {
		if err := costbasis.EncodeJSONL(w, events); err != nil {
			return failure("Error writing transactions: %v", err)
		}
		return subcommands.ExitSuccess
	}

	window, err := c.window.window(events)
	if err != nil {
		return usage("Error parsing period: %v", err)
	}
	res, err := engine.ComputeGainsLosses(events, window)
	if err != nil {
		return failure("Error calculating gains: %v", err)
	}
	if err := costbasis.ExportCSV(w, res); err != nil {
		return failure("Error writing CSV: %v", err)
	}
	return subcommands.ExitSuccess
}
