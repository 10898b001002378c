// Package cmd implements the cbs command line tool.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/config"
	"github.com/etnz/costbasis/logger"
	"github.com/etnz/costbasis/store"
	"github.com/google/subcommands"
)

// Commands lists the subcommands of cbs.
var Commands = []subcommands.Command{
	&gainsCmd{},
	&snapshotCmd{},
	&exportCmd{},
	&importCmd{},
	&clientsCmd{},
	&serveCmd{},
	&topicCmd{},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&gainsCmd{}, "reports")
	c.Register(&snapshotCmd{}, "reports")
	c.Register(&exportCmd{}, "reports")

	c.Register(&importCmd{}, "store")
	c.Register(&clientsCmd{}, "store")
	c.Register(&serveCmd{}, "store")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbPath = flag.String("db", "", "Path to the SQLite database, overrides CBS_DB_PATH")
var currency = flag.String("currency", "", "ISO currency used to display amounts, overrides CBS_CURRENCY")

// Verbose logs the engine decisions.
var Verbose = flag.Bool("v", false, "Log skipped events and zero cost shorts")

// setup loads the configuration, applies the global flags and initializes
// the logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *currency != "" {
		cfg.Currency = *currency
	}
	if *Verbose {
		cfg.Log.Level = "debug"
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// engineFlags overrides the configured accounting settings.
type engineFlags struct {
	method         string
	oversell       string
	classification string
}

func (e *engineFlags) register(f *flag.FlagSet) {
	f.StringVar(&e.method, "method", "", "Cost basis method (FIFO, LIFO, AVERAGE_COST), defaults to CBS_METHOD")
	f.StringVar(&e.oversell, "oversell", "", "Disposals above holdings: reject or zero-cost, defaults to CBS_OVERSELL")
	f.StringVar(&e.classification, "classification", "", "Treatment overrides like TRANSFER=dispose,FEE=ignore")
}

// engine returns the configured engine with the flags applied.
func (e *engineFlags) engine(cfg *config.Config) (*costbasis.Engine, error) {
	eng := cfg.NewEngine(logger.L)
	if e.method != "" {
		m, err := costbasis.ParseCostBasisMethod(e.method)
		if err != nil {
			return nil, err
		}
		eng.Method = m
	}
	if e.oversell != "" {
		p, err := costbasis.ParseOversellPolicy(e.oversell)
		if err != nil {
			return nil, err
		}
		eng.Oversell = p
	}
	if e.classification != "" {
		c, err := costbasis.ParseClassification(e.classification)
		if err != nil {
			return nil, err
		}
		eng.Classification = c
	}
	return eng, nil
}

// inputFlags selects the transactions a command works on: a file, or the
// history of a client in the database.
type inputFlags struct {
	file      string
	jsonpath  string
	client    string
	malformed string
}

func (in *inputFlags) register(f *flag.FlagSet) {
	f.StringVar(&in.file, "f", "", "Transactions file (.jsonl, .csv or .json), - for JSON lines on stdin")
	f.StringVar(&in.jsonpath, "jsonpath", "", "Mapping for .json documents, like records=$.data[*];timestamp=$.time;...")
	f.StringVar(&in.client, "client", "", "Use the history of this client in the database")
	f.StringVar(&in.malformed, "malformed", "skip", "Malformed records: skip them, or reject the whole file")
}

// raws reads the raw records of the input file.
func (in *inputFlags) raws() ([]costbasis.RawTransaction, error) {
	if in.file == "" {
		return nil, errors.New("no input: use -f <file> or -client <id>")
	}
	if in.file == "-" {
		return costbasis.DecodeJSONL(os.Stdin)
	}
	f, err := os.Open(in.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if in.jsonpath != "" {
		m, err := costbasis.ParseJSONPathMapping(in.jsonpath)
		if err != nil {
			return nil, err
		}
		return costbasis.DecodeJSONDocument(f, m)
	}
	switch strings.ToLower(filepath.Ext(in.file)) {
	case ".csv":
		return costbasis.DecodeCSV(f)
	case ".json":
		return nil, fmt.Errorf("%s: a .json document needs a -jsonpath mapping", in.file)
	default:
		return costbasis.DecodeJSONL(f)
	}
}

// events loads and normalizes the input. Skipped records are reported on
// stderr.
func (in *inputFlags) events(ctx context.Context, cfg *config.Config) ([]costbasis.TransactionEvent, error) {
	if in.client != "" {
		if in.file != "" {
			return nil, errors.New("-f and -client cannot be used together")
		}
		st, err := store.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		return st.Transactions(ctx, in.client)
	}

	policy, err := costbasis.ParseBatchPolicy(in.malformed)
	if err != nil {
		return nil, err
	}
	raws, err := in.raws()
	if err != nil {
		return nil, err
	}
	events, rejected, err := costbasis.NormalizeAll(raws, policy)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		fmt.Fprintf(os.Stderr, "Warning: skipped %v\n", r)
	}
	return events, nil
}

// windowFlags selects a reporting window.
type windowFlags struct {
	period string
	start  string
	end    string
}

func (w *windowFlags) register(f *flag.FlagSet) {
	f.StringVar(&w.period, "period", "", "Predefined period containing the end date (day, week, month, quarter, year)")
	f.StringVar(&w.start, "s", "", "Start date of the reporting period, defaults to the first transaction")
	f.StringVar(&w.end, "d", "", "End date of the reporting period, defaults to the last transaction")
}

// window returns the reporting window. Open boundaries are resolved to the
// span of events.
func (w *windowFlags) window(events []costbasis.TransactionEvent) (costbasis.Range, error) {
	if w.start != "" && w.period != "" {
		return costbasis.Range{}, errors.New("-s and -period flags cannot be used together")
	}
	first, last := span(events)

	end := last
	if w.end != "" {
		d, err := costbasis.ParseDate(w.end)
		if err != nil {
			return costbasis.Range{}, fmt.Errorf("parsing end date: %w", err)
		}
		end = d
	}

	if w.period != "" {
		p, err := costbasis.ParsePeriod(w.period)
		if err != nil {
			return costbasis.Range{}, err
		}
		if end.IsZero() {
			return costbasis.Range{}, errors.New("-period needs an end date or at least one transaction")
		}
		return p.Range(end), nil
	}

	start := first
	if w.start != "" {
		d, err := costbasis.ParseDate(w.start)
		if err != nil {
			return costbasis.Range{}, fmt.Errorf("parsing start date: %w", err)
		}
		start = d
	}
	r := costbasis.Range{From: start, To: end}
	return r, r.Validate()
}

// span returns the days of the first and last events.
func span(events []costbasis.TransactionEvent) (first, last costbasis.Date) {
	for i, ev := range events {
		d := ev.Date()
		if i == 0 || d.Before(first) {
			first = d
		}
		if i == 0 || d.After(last) {
			last = d
		}
	}
	return first, last
}

// usage reports a usage error.
func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}

// failure reports an execution error.
func failure(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
