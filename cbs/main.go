// Command cbs computes cost basis, realized gains and holdings from
// transaction histories.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/cmd"
	"github.com/etnz/costbasis/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	// exits when invoked by the shell for completion.
	completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	if sub := flag.Arg(0); sub != "" && !builtin(sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// builtin reports whether name is a registered subcommand.
func builtin(name string) bool {
	switch name {
	case "help", "flags", "commands":
		return true
	}
	for _, c := range cmd.Commands {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// completion describes the subcommands and their flags for shell completion.
func completion() *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flagPredictors(flag.CommandLine),
	}
	for _, c := range cmd.Commands {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: flagPredictors(fs)}
		if c.Name() == "topic" {
			if topics, err := docs.GetAllTopics(); err == nil {
				sub.Args = predict.Set(topics)
			}
		}
		root.Sub[c.Name()] = sub
	}
	return root
}

// flagPredictors predicts flag values from their names.
func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) {
		switch f.Name {
		case "f", "o", "db":
			flags[f.Name] = predict.Files("*")
		case "method":
			flags[f.Name] = predict.Set{"FIFO", "LIFO", "AVERAGE_COST"}
		case "oversell":
			flags[f.Name] = predict.Set{"reject", "zero-cost"}
		case "malformed":
			flags[f.Name] = predict.Set{"skip", "reject"}
		case "format":
			flags[f.Name] = predict.Set{"md", "json", "html"}
		case "period", "by":
			flags[f.Name] = predict.Set(costbasis.PeriodNames())
		default:
			if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
				flags[f.Name] = predict.Nothing
			} else {
				flags[f.Name] = predict.Something
			}
		}
	})
	return flags
}
