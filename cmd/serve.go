package cmd

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/costbasis/logger"
	"github.com/etnz/costbasis/server"
	"github.com/etnz/costbasis/store"
	"github.com/google/subcommands"
)

// serveCmd holds the flags for the 'serve' subcommand.
type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve reports over HTTP" }
func (*serveCmd) Usage() string {
	return `cbs serve [-addr <host:port>]

  Serves the gains and snapshot API for the clients in the database until
  interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address, defaults to CBS_ADDR")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := setup()
	if err != nil {
		return failure("Error loading configuration: %v", err)
	}
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return failure("Error opening database: %v", err)
	}
	defer st.Close()
	logger.L.Info("connected to database", "path", cfg.Database.Path)

	if err := server.New(cfg, st, logger.L).Run(ctx); err != nil {
		return failure("Error serving: %v", err)
	}
	return subcommands.ExitSuccess
}
