package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/store"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	input inputFlags
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions into the database" }
func (*importCmd) Usage() string {
	return `cbs import -client <id> -f <file> [-jsonpath <mapping>] [-malformed skip|reject]

  Appends the transactions of the file to the history of the client. Records
  already imported, based on their id, are ignored.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	c.input.register(f)
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.input.client == "" || c.input.file == "" {
		return usage("import needs -client and -f")
	}
	policy, err := costbasis.ParseBatchPolicy(c.input.malformed)
	if err != nil {
		return usage("Error parsing -malformed: %v", err)
	}
	cfg, err := setup()
	if err != nil {
		return failure("Error loading configuration: %v", err)
	}
	raws, err := c.input.raws()
	if err != nil {
		return failure("Error reading %q: %v", c.input.file, err)
	}

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return failure("Error opening database: %v", err)
	}
	defer st.Close()

	res, err := st.ImportRaw(ctx, c.input.client, raws, policy)
	if err != nil {
		return failure("Error importing transactions: %v", err)
	}
	for _, r := range res.Rejected {
		fmt.Printf("skipped %v\n", r)
	}
	fmt.Printf("imported %d transactions for %s (%d duplicates, %d skipped)\n", res.Imported, c.input.client, res.Duplicates, len(res.Rejected))
	return subcommands.ExitSuccess
}
