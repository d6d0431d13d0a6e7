package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"wallet-ledger-go/config"
	"wallet-ledger-go/journal"
)

type historyCmd struct {
	config string
	limit  int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list recorded transfers from the sqlite journal" }
func (*historyCmd) Usage() string {
	return `walletd history -config <path> [-n <limit>]

  Prints the most recent transfer attempts, newest first. Requires
  journal.driver: sqlite.
`
}

func (h *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&h.config, "config", "configs/config.yaml", "path to config yaml")
	f.IntVar(&h.limit, "n", journal.DefaultListLimit, "number of records")
}

func (h *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadWithEnvOverrides(h.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if cfg.Journal.Driver != config.JournalSQLite {
		fmt.Fprintln(os.Stderr, "history requires journal.driver: sqlite")
		return subcommands.ExitUsageError
	}
	store, err := journal.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	records, err := store.List(ctx, h.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := renderHistory(os.Stdout, records); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func renderHistory(w io.Writer, records []journal.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSYMBOL\tAMOUNT\tFROM\tTO\tSTATUS\tREASON")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.Symbol, r.Amount.String(), r.From, r.To, r.Status, r.Reason)
	}
	return tw.Flush()
}
