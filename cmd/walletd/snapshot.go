package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"wallet-ledger-go/internal/container"
	"wallet-ledger-go/portfolio"
)

type snapshotCmd struct {
	config  string
	offline bool
	asJSON  bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "fetch holdings once and print the portfolio snapshot" }
func (*snapshotCmd) Usage() string {
	return `walletd snapshot -config <path> [-offline] [-json]

  Fetches holdings once, seeds the ledger 30/70 and prints totals,
  per-account values and the per-asset allocation.
`
}

func (s *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.config, "config", "configs/config.yaml", "path to config yaml")
	f.BoolVar(&s.offline, "offline", false, "use the fixed prices from portfolio.offline instead of the market source")
	f.BoolVar(&s.asJSON, "json", false, "print the snapshot as JSON")
}

func (s *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c, err := container.New(s.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	c.Offline = s.offline
	// Build 中途失败时已打开的流水库也要关闭
	defer c.Close()
	if err := c.Build(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	snap, err := c.Service().Refresh(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if s.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	if err := renderSnapshot(os.Stdout, snap); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func renderSnapshot(w io.Writer, snap portfolio.Snapshot) error {
	fmt.Fprintf(w, "Total     %s\n", portfolio.FormatUSD(snap.TotalValueUSD))
	fmt.Fprintf(w, "Funding   %s\n", portfolio.FormatUSD(snap.FundingValueUSD))
	fmt.Fprintf(w, "Trading   %s\n", portfolio.FormatUSD(snap.TradingValueUSD))
	fmt.Fprintf(w, "Daily P&L %s (%s)\n\n", portfolio.FormatUSD(snap.PnLValueUSD), portfolio.FormatPercent(snap.PnLPercent))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Symbol\tPrice\tQuantity\tValue\tFunding\tTrading\t")
	for _, h := range snap.Holdings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			h.Symbol,
			portfolio.FormatUSD(h.PriceUSD),
			h.Quantity.String(),
			portfolio.FormatUSD(h.ValueUSD),
			h.FundingQuantity.String(),
			h.TradingQuantity.String(),
		)
	}
	return tw.Flush()
}
