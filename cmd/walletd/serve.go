package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/subcommands"
	"go.uber.org/zap"

	"wallet-ledger-go/internal/container"
)

type serveCmd struct {
	config string
}

func (*serveCmd) Name() string { return "serve" }
func (*serveCmd) Synopsis() string {
	return "run the wallet service (poller, HTTP API, config watcher)"
}
func (*serveCmd) Usage() string {
	return `walletd serve -config <path>

  Polls the market source, keeps the funding/trading ledger and serves the
  HTTP API until SIGINT/SIGTERM.
`
}

func (s *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.config, "config", "configs/config.yaml", "path to config yaml")
}

func (s *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c, err := container.New(s.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	// Build 中途失败时已打开的流水库也要关闭
	defer c.Close()
	if err := c.Build(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 非 systemd 环境下 SdNotify 返回 (false, nil)
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		c.Logger().Warn("sd_notify_failed", zap.Error(err))
	} else if ok {
		c.Logger().Info("sd_notify_ready")
	}

	runErr := c.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if runErr != nil {
		c.Logger().Error("walletd exited", zap.Error(runErr))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
