package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger-go/config"
	"wallet-ledger-go/infrastructure/logger"
	"wallet-ledger-go/journal"
)

func offlineConfig() config.AppConfig {
	return config.AppConfig{
		Env: "test",
		Log: logger.Config{Level: "error"},
		Portfolio: config.PortfolioConfig{
			Timezone: "UTC",
			Offline: []config.OfflineAsset{
				{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Quantity: "1", PriceUSD: "50000"},
			},
		},
		HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
}

func TestLifecycleRunAllStopsOnError(t *testing.T) {
	m := NewLifecycleManager(nil)
	boom := errors.New("boom")
	stopped := make(chan struct{})
	m.Register(componentFunc{name: "blocker", run: func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}})
	m.Register(componentFunc{name: "failing", run: func(ctx context.Context) error { return boom }})

	err := m.RunAll(context.Background())
	assert.ErrorIs(t, err, boom)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("blocker should be cancelled")
	}
	assert.Equal(t, []string{"blocker", "failing"}, m.Names())
}

func TestLifecycleRunAllIgnoresCancel(t *testing.T) {
	m := NewLifecycleManager(nil)
	m.Register(componentFunc{name: "a", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, m.RunAll(ctx))
}

func TestContainerOfflineRun(t *testing.T) {
	c := NewWithConfig(offlineConfig(), "")
	c.Offline = true
	require.NoError(t, c.Build())
	defer c.Close()

	assert.Equal(t, []string{"poller", "http_server"}, c.Components())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return c.Service().Ledger().Initialized()
	}, 2*time.Second, 10*time.Millisecond)
	snap := c.Service().Snapshot()
	assert.Equal(t, "50000", snap.TotalValueUSD.String())
	assert.Equal(t, "15000", snap.FundingValueUSD.String())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("container did not stop")
	}
}

func TestContainerBadOfflineAsset(t *testing.T) {
	cfg := offlineConfig()
	cfg.Portfolio.Offline[0].PriceUSD = "n/a"
	c := NewWithConfig(cfg, "")
	c.Offline = true
	assert.Error(t, c.Build())
}

func TestContainerSQLiteJournal(t *testing.T) {
	cfg := offlineConfig()
	cfg.Journal = config.JournalConfig{Driver: config.JournalSQLite, Path: filepath.Join(t.TempDir(), "journal.db")}
	c := NewWithConfig(cfg, "")
	c.Offline = true
	require.NoError(t, c.Build())
	require.NoError(t, c.Close())
}

func TestContainerCloseAfterFailedBuild(t *testing.T) {
	cfg := offlineConfig()
	cfg.Portfolio.Offline[0].PriceUSD = "n/a"
	cfg.Journal = config.JournalConfig{Driver: config.JournalSQLite, Path: filepath.Join(t.TempDir(), "journal.db")}
	c := NewWithConfig(cfg, "")
	c.Offline = true
	require.Error(t, c.Build())
	require.NotNil(t, c.journal)

	require.NoError(t, c.Close())
	_, err := c.journal.List(context.Background(), 1)
	assert.ErrorIs(t, err, journal.ErrClosed)
	assert.NoError(t, c.Close())
}

func TestContainerCloseBeforeBuild(t *testing.T) {
	c := NewWithConfig(offlineConfig(), "")
	assert.NoError(t, c.Close())
}

func TestApplyConfigUpdatesLevelAndInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: test\n"), 0o644))

	c := NewWithConfig(offlineConfig(), path)
	c.Offline = true
	require.NoError(t, c.Build())
	defer c.Close()
	assert.Contains(t, c.Components(), "config_watcher")

	next := c.Config()
	next.Log.Level = "debug"
	next.Source.PollInterval = 42 * time.Second
	c.applyConfig(next)

	assert.Equal(t, "debug", c.Logger().Level())
	assert.Equal(t, 42*time.Second, c.Service().PollInterval())
}
