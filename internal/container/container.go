package container

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger-go/asset"
	"wallet-ledger-go/config"
	"wallet-ledger-go/infrastructure/alert"
	"wallet-ledger-go/infrastructure/logger"
	"wallet-ledger-go/infrastructure/monitor"
	"wallet-ledger-go/internal/transport/httpapi"
	"wallet-ledger-go/journal"
	"wallet-ledger-go/ledger"
	"wallet-ledger-go/portfolio"
	"wallet-ledger-go/wallet"
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfg        config.AppConfig
	configPath string

	// Offline 为 true 时使用配置中的固定报价，不访问行情源
	Offline bool

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager
	journal journal.Store

	// 核心服务
	source  asset.Source
	service *wallet.Service

	// HTTP服务器
	httpServer *httpapi.Server

	// 生命周期管理
	lifecycle *LifecycleManager
}

// New 读取配置文件创建Container
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(cfg, configPath), nil
}

// NewWithConfig 使用已加载的配置；configPath 为空时不监听配置变化。
func NewWithConfig(cfg config.AppConfig, configPath string) *Container {
	config.ApplyDefaults(&cfg)
	return &Container{cfg: cfg, configPath: configPath}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	if err := c.buildSource(); err != nil {
		return fmt.Errorf("build source failed: %w", err)
	}
	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}
	if err := c.buildTransport(); err != nil {
		return fmt.Errorf("build transport failed: %w", err)
	}
	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.monitor = monitor.New(c.cfg.Metrics)
	c.alerts = alert.NewManager([]alert.Channel{alert.NewLogChannel("log", c.logger)}, c.cfg.Alert.Throttle)

	switch c.cfg.Journal.Driver {
	case config.JournalSQLite:
		c.journal, err = journal.NewSQLiteStore(c.cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal failed: %w", err)
		}
	default:
		c.journal = journal.NewMemoryStore()
	}
	c.lifecycle = NewLifecycleManager(c.logger)

	c.logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildSource() error {
	if c.Offline {
		assets, err := offlineAssets(c.cfg.Portfolio.Offline)
		if err != nil {
			return err
		}
		c.source = &asset.StaticSource{Assets: assets}
		c.logger.Info(fmt.Sprintf("offline source with %d assets", len(assets)))
		return nil
	}

	holdings, err := c.cfg.Portfolio.HoldingQuantities()
	if err != nil {
		return err
	}
	src := c.cfg.Source
	httpClient := asset.NewDefaultHTTPClient()
	httpClient.Timeout = src.Timeout
	var limiter asset.RateLimiter
	if src.RateLimit > 0 {
		limiter = asset.NewRateLimiter(src.RateLimit, src.Burst)
	}
	c.source = &asset.HoldingsSource{
		Market: &asset.CoinGeckoClient{
			BaseURL:    src.BaseURL,
			APIKey:     src.APIKey,
			HTTPClient: httpClient,
			Limiter:    limiter,
			MaxRetries: src.MaxRetries,
			RetryDelay: src.RetryDelay,
		},
		Holdings: holdings,
	}
	c.logger.Info("source built")
	return nil
}

func (c *Container) buildCoreServices() error {
	loc, err := c.cfg.Portfolio.Location()
	if err != nil {
		return err
	}
	c.service, err = wallet.NewService(wallet.Options{
		Source:       c.source,
		Ledger:       ledger.New(c.logger.LogEvent),
		Aggregator:   portfolio.NewAggregator(loc),
		Journal:      c.journal,
		Logger:       c.logger,
		Monitor:      c.monitor,
		PollInterval: c.cfg.Source.PollInterval,

		Alerts:             c.alerts,
		AlertAfterFailures: c.cfg.Alert.AfterFailures,
	})
	if err != nil {
		return err
	}
	c.logger.Info("core services built")
	return nil
}

func (c *Container) buildTransport() error {
	var err error
	c.httpServer, err = httpapi.NewServer(httpapi.ServerConfig{
		Addr:            c.cfg.HTTP.Addr,
		Service:         c.service,
		Monitor:         c.monitor,
		Logger:          c.logger,
		ShutdownTimeout: c.cfg.HTTP.ShutdownTimeout,
	})
	return err
}

func (c *Container) registerLifecycleComponents() {
	c.lifecycle.Register(componentFunc{name: "poller", run: c.service.Run})
	c.lifecycle.Register(componentFunc{name: "http_server", run: c.httpServer.Start})
	if c.configPath != "" {
		w := &config.Watcher{
			Path:     c.configPath,
			Cooldown: time.Second,
			OnError: func(err error) {
				c.logger.LogError(err, map[string]interface{}{"action": "config_reload"})
			},
		}
		c.lifecycle.Register(componentFunc{
			name: "config_watcher",
			run: func(ctx context.Context) error {
				return w.Start(ctx, c.applyConfig)
			},
		})
	}
}

// applyConfig 热更新：只调整日志级别与轮询间隔，其余字段需要重启生效。
func (c *Container) applyConfig(next config.AppConfig) {
	if err := c.logger.SetLevel(next.Log.Level); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "apply_log_level"})
	}
	if err := c.service.SetPollInterval(next.Source.PollInterval); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "apply_poll_interval"})
	}
	c.logger.LogEvent("config_reload", map[string]interface{}{
		"path":          c.configPath,
		"log_level":     next.Log.Level,
		"poll_interval": next.Source.PollInterval.String(),
	})
}

// Run 运行所有组件直到 ctx 取消或某个组件失败
func (c *Container) Run(ctx context.Context) error {
	c.logger.Info("starting container...")
	err := c.lifecycle.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	c.logger.Info("container stopped")
	return nil
}

// Close 释放流水存储与日志
func (c *Container) Close() error {
	var firstErr error
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			firstErr = err
		}
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}
	return firstErr
}

func (c *Container) Config() config.AppConfig { return c.cfg }

func (c *Container) Service() *wallet.Service { return c.service }

func (c *Container) Logger() *logger.Logger { return c.logger }

func (c *Container) Components() []string { return c.lifecycle.Names() }

func offlineAssets(items []config.OfflineAsset) ([]asset.Asset, error) {
	out := make([]asset.Asset, 0, len(items))
	for i, it := range items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("offline[%d].quantity: %w", i, err)
		}
		price, err := decimal.NewFromString(it.PriceUSD)
		if err != nil {
			return nil, fmt.Errorf("offline[%d].priceUSD: %w", i, err)
		}
		out = append(out, asset.Asset{
			ID:       it.ID,
			Symbol:   asset.NormalizeSymbol(it.Symbol),
			Name:     it.Name,
			Quantity: qty,
			PriceUSD: price,
		})
	}
	return out, nil
}
