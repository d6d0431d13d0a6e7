package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"wallet-ledger-go/infrastructure/logger"
	"wallet-ledger-go/infrastructure/monitor"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env       string          `yaml:"env"`
	Log       logger.Config   `yaml:"log"`
	Metrics   monitor.Config  `yaml:"metrics"`
	Source    SourceConfig    `yaml:"source"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Journal   JournalConfig   `yaml:"journal"`
	HTTP      HTTPConfig      `yaml:"http"`
	Alert     AlertConfig     `yaml:"alert"`
}

// SourceConfig 行情源（CoinGecko 兼容）参数。
type SourceConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	APIKey       string        `yaml:"apiKey"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rateLimit"` // 每秒请求数
	Burst        int           `yaml:"burst"`
	MaxRetries   int           `yaml:"maxRetries"`
	RetryDelay   time.Duration `yaml:"retryDelay"`
}

type PortfolioConfig struct {
	Timezone string            `yaml:"timezone"` // 日切时区，空表示本地
	Holdings map[string]string `yaml:"holdings"` // coin id → 数量
	Offline  []OfflineAsset    `yaml:"offline"`
}

// OfflineAsset 离线快照使用的固定报价。
type OfflineAsset struct {
	ID       string `yaml:"id"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Quantity string `yaml:"quantity"`
	PriceUSD string `yaml:"priceUSD"`
}

type JournalConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite
	Path   string `yaml:"path"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// AlertConfig 刷新失败告警。
type AlertConfig struct {
	Throttle      time.Duration `yaml:"throttle"`
	AfterFailures int           `yaml:"afterFailures"`
}

const (
	DefaultPollInterval    = 15 * time.Second
	DefaultTimeout         = 10 * time.Second
	DefaultRateLimit       = 5.0
	DefaultBurst           = 10
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 200 * time.Millisecond
	DefaultHTTPAddr        = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultAlertThrottle   = 5 * time.Minute
	DefaultAlertFailures   = 3
	JournalMemory          = "memory"
	JournalSQLite          = "sqlite"
)

// Load reads YAML config from path, fills defaults and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("WALLET_SOURCE_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("WALLET_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	return cfg, Validate(cfg)
}

// ApplyDefaults 为零值字段填充默认值。
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.Log.Outputs) == 0 {
		cfg.Log.Outputs = []string{"stdout"}
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics = monitor.DefaultConfig()
	}
	if cfg.Source.PollInterval == 0 {
		cfg.Source.PollInterval = DefaultPollInterval
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = DefaultTimeout
	}
	if cfg.Source.RateLimit == 0 {
		cfg.Source.RateLimit = DefaultRateLimit
	}
	if cfg.Source.Burst == 0 {
		cfg.Source.Burst = DefaultBurst
	}
	if cfg.Source.MaxRetries == 0 {
		cfg.Source.MaxRetries = DefaultMaxRetries
	}
	if cfg.Source.RetryDelay == 0 {
		cfg.Source.RetryDelay = DefaultRetryDelay
	}
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = JournalMemory
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Alert.Throttle == 0 {
		cfg.Alert.Throttle = DefaultAlertThrottle
	}
	if cfg.Alert.AfterFailures == 0 {
		cfg.Alert.AfterFailures = DefaultAlertFailures
	}
}

// Location 解析日切时区。
func (p PortfolioConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("portfolio.timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// HoldingQuantities 把配置中的数量字符串解析为 decimal。
func (p PortfolioConfig) HoldingQuantities() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(p.Holdings))
	for id, raw := range p.Holdings {
		qty, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("portfolio.holdings.%s: %w", id, err)
		}
		if qty.IsNegative() {
			return nil, ErrInvalid(fmt.Sprintf("portfolio.holdings.%s must be >= 0", id))
		}
		out[id] = qty
	}
	return out, nil
}
