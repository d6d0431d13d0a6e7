package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 划转指标
	transfers *prometheus.CounterVec

	// 行情刷新指标
	refreshes      prometheus.Counter
	refreshErrors  prometheus.Counter
	refreshLatency prometheus.Histogram

	// 组合估值
	totalValue   prometheus.Gauge
	fundingValue prometheus.Gauge
	tradingValue prometheus.Gauge
	dailyPnL     prometheus.Gauge
	dailyPnLPct  prometheus.Gauge

	// 账本数量
	quantity *prometheus.GaugeVec

	// 推送连接
	streamClients prometheus.Gauge

	mu sync.Mutex
}

// Config 监控配置
type Config struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "wallet",
		Subsystem: "ledger",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	if cfg.Namespace == "" {
		cfg = DefaultConfig()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "transfers_total",
			Help:      "Transfer attempts by result",
		}, []string{"result"}),
		refreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "refreshes_total",
			Help:      "Successful asset refreshes",
		}),
		refreshErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "refresh_errors_total",
			Help:      "Failed asset refreshes",
		}),
		refreshLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "refresh_latency_seconds",
			Help:      "Asset refresh latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		totalValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "total_value_usd",
			Help:      "Total portfolio value in USD",
		}),
		fundingValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "funding_value_usd",
			Help:      "Funding account value in USD",
		}),
		tradingValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "trading_value_usd",
			Help:      "Trading account value in USD",
		}),
		dailyPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "daily_pnl_usd",
			Help:      "Daily P&L in USD",
		}),
		dailyPnLPct: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "daily_pnl_percent",
			Help:      "Daily P&L percentage",
		}),
		quantity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quantity",
			Help:      "Ledger quantity per account and symbol",
		}, []string{"account", "symbol"}),
		streamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "stream_clients",
			Help:      "Connected snapshot stream clients",
		}),
	}
}

// RecordTransfer 记录划转结果（completed/rejected/invalid）
func (m *Monitor) RecordTransfer(result string) {
	m.transfers.WithLabelValues(result).Inc()
}

// RecordRefresh 记录一次成功刷新
func (m *Monitor) RecordRefresh(latency time.Duration) {
	m.refreshes.Inc()
	m.refreshLatency.Observe(latency.Seconds())
}

// RecordRefreshError 记录刷新失败
func (m *Monitor) RecordRefreshError(latency time.Duration) {
	m.refreshErrors.Inc()
	m.refreshLatency.Observe(latency.Seconds())
}

// UpdateValues 更新组合估值
func (m *Monitor) UpdateValues(total, funding, trading, pnl, pnlPct decimal.Decimal) {
	m.totalValue.Set(total.InexactFloat64())
	m.fundingValue.Set(funding.InexactFloat64())
	m.tradingValue.Set(trading.InexactFloat64())
	m.dailyPnL.Set(pnl.InexactFloat64())
	m.dailyPnLPct.Set(pnlPct.InexactFloat64())
}

// UpdateQuantities 以账本快照整体替换数量指标，已消失的币种一并清除
func (m *Monitor) UpdateQuantities(quantities map[string]map[string]decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quantity.Reset()
	for account, bySymbol := range quantities {
		for symbol, qty := range bySymbol {
			m.quantity.WithLabelValues(account, symbol).Set(qty.InexactFloat64())
		}
	}
}

// StreamConnected 推送连接数 +1
func (m *Monitor) StreamConnected() { m.streamClients.Inc() }

// StreamDisconnected 推送连接数 -1
func (m *Monitor) StreamDisconnected() { m.streamClients.Dec() }

// Handler 返回HTTP处理器
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回Prometheus注册表
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
