// Package wallet wires the asset source, the dual-account ledger, the
// portfolio aggregator and the transfer journal into one service.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger-go/asset"
	"wallet-ledger-go/infrastructure/alert"
	"wallet-ledger-go/infrastructure/logger"
	"wallet-ledger-go/infrastructure/monitor"
	"wallet-ledger-go/journal"
	"wallet-ledger-go/ledger"
	"wallet-ledger-go/portfolio"
)

const (
	DefaultPollInterval       = 15 * time.Second
	DefaultAlertAfterFailures = 3
)

// ErrNoSource 未配置持仓数据源。
var ErrNoSource = errors.New("asset source not configured")

// AlertSender 告警出口；*alert.Manager 满足该接口。
type AlertSender interface {
	Send(level alert.Level, message string, fields map[string]interface{}) error
}

// Options NewService 的依赖；除 Source 外均可留空使用默认实现。
type Options struct {
	Source       asset.Source
	Ledger       *ledger.Ledger
	Aggregator   *portfolio.Aggregator
	Journal      journal.Store
	Logger       *logger.Logger
	Monitor      *monitor.Monitor
	Clock        portfolio.Clock
	PollInterval time.Duration

	// 连续刷新失败达到 AlertAfterFailures 次后告警，恢复时再发一次
	Alerts             AlertSender
	AlertAfterFailures int
}

// TransferRequest 一次划转请求。
type TransferRequest struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	From   ledger.Account  `json:"from"`
	To     ledger.Account  `json:"to"`
}

// BalanceView 某币种在两个子账户中的数量。
type BalanceView struct {
	Symbol  string          `json:"symbol"`
	Funding decimal.Decimal `json:"funding"`
	Trading decimal.Decimal `json:"trading"`
}

// Service 持有最近一次成功拉取的持仓列表，刷新和划转后重新计算快照并广播。
type Service struct {
	source  asset.Source
	ledger  *ledger.Ledger
	agg     *portfolio.Aggregator
	journal journal.Store
	log     *logger.Logger
	mon     *monitor.Monitor
	clock   portfolio.Clock
	pub     *Publisher
	alerts  AlertSender

	alertAfter int

	mu          sync.RWMutex
	failures    int
	assets      []asset.Asset
	lastRefresh time.Time
	interval    time.Duration
	intervalCh  chan struct{}
}

func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	s := &Service{
		source:     opts.Source,
		ledger:     opts.Ledger,
		agg:        opts.Aggregator,
		journal:    opts.Journal,
		log:        opts.Logger,
		mon:        opts.Monitor,
		clock:      opts.Clock,
		pub:        NewPublisher(),
		alerts:     opts.Alerts,
		alertAfter: opts.AlertAfterFailures,
		interval:   opts.PollInterval,
		intervalCh: make(chan struct{}, 1),
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.ledger == nil {
		s.ledger = ledger.New(s.log.LogEvent)
	}
	if s.agg == nil {
		s.agg = portfolio.NewAggregator(nil)
	}
	if s.journal == nil {
		s.journal = journal.NewMemoryStore()
	}
	if s.mon == nil {
		s.mon = monitor.New(monitor.DefaultConfig())
	}
	if s.clock == nil {
		s.clock = portfolio.SystemClock
	}
	if s.interval <= 0 {
		s.interval = DefaultPollInterval
	}
	if s.alertAfter <= 0 {
		s.alertAfter = DefaultAlertAfterFailures
	}
	return s, nil
}

// Ledger 暴露底层账本（只读用途）。
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

// Refresh 拉取持仓；首次成功时播种账本，然后重新计算并广播快照。
// 拉取失败时保留上一份持仓列表。
func (s *Service) Refresh(ctx context.Context) (portfolio.Snapshot, error) {
	start := time.Now()
	assets, err := s.source.FetchHoldings(ctx)
	if err != nil {
		s.mon.RecordRefreshError(time.Since(start))
		s.mu.Lock()
		s.failures++
		failures := s.failures
		s.mu.Unlock()
		s.log.LogEvent("refresh_failed", map[string]interface{}{
			"error":    err.Error(),
			"failures": failures,
		})
		if failures >= s.alertAfter {
			s.alert(alert.LevelError, "asset source unavailable", map[string]interface{}{
				"failures": failures,
				"error":    err.Error(),
			})
		}
		return portfolio.Snapshot{}, fmt.Errorf("fetch holdings: %w", err)
	}

	s.mu.Lock()
	s.assets = assets
	s.lastRefresh = s.clock.Now()
	prevFailures := s.failures
	s.failures = 0
	s.mu.Unlock()
	if prevFailures >= s.alertAfter {
		s.alert(alert.LevelInfo, "asset source recovered", map[string]interface{}{
			"failures": prevFailures,
		})
	}

	s.ledger.Initialize(assets)
	snap := s.recompute(assets)
	s.pub.Publish(snap)

	s.mon.RecordRefresh(time.Since(start))
	s.log.LogRefresh(map[string]interface{}{
		"assets":      len(assets),
		"total_usd":   snap.TotalValueUSD.String(),
		"funding_usd": snap.FundingValueUSD.String(),
		"trading_usd": snap.TradingValueUSD.String(),
		"pnl_usd":     snap.PnLValueUSD.String(),
	})
	return snap, nil
}

// Run 立即刷新一次，之后按轮询间隔刷新，直到 ctx 取消。
func (s *Service) Run(ctx context.Context) error {
	_, _ = s.Refresh(ctx)

	ticker := time.NewTicker(s.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.intervalCh:
			ticker.Reset(s.PollInterval())
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

// SetPollInterval 运行中调整轮询间隔（配置热更新）。
func (s *Service) SetPollInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %s", d)
	}
	s.mu.Lock()
	changed := s.interval != d
	s.interval = d
	s.mu.Unlock()
	if !changed {
		return nil
	}
	select {
	case s.intervalCh <- struct{}{}:
	default:
	}
	return nil
}

func (s *Service) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

// LastRefresh 最近一次成功刷新的时间，未刷新过为零值。
func (s *Service) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// Transfer 在子账户之间划转。余额不足返回 ledger.ErrInsufficientBalance。
// 参数合法的请求（无论成败）都会写入流水。
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (portfolio.Snapshot, error) {
	symbol := asset.NormalizeSymbol(req.Symbol)
	ok, err := s.ledger.Transfer(symbol, req.Amount, req.From, req.To)
	if err != nil {
		s.mon.RecordTransfer("invalid")
		return portfolio.Snapshot{}, err
	}

	status := journal.StatusCompleted
	reason := ""
	if !ok {
		status = journal.StatusRejected
		reason = ledger.ErrInsufficientBalance.Error()
	}
	rec := journal.NewRecord(symbol, req.Amount, req.From.String(), req.To.String(), status, reason, s.clock.Now())
	// 账本已变更，流水不随调用方取消而丢失
	if jerr := s.journal.Append(context.WithoutCancel(ctx), rec); jerr != nil {
		// 账本已生效，流水写失败只记录
		s.log.LogError(jerr, map[string]interface{}{
			"action":      "journal_append",
			"transfer_id": rec.ID,
		})
	}
	s.mon.RecordTransfer(string(status))

	if !ok {
		return portfolio.Snapshot{}, fmt.Errorf("%w: %s %s in %s", ledger.ErrInsufficientBalance, req.Amount, symbol, req.From)
	}
	snap := s.recompute(s.currentAssets())
	s.pub.Publish(snap)
	return snap, nil
}

// Snapshot 基于最近的持仓列表即时计算。
func (s *Service) Snapshot() portfolio.Snapshot {
	return s.recompute(s.currentAssets())
}

// AccountView 单个子账户的持仓视图。
func (s *Service) AccountView(account ledger.Account) (portfolio.AccountSummary, error) {
	if !account.Valid() {
		return portfolio.AccountSummary{}, fmt.Errorf("%w: %d", ledger.ErrInvalidAccount, int(account))
	}
	return portfolio.AccountView(s.currentAssets(), s.ledger, account), nil
}

func (s *Service) Balance(symbol string) BalanceView {
	symbol = asset.NormalizeSymbol(symbol)
	funding, trading := s.ledger.Quantities(symbol)
	return BalanceView{Symbol: symbol, Funding: funding, Trading: trading}
}

// MaxTransferable 从 from 账户最多可划出的数量。
func (s *Service) MaxTransferable(symbol string, from ledger.Account) (decimal.Decimal, error) {
	if !from.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %d", ledger.ErrInvalidAccount, int(from))
	}
	return s.ledger.Balance(asset.NormalizeSymbol(symbol), from), nil
}

// Transfers 划转流水，最新在前。
func (s *Service) Transfers(ctx context.Context, limit int) ([]journal.Record, error) {
	return s.journal.List(ctx, limit)
}

// Reset 清空账本，并用最近的持仓列表重新按 30/70 播种。
func (s *Service) Reset(ctx context.Context) (portfolio.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return portfolio.Snapshot{}, err
	}
	assets := s.currentAssets()
	if assets != nil {
		s.ledger.Reseed(assets)
	} else {
		s.ledger.Reset()
	}
	snap := s.recompute(assets)
	s.pub.Publish(snap)
	return snap, nil
}

func (s *Service) Subscribe() <-chan portfolio.Snapshot { return s.pub.Subscribe() }

func (s *Service) Unsubscribe(ch <-chan portfolio.Snapshot) { s.pub.Unsubscribe(ch) }

// ConsecutiveFailures 自上次成功以来的连续刷新失败次数。
func (s *Service) ConsecutiveFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures
}

func (s *Service) alert(level alert.Level, message string, fields map[string]interface{}) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Send(level, message, fields); err != nil {
		s.log.LogError(err, map[string]interface{}{"action": "send_alert"})
	}
}

func (s *Service) currentAssets() []asset.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assets
}

func (s *Service) recompute(assets []asset.Asset) portfolio.Snapshot {
	snap := s.agg.Recompute(assets, s.ledger, s.clock.Now())
	s.mon.UpdateValues(snap.TotalValueUSD, snap.FundingValueUSD, snap.TradingValueUSD, snap.PnLValueUSD, snap.PnLPercent)

	quantities := make(map[string]map[string]decimal.Decimal, len(ledger.Accounts))
	for _, acct := range ledger.Accounts {
		quantities[acct.String()] = s.ledger.Balances(acct)
	}
	s.mon.UpdateQuantities(quantities)
	return snap
}
