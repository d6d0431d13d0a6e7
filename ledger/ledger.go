package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"wallet-ledger-go/asset"
)

// 初始化时外部持仓按固定比例拆到两个子账户。
var (
	FundingSplit = decimal.RequireFromString("0.3")
	TradingSplit = decimal.RequireFromString("0.7")
)

// EventSink 接收账本事件（在释放锁之后调用）。
type EventSink func(event string, fields map[string]interface{})

// Ledger 维护每个币种在 funding/trading 两个子账户中的数量。
// 所有写操作串行执行；两个 map 中的数量始终非负。
type Ledger struct {
	mu          sync.RWMutex
	funding     map[string]decimal.Decimal
	trading     map[string]decimal.Decimal
	initialized bool

	sink EventSink
}

func New(sink EventSink) *Ledger {
	return &Ledger{
		funding: make(map[string]decimal.Decimal),
		trading: make(map[string]decimal.Decimal),
		sink:    sink,
	}
}

// Initialize 用外部持仓按 30/70 拆分播种账本，仅首次生效。
// 返回本次是否执行了播种。
func (l *Ledger) Initialize(assets []asset.Asset) bool {
	l.mu.Lock()
	if l.initialized {
		l.mu.Unlock()
		return false
	}
	count := l.seedLocked(assets)
	l.mu.Unlock()

	l.logEvent("ledger_initialized", map[string]interface{}{
		"symbols": count,
	})
	return true
}

// Reseed 在同一把写锁内清空并重新播种，期间的划转看不到空账本。
func (l *Ledger) Reseed(assets []asset.Asset) {
	l.mu.Lock()
	l.funding = make(map[string]decimal.Decimal)
	l.trading = make(map[string]decimal.Decimal)
	count := l.seedLocked(assets)
	l.mu.Unlock()

	l.logEvent("ledger_reset", map[string]interface{}{})
	l.logEvent("ledger_initialized", map[string]interface{}{
		"symbols": count,
	})
}

func (l *Ledger) seedLocked(assets []asset.Asset) int {
	for _, a := range assets {
		l.funding[a.Symbol] = a.Quantity.Mul(FundingSplit)
		l.trading[a.Symbol] = a.Quantity.Mul(TradingSplit)
	}
	l.initialized = true
	return len(l.funding)
}

// Reset 清空两个子账户并允许再次 Initialize。
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.funding = make(map[string]decimal.Decimal)
	l.trading = make(map[string]decimal.Decimal)
	l.initialized = false
	l.mu.Unlock()

	l.logEvent("ledger_reset", map[string]interface{}{})
}

// Initialized 是否已播种。
func (l *Ledger) Initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initialized
}

// Transfer 在两个子账户之间划转 amount。
// 参数非法返回错误；余额不足返回 (false, nil) 且不修改任何状态。
// from == to 时只做余额校验，净变化为零。
func (l *Ledger) Transfer(symbol string, amount decimal.Decimal, from, to Account) (bool, error) {
	if !amount.IsPositive() {
		return false, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if !from.Valid() {
		return false, fmt.Errorf("%w: from=%s", ErrInvalidAccount, from)
	}
	if !to.Valid() {
		return false, fmt.Errorf("%w: to=%s", ErrInvalidAccount, to)
	}
	l.mu.Lock()
	src := l.bookLocked(from)
	dst := l.bookLocked(to)
	srcQty := src[symbol]
	if srcQty.LessThan(amount) {
		l.mu.Unlock()
		l.logEvent("transfer", map[string]interface{}{
			"symbol":    symbol,
			"amount":    amount.String(),
			"from":      from.String(),
			"to":        to.String(),
			"ok":        false,
			"available": srcQty.String(),
		})
		return false, nil
	}
	src[symbol] = srcQty.Sub(amount)
	dst[symbol] = dst[symbol].Add(amount)
	srcAfter := src[symbol]
	dstAfter := dst[symbol]
	l.mu.Unlock()

	l.logEvent("transfer", map[string]interface{}{
		"symbol":    symbol,
		"amount":    amount.String(),
		"from":      from.String(),
		"to":        to.String(),
		"ok":        true,
		"from_left": srcAfter.String(),
		"to_total":  dstAfter.String(),
	})
	return true, nil
}

// Balance 单个子账户中某币种的数量，缺省为 0。
func (l *Ledger) Balance(symbol string, account Account) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	book := l.bookLocked(account)
	if book == nil {
		return decimal.Zero
	}
	return book[symbol]
}

// Quantities 在同一把读锁下返回某币种两个子账户的数量。
func (l *Ledger) Quantities(symbol string) (funding, trading decimal.Decimal) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.funding[symbol], l.trading[symbol]
}

// Balances 返回某子账户的拷贝。
func (l *Ledger) Balances(account Account) map[string]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	book := l.bookLocked(account)
	out := make(map[string]decimal.Decimal, len(book))
	for k, v := range book {
		out[k] = v
	}
	return out
}

// Symbols 两个子账户中出现过的币种（排序）。
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	seen := make(map[string]struct{}, len(l.funding)+len(l.trading))
	for s := range l.funding {
		seen[s] = struct{}{}
	}
	for s := range l.trading {
		seen[s] = struct{}{}
	}
	l.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) bookLocked(account Account) map[string]decimal.Decimal {
	switch account {
	case Funding:
		return l.funding
	case Trading:
		return l.trading
	default:
		return nil
	}
}

func (l *Ledger) logEvent(event string, fields map[string]interface{}) {
	if l == nil || l.sink == nil {
		return
	}
	l.sink(event, fields)
}
