package portfolio

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger-go/asset"
	"wallet-ledger-go/ledger"
)

var hundred = decimal.NewFromInt(100)

// Balances 账本只读视图；*ledger.Ledger 满足该接口。
type Balances interface {
	Quantities(symbol string) (funding, trading decimal.Decimal)
}

// Aggregator 计算组合总值、子账户价值与日内盈亏。
// 唯一的内部状态是当日基线。
type Aggregator struct {
	mu          sync.Mutex
	loc         *time.Location
	baseline    DayBaseline
	hasBaseline bool
}

// NewAggregator loc 决定"日"的边界，nil 时使用 time.Local。
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{loc: loc}
}

// Recompute 按当前报价重新计算快照。
// 总值取外部报告的持仓数量；funding/trading 取账本数量。
func (a *Aggregator) Recompute(assets []asset.Asset, balances Balances, now time.Time) Snapshot {
	total := decimal.Zero
	fundingValue := decimal.Zero
	tradingValue := decimal.Zero
	holdings := make([]Holding, 0, len(assets))

	for _, as := range assets {
		var fq, tq decimal.Decimal
		if balances != nil {
			fq, tq = balances.Quantities(as.Symbol)
		}
		value := as.Value()
		fv := fq.Mul(as.PriceUSD)
		tv := tq.Mul(as.PriceUSD)

		total = total.Add(value)
		fundingValue = fundingValue.Add(fv)
		tradingValue = tradingValue.Add(tv)
		holdings = append(holdings, Holding{
			Symbol:          as.Symbol,
			Name:            as.Name,
			PriceUSD:        as.PriceUSD,
			Quantity:        as.Quantity,
			ValueUSD:        value,
			FundingQuantity: fq,
			FundingValueUSD: fv,
			TradingQuantity: tq,
			TradingValueUSD: tv,
		})
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		if c := holdings[i].ValueUSD.Cmp(holdings[j].ValueUSD); c != 0 {
			return c > 0
		}
		return holdings[i].Symbol < holdings[j].Symbol
	})

	snap := Snapshot{
		AsOf:                now,
		TotalValueUSD:       total,
		FundingValueUSD:     fundingValue,
		TradingValueUSD:     tradingValue,
		UnallocatedValueUSD: total.Sub(fundingValue).Sub(tradingValue),
		FundingRatio:        decimal.Zero,
		TradingRatio:        decimal.Zero,
		Holdings:            holdings,
	}
	if allocated := fundingValue.Add(tradingValue); allocated.IsPositive() {
		snap.FundingRatio = fundingValue.Div(allocated)
		snap.TradingRatio = tradingValue.Div(allocated)
	}

	snap.PnLValueUSD, snap.PnLPercent = a.dailyPnL(total, now)
	snap.IsPnLPositive = !snap.PnLValueUSD.IsNegative()
	return snap
}

// dailyPnL 跨日、无基线或基线为 0 时重置基线并报告 0。
func (a *Aggregator) dailyPnL(total decimal.Decimal, now time.Time) (pnl, pct decimal.Decimal) {
	local := now.In(a.loc)
	year, day := local.Year(), local.YearDay()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasBaseline || a.baseline.Year != year || a.baseline.DayOfYear != day || a.baseline.ValueAtStartOfDay.IsZero() {
		a.baseline = DayBaseline{ValueAtStartOfDay: total, Year: year, DayOfYear: day}
		a.hasBaseline = true
		return decimal.Zero, decimal.Zero
	}
	start := a.baseline.ValueAtStartOfDay
	pnl = total.Sub(start)
	pct = decimal.Zero
	if start.IsPositive() {
		pct = pnl.Div(start).Mul(hundred)
	}
	return pnl, pct
}

// Baseline 当前基线；尚未记录时 ok=false。
func (a *Aggregator) Baseline() (DayBaseline, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baseline, a.hasBaseline
}

// AccountView 列出某子账户中余额为正的币种及该账户总价值。
func AccountView(assets []asset.Asset, balances Balances, account ledger.Account) AccountSummary {
	summary := AccountSummary{
		Account:       account.String(),
		TotalValueUSD: decimal.Zero,
		Holdings:      []AccountHolding{},
	}
	if balances == nil {
		return summary
	}
	for _, as := range assets {
		fq, tq := balances.Quantities(as.Symbol)
		qty := fq
		if account == ledger.Trading {
			qty = tq
		}
		if !qty.IsPositive() {
			continue
		}
		value := qty.Mul(as.PriceUSD)
		summary.Holdings = append(summary.Holdings, AccountHolding{
			Symbol:   as.Symbol,
			Name:     as.Name,
			PriceUSD: as.PriceUSD,
			Quantity: qty,
			ValueUSD: value,
		})
		summary.TotalValueUSD = summary.TotalValueUSD.Add(value)
	}
	return summary
}
