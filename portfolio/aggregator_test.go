package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger-go/asset"
	"wallet-ledger-go/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func btc(price string) []asset.Asset {
	return []asset.Asset{{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Quantity: d("1.0"), PriceUSD: d(price)}}
}

var day1 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRecomputeScenarioAfterTransfer(t *testing.T) {
	l := ledger.New(nil)
	l.Initialize(btc("50000"))
	ok, err := l.Transfer("BTC", d("0.1"), ledger.Funding, ledger.Trading)
	require.NoError(t, err)
	require.True(t, ok)

	agg := NewAggregator(time.UTC)
	snap := agg.Recompute(btc("50000"), l, day1)

	assert.True(t, snap.TotalValueUSD.Equal(d("50000")), "total %s", snap.TotalValueUSD)
	assert.True(t, snap.FundingValueUSD.Equal(d("10000")), "funding %s", snap.FundingValueUSD)
	assert.True(t, snap.TradingValueUSD.Equal(d("40000")), "trading %s", snap.TradingValueUSD)
	assert.True(t, snap.UnallocatedValueUSD.IsZero())
	assert.True(t, snap.FundingRatio.Equal(d("0.2")))
	assert.True(t, snap.TradingRatio.Equal(d("0.8")))
	assert.True(t, snap.PnLValueUSD.IsZero())
	assert.True(t, snap.IsPnLPositive)

	require.Len(t, snap.Holdings, 1)
	h := snap.Holdings[0]
	assert.Equal(t, "BTC", h.Symbol)
	assert.True(t, h.FundingQuantity.Equal(d("0.2")))
	assert.True(t, h.TradingValueUSD.Equal(d("40000")))
}

func TestRecomputeTotalUsesExternalHolding(t *testing.T) {
	l := ledger.New(nil)
	l.Initialize(btc("50000"))

	// 外部持仓翻倍，账本不跟随
	refreshed := []asset.Asset{{Symbol: "BTC", Quantity: d("2"), PriceUSD: d("50000")}}
	snap := NewAggregator(time.UTC).Recompute(refreshed, l, day1)

	assert.True(t, snap.TotalValueUSD.Equal(d("100000")))
	assert.True(t, snap.FundingValueUSD.Add(snap.TradingValueUSD).Equal(d("50000")))
	assert.True(t, snap.UnallocatedValueUSD.Equal(d("50000")))
}

func TestDailyPnL(t *testing.T) {
	l := ledger.New(nil)
	l.Initialize(btc("50000"))
	agg := NewAggregator(time.UTC)

	first := agg.Recompute(btc("50000"), l, day1)
	assert.True(t, first.PnLValueUSD.IsZero())
	assert.True(t, first.PnLPercent.IsZero())

	up := agg.Recompute(btc("51000"), l, day1.Add(2*time.Hour))
	assert.True(t, up.PnLValueUSD.Equal(d("1000")), "pnl %s", up.PnLValueUSD)
	assert.True(t, up.PnLPercent.Equal(d("2")), "pct %s", up.PnLPercent)
	assert.True(t, up.IsPnLPositive)

	down := agg.Recompute(btc("49500"), l, day1.Add(3*time.Hour))
	assert.True(t, down.PnLValueUSD.Equal(d("-500")))
	assert.True(t, down.PnLPercent.Equal(d("-1")))
	assert.False(t, down.IsPnLPositive)

	base, ok := agg.Baseline()
	require.True(t, ok)
	assert.True(t, base.ValueAtStartOfDay.Equal(d("50000")))
	assert.Equal(t, 69, base.DayOfYear)
}

func TestDailyPnLResetsOnNewDay(t *testing.T) {
	agg := NewAggregator(time.UTC)
	agg.Recompute(btc("50000"), nil, day1)
	agg.Recompute(btc("52000"), nil, day1.Add(time.Hour))

	next := agg.Recompute(btc("53000"), nil, day1.Add(24*time.Hour))
	assert.True(t, next.PnLValueUSD.IsZero())
	base, _ := agg.Baseline()
	assert.True(t, base.ValueAtStartOfDay.Equal(d("53000")))

	later := agg.Recompute(btc("53530"), nil, day1.Add(25*time.Hour))
	assert.True(t, later.PnLPercent.Equal(d("1")), "pct %s", later.PnLPercent)
}

func TestDailyPnLSameYearDayNextYearResets(t *testing.T) {
	agg := NewAggregator(time.UTC)
	agg.Recompute(btc("50000"), nil, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	// 2027-03-11 与 2026-03-11 同为一年中的第 70 天
	snap := agg.Recompute(btc("60000"), nil, time.Date(2027, 3, 11, 9, 0, 0, 0, time.UTC))
	assert.True(t, snap.PnLValueUSD.IsZero())
	base, _ := agg.Baseline()
	assert.Equal(t, 2027, base.Year)
	assert.Equal(t, 70, base.DayOfYear)
}

func TestDailyPnLZeroBaselineKeepsResetting(t *testing.T) {
	agg := NewAggregator(time.UTC)
	empty := agg.Recompute(nil, nil, day1)
	assert.True(t, empty.TotalValueUSD.IsZero())

	// 基线为 0 时下一次计算重新取基线
	snap := agg.Recompute(btc("50000"), nil, day1.Add(time.Minute))
	assert.True(t, snap.PnLValueUSD.IsZero())
	base, _ := agg.Baseline()
	assert.True(t, base.ValueAtStartOfDay.Equal(d("50000")))
}

func TestDayBoundaryUsesLocation(t *testing.T) {
	agg := NewAggregator(time.FixedZone("UTC+7", 7*3600))
	agg.Recompute(btc("50000"), nil, time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)) // 当地 23:00

	snap := agg.Recompute(btc("51000"), nil, time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC))
	assert.True(t, snap.PnLValueUSD.Equal(d("1000")))

	// 当地已跨日，UTC 仍是同一天
	snap = agg.Recompute(btc("51000"), nil, time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC))
	assert.True(t, snap.PnLValueUSD.IsZero())
}

func TestHoldingsSortedByValue(t *testing.T) {
	assets := []asset.Asset{
		{Symbol: "XRP", Quantity: d("10000"), PriceUSD: d("0.5")},
		{Symbol: "BTC", Quantity: d("0.5"), PriceUSD: d("70000")},
		{Symbol: "ETH", Quantity: d("10"), PriceUSD: d("3500")},
		{Symbol: "ADA", Quantity: d("10000"), PriceUSD: d("0.5")},
	}
	snap := NewAggregator(time.UTC).Recompute(assets, nil, day1)
	var got []string
	for _, h := range snap.Holdings {
		got = append(got, h.Symbol)
	}
	assert.Equal(t, []string{"BTC", "ETH", "ADA", "XRP"}, got)
	assert.True(t, snap.FundingRatio.IsZero())
}

func TestAccountView(t *testing.T) {
	l := ledger.New(nil)
	assets := []asset.Asset{
		{Symbol: "BTC", Name: "Bitcoin", Quantity: d("1"), PriceUSD: d("50000")},
		{Symbol: "ETH", Name: "Ethereum", Quantity: d("10"), PriceUSD: d("3000")},
	}
	l.Initialize(assets)
	ok, err := l.Transfer("ETH", d("3"), ledger.Funding, ledger.Trading)
	require.NoError(t, err)
	require.True(t, ok)

	funding := AccountView(assets, l, ledger.Funding)
	assert.Equal(t, "funding", funding.Account)
	require.Len(t, funding.Holdings, 1)
	assert.Equal(t, "BTC", funding.Holdings[0].Symbol)
	assert.True(t, funding.TotalValueUSD.Equal(d("15000")))

	trading := AccountView(assets, l, ledger.Trading)
	require.Len(t, trading.Holdings, 2)
	assert.True(t, trading.TotalValueUSD.Equal(d("65000")), "trading %s", trading.TotalValueUSD)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$50,000.00", FormatUSD(d("50000")))
	assert.Equal(t, "$0.13", FormatUSD(d("0.125")))
	assert.Equal(t, "+2.00%", FormatPercent(d("2")))
	assert.Equal(t, "-1.25%", FormatPercent(d("-1.25")))
}
