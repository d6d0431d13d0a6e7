package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-ledger-go/asset"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func btcOnly() []asset.Asset {
	return []asset.Asset{{ID: "bitcoin", Symbol: "BTC", Quantity: d("1.0"), PriceUSD: d("50000")}}
}

func sampleAssets() []asset.Asset {
	return []asset.Asset{
		{ID: "bitcoin", Symbol: "BTC", Quantity: d("0.5"), PriceUSD: d("70000")},
		{ID: "ethereum", Symbol: "ETH", Quantity: d("10"), PriceUSD: d("3500")},
		{ID: "tether", Symbol: "USDT", Quantity: d("10000"), PriceUSD: d("1")},
		{ID: "solana", Symbol: "SOL", Quantity: d("100"), PriceUSD: d("150")},
		{ID: "ripple", Symbol: "XRP", Quantity: d("10000"), PriceUSD: d("0.5")},
	}
}

type state struct {
	funding map[string]decimal.Decimal
	trading map[string]decimal.Decimal
}

func capture(l *Ledger) state {
	return state{funding: l.Balances(Funding), trading: l.Balances(Trading)}
}

func assertSameState(t *testing.T, want, got state) {
	t.Helper()
	require.Equal(t, len(want.funding), len(got.funding))
	require.Equal(t, len(want.trading), len(got.trading))
	for s, q := range want.funding {
		assert.Truef(t, q.Equal(got.funding[s]), "funding[%s] want %s got %s", s, q, got.funding[s])
	}
	for s, q := range want.trading {
		assert.Truef(t, q.Equal(got.trading[s]), "trading[%s] want %s got %s", s, q, got.trading[s])
	}
}

func TestInitializeSplitsThirtySeventy(t *testing.T) {
	l := New(nil)
	require.True(t, l.Initialize(sampleAssets()))
	require.True(t, l.Initialized())

	for _, a := range sampleAssets() {
		f, tr := l.Quantities(a.Symbol)
		assert.Truef(t, f.Add(tr).Equal(a.Quantity), "%s: %s + %s != %s", a.Symbol, f, tr, a.Quantity)
		assert.True(t, f.Equal(a.Quantity.Mul(d("0.3"))))
		assert.True(t, tr.Equal(a.Quantity.Mul(d("0.7"))))
	}
	assert.Equal(t, []string{"BTC", "ETH", "SOL", "USDT", "XRP"}, l.Symbols())
}

func TestInitializeIsOneShot(t *testing.T) {
	l := New(nil)
	require.True(t, l.Initialize(btcOnly()))

	refreshed := []asset.Asset{{Symbol: "BTC", Quantity: d("5")}, {Symbol: "ETH", Quantity: d("1")}}
	assert.False(t, l.Initialize(refreshed))

	assert.True(t, l.Balance("BTC", Funding).Equal(d("0.3")))
	assert.True(t, l.Balance("ETH", Trading).IsZero())
}

func TestResetThenInitializeMatchesFresh(t *testing.T) {
	used := New(nil)
	used.Initialize(sampleAssets())
	ok, err := used.Transfer("ETH", d("1.5"), Trading, Funding)
	require.NoError(t, err)
	require.True(t, ok)

	used.Reset()
	assert.False(t, used.Initialized())
	assert.Empty(t, used.Symbols())
	used.Initialize(sampleAssets())

	fresh := New(nil)
	fresh.Initialize(sampleAssets())
	assertSameState(t, capture(fresh), capture(used))
}

func TestReseedMatchesFresh(t *testing.T) {
	var events []string
	used := New(func(event string, _ map[string]interface{}) { events = append(events, event) })
	used.Initialize(sampleAssets())
	ok, err := used.Transfer("BTC", d("0.1"), Funding, Trading)
	require.NoError(t, err)
	require.True(t, ok)

	used.Reseed(sampleAssets())
	assert.True(t, used.Initialized())

	fresh := New(nil)
	fresh.Initialize(sampleAssets())
	assertSameState(t, capture(fresh), capture(used))
	assert.Equal(t, []string{"ledger_initialized", "transfer", "ledger_reset", "ledger_initialized"}, events)
}

func TestReseedDropsSymbolsNoLongerHeld(t *testing.T) {
	l := New(nil)
	l.Initialize(sampleAssets())
	l.Reseed(btcOnly())
	assert.Equal(t, []string{"BTC"}, l.Symbols())
	assert.True(t, l.Balance("BTC", Funding).Equal(d("0.3")))
}

func TestTransferScenarioInsufficient(t *testing.T) {
	l := New(nil)
	l.Initialize(btcOnly())
	assert.True(t, l.Balance("BTC", Funding).Equal(d("0.3")))
	assert.True(t, l.Balance("BTC", Trading).Equal(d("0.7")))

	before := capture(l)
	ok, err := l.Transfer("BTC", d("0.5"), Funding, Trading)
	require.NoError(t, err)
	assert.False(t, ok)
	assertSameState(t, before, capture(l))
}

func TestTransferScenarioSuccess(t *testing.T) {
	l := New(nil)
	l.Initialize(btcOnly())

	ok, err := l.Transfer("BTC", d("0.1"), Funding, Trading)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, l.Balance("BTC", Funding).Equal(d("0.2")))
	assert.True(t, l.Balance("BTC", Trading).Equal(d("0.8")))
}

func TestTransferIsConservative(t *testing.T) {
	l := New(nil)
	l.Initialize(sampleAssets())

	cases := []struct {
		symbol   string
		amount   string
		from, to Account
	}{
		{"ETH", "3", Funding, Trading},
		{"ETH", "7.5", Trading, Funding},
		{"USDT", "0.000001", Trading, Funding},
		{"XRP", "3000", Funding, Trading},
	}
	for _, c := range cases {
		srcBefore := l.Balance(c.symbol, c.from)
		dstBefore := l.Balance(c.symbol, c.to)
		ok, err := l.Transfer(c.symbol, d(c.amount), c.from, c.to)
		require.NoError(t, err)
		require.Truef(t, ok, "%s %s %s->%s", c.symbol, c.amount, c.from, c.to)
		srcAfter := l.Balance(c.symbol, c.from)
		dstAfter := l.Balance(c.symbol, c.to)
		assert.True(t, srcAfter.Add(dstAfter).Equal(srcBefore.Add(dstBefore)))
		assert.True(t, srcAfter.Equal(srcBefore.Sub(d(c.amount))))
	}
}

func TestTransferRoundTripRestores(t *testing.T) {
	l := New(nil)
	l.Initialize(sampleAssets())
	before := capture(l)

	ok, err := l.Transfer("SOL", d("12.345"), Funding, Trading)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Transfer("SOL", d("12.345"), Trading, Funding)
	require.NoError(t, err)
	require.True(t, ok)

	assertSameState(t, before, capture(l))
}

func TestTransferWholeBalanceLeavesZero(t *testing.T) {
	l := New(nil)
	l.Initialize(btcOnly())
	ok, err := l.Transfer("BTC", d("0.3"), Funding, Trading)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, l.Balance("BTC", Funding).IsZero())
	assert.True(t, l.Balance("BTC", Trading).Equal(d("1.0")))
}

func TestTransferCreatesDestinationEntry(t *testing.T) {
	l := New(nil)
	l.Initialize(btcOnly())
	l.funding["DOGE"] = d("100")

	ok, err := l.Transfer("DOGE", d("40"), Funding, Trading)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, l.Balance("DOGE", Trading).Equal(d("40")))
}

func TestTransferRejectsInvalidInput(t *testing.T) {
	l := New(nil)
	l.Initialize(btcOnly())
	before := capture(l)

	tests := []struct {
		name    string
		amount  decimal.Decimal
		from    Account
		to      Account
		wantErr error
	}{
		{"零数量", decimal.Zero, Funding, Trading, ErrInvalidAmount},
		{"负数量", d("-0.1"), Funding, Trading, ErrInvalidAmount},
		{"未知来源账户", d("0.1"), Account(0), Trading, ErrInvalidAccount},
		{"未知目标账户", d("0.1"), Funding, Account(9), ErrInvalidAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := l.Transfer("BTC", tt.amount, tt.from, tt.to)
			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, ErrInsufficientBalance)
		})
	}
	assertSameState(t, before, capture(l))
}

func TestTransferSameAccountIsNoOp(t *testing.T) {
	l := New(nil)
	l.Initialize(btcOnly())
	before := capture(l)

	ok, err := l.Transfer("BTC", d("0.1"), Trading, Trading)
	require.NoError(t, err)
	assert.True(t, ok)
	assertSameState(t, before, capture(l))

	// 余额校验仍然生效
	ok, err = l.Transfer("BTC", d("5"), Funding, Funding)
	require.NoError(t, err)
	assert.False(t, ok)
	assertSameState(t, before, capture(l))

	ok, err = l.Transfer("ETH", d("1"), Funding, Funding)
	require.NoError(t, err)
	assert.False(t, ok)
	assertSameState(t, before, capture(l))
}

func TestTransferWhileUninitialized(t *testing.T) {
	l := New(nil)
	ok, err := l.Transfer("BTC", d("0.0001"), Funding, Trading)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, l.Symbols())
}

func TestLedgerEmitsEvents(t *testing.T) {
	var events []string
	var last map[string]interface{}
	l := New(func(event string, fields map[string]interface{}) {
		events = append(events, event)
		last = fields
	})
	l.Initialize(btcOnly())
	_, _ = l.Transfer("BTC", d("5"), Funding, Trading)
	assert.Equal(t, false, last["ok"])
	_, _ = l.Transfer("BTC", d("0.1"), Funding, Trading)
	assert.Equal(t, true, last["ok"])
	l.Reset()

	assert.Equal(t, []string{"ledger_initialized", "transfer", "transfer", "ledger_reset"}, events)
}

func TestParseAccount(t *testing.T) {
	a, err := ParseAccount(" Funding ")
	require.NoError(t, err)
	assert.Equal(t, Funding, a)

	a, err = ParseAccount("TRADING")
	require.NoError(t, err)
	assert.Equal(t, Trading, a)

	_, err = ParseAccount("savings")
	assert.ErrorIs(t, err, ErrInvalidAccount)

	var acc Account
	require.NoError(t, acc.UnmarshalText([]byte("trading")))
	txt, err := acc.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "trading", string(txt))
}
