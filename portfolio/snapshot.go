package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot 由账本与最新报价即时推导出的组合视图，不做缓存。
type Snapshot struct {
	AsOf time.Time `json:"asOf"`

	TotalValueUSD   decimal.Decimal `json:"totalValueUsd"`
	FundingValueUSD decimal.Decimal `json:"fundingValueUsd"`
	TradingValueUSD decimal.Decimal `json:"tradingValueUsd"`
	// UnallocatedValueUSD = Total - Funding - Trading。
	// 账本只在首次播种时按外部持仓拆分，之后外部持仓变化不会回写账本，两者可能偏离。
	UnallocatedValueUSD decimal.Decimal `json:"unallocatedValueUsd"`

	FundingRatio decimal.Decimal `json:"fundingRatio"`
	TradingRatio decimal.Decimal `json:"tradingRatio"`

	PnLValueUSD   decimal.Decimal `json:"pnlValueUsd"`
	PnLPercent    decimal.Decimal `json:"pnlPercent"`
	IsPnLPositive bool            `json:"isPnlPositive"`

	Holdings []Holding `json:"holdings"`
}

// Holding 单个币种的持仓与子账户分配。
type Holding struct {
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	PriceUSD        decimal.Decimal `json:"priceUsd"`
	Quantity        decimal.Decimal `json:"quantity"`
	ValueUSD        decimal.Decimal `json:"valueUsd"`
	FundingQuantity decimal.Decimal `json:"fundingQuantity"`
	FundingValueUSD decimal.Decimal `json:"fundingValueUsd"`
	TradingQuantity decimal.Decimal `json:"tradingQuantity"`
	TradingValueUSD decimal.Decimal `json:"tradingValueUsd"`
}

// AccountHolding 子账户视图中的一行。
type AccountHolding struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
	Quantity decimal.Decimal `json:"quantity"`
	ValueUSD decimal.Decimal `json:"valueUsd"`
}

// AccountSummary 单个子账户的持仓列表与总价值。
type AccountSummary struct {
	Account       string           `json:"account"`
	TotalValueUSD decimal.Decimal  `json:"totalValueUsd"`
	Holdings      []AccountHolding `json:"holdings"`
}

// DayBaseline 当日起始总价值。
type DayBaseline struct {
	ValueAtStartOfDay decimal.Decimal `json:"valueAtStartOfDay"`
	Year              int             `json:"year"`
	DayOfYear         int             `json:"dayOfYear"`
}
