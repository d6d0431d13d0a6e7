package asset

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Asset 外部行情源报告的一项持仓，拉取后不可变。
// Quantity 是外部报告的总持仓，不区分 funding/trading 子账户。
type Asset struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	IconURL  string          `json:"iconUrl,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
}

// Value 持仓的美元价值（Quantity × PriceUSD）。
func (a Asset) Value() decimal.Decimal {
	return a.Quantity.Mul(a.PriceUSD)
}

// Source 持仓数据源。FetchHoldings 要么整体成功，要么整体失败。
type Source interface {
	FetchHoldings(ctx context.Context) ([]Asset, error)
}

// StaticSource 返回固定列表，测试与离线模式使用。
type StaticSource struct {
	Assets []Asset
	Err    error
}

func (s *StaticSource) FetchHoldings(ctx context.Context) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Asset, len(s.Assets))
	copy(out, s.Assets)
	return out, nil
}

// NormalizeSymbol 统一符号大小写（行情源返回小写，账本按大写记账）。
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
