package asset

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// HoldingsSource 把配置的持仓数量（币种 id → 数量）与实时报价拼成 Asset 列表。
type HoldingsSource struct {
	Market   MarketClient
	Holdings map[string]decimal.Decimal
}

func (s *HoldingsSource) FetchHoldings(ctx context.Context) ([]Asset, error) {
	if len(s.Holdings) == 0 {
		// 无持仓账户不访问行情源
		return []Asset{}, nil
	}
	if s.Market == nil {
		return nil, fmt.Errorf("market client not set")
	}
	ids := make([]string, 0, len(s.Holdings))
	for id := range s.Holdings {
		ids = append(ids, id)
	}
	quotes, err := s.Market.Markets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	assets := make([]Asset, 0, len(quotes))
	for _, q := range quotes {
		qty, ok := s.Holdings[q.ID]
		if !ok {
			continue
		}
		assets = append(assets, Asset{
			ID:       q.ID,
			Symbol:   q.Symbol,
			Name:     q.Name,
			IconURL:  q.ImageURL,
			Quantity: qty,
			PriceUSD: q.PriceUSD,
		})
	}
	return assets, nil
}
