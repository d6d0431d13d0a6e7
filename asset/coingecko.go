package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com"

var (
	ErrStatus = errors.New("unexpected http status")
	ErrDecode = errors.New("decode market data")
)

// MarketQuote 行情源返回的单个币种报价。
type MarketQuote struct {
	ID        string
	Symbol    string
	Name      string
	ImageURL  string
	PriceUSD  decimal.Decimal
	Change24h float64
}

// MarketClient 按币种 id 拉取 USD 报价。
type MarketClient interface {
	Markets(ctx context.Context, ids []string) ([]MarketQuote, error)
}

// CoinGeckoClient 访问 /api/v3/coins/markets；HTTPClient 可注入 httptest。
type CoinGeckoClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    RateLimiter
	MaxRetries int
	RetryDelay time.Duration
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// Markets 拉取给定 id 的 USD 报价。价格按 JSON 原文解析为 decimal，不经过 float64。
func (c *CoinGeckoClient) Markets(ctx context.Context, ids []string) ([]MarketQuote, error) {
	if c == nil || c.HTTPClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	base := c.BaseURL
	if base == "" {
		base = DefaultCoinGeckoURL
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(sorted, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprintf("%d", len(sorted)))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	endpoint := strings.TrimRight(base, "/") + "/api/v3/coins/markets?" + q.Encode()

	body, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return parseMarkets(body)
}

func (c *CoinGeckoClient) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		body, retry, err := c.get(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

// get 返回响应体；retry 表示错误是否值得重试（网络错误、429、5xx）。
func (c *CoinGeckoClient) get(ctx context.Context, endpoint string) (body []byte, retry bool, err error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}
	return body, false, nil
}

func parseMarkets(body []byte) ([]MarketQuote, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrDecode)
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected array", ErrDecode)
	}
	var (
		quotes []MarketQuote
		err    error
	)
	root.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		priceField := item.Get("current_price")
		if id == "" || priceField.Type != gjson.Number {
			err = fmt.Errorf("%w: coin %q has no current_price", ErrDecode, id)
			return false
		}
		price, perr := decimal.NewFromString(priceField.Raw)
		if perr != nil {
			err = fmt.Errorf("%w: coin %s price %q: %v", ErrDecode, id, priceField.Raw, perr)
			return false
		}
		quotes = append(quotes, MarketQuote{
			ID:        id,
			Symbol:    NormalizeSymbol(item.Get("symbol").String()),
			Name:      item.Get("name").String(),
			ImageURL:  item.Get("image").String(),
			PriceUSD:  price,
			Change24h: item.Get("price_change_percentage_24h").Float(),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return quotes, nil
}
