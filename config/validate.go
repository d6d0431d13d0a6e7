package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validate ensures required fields are present and in range.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Source.PollInterval <= 0 {
		return ErrInvalid("source.pollInterval must be > 0")
	}
	if cfg.Source.RateLimit < 0 || cfg.Source.Burst < 0 {
		return ErrInvalid("source.rateLimit/burst must be >= 0")
	}
	if cfg.Source.MaxRetries < 0 || cfg.Source.RetryDelay < 0 {
		return ErrInvalid("source.maxRetries/retryDelay must be >= 0")
	}
	if _, err := cfg.Portfolio.Location(); err != nil {
		return err
	}
	if _, err := cfg.Portfolio.HoldingQuantities(); err != nil {
		return err
	}
	for i, a := range cfg.Portfolio.Offline {
		if a.Symbol == "" {
			return ErrInvalid(fmt.Sprintf("portfolio.offline[%d].symbol is required", i))
		}
		if _, err := decimal.NewFromString(a.Quantity); err != nil {
			return fmt.Errorf("portfolio.offline[%d].quantity: %w", i, err)
		}
		if _, err := decimal.NewFromString(a.PriceUSD); err != nil {
			return fmt.Errorf("portfolio.offline[%d].priceUSD: %w", i, err)
		}
	}
	switch cfg.Journal.Driver {
	case JournalMemory:
	case JournalSQLite:
		if cfg.Journal.Path == "" {
			return ErrInvalid("journal.path is required for sqlite")
		}
	default:
		return ErrInvalid(fmt.Sprintf("journal.driver %q not supported", cfg.Journal.Driver))
	}
	if cfg.Alert.Throttle < 0 || cfg.Alert.AfterFailures < 0 {
		return ErrInvalid("alert.throttle/afterFailures must be >= 0")
	}
	if cfg.HTTP.Addr == "" {
		return ErrInvalid("http.addr is required")
	}
	return nil
}

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }
