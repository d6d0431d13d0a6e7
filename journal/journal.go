// Package journal records every transfer attempt made against the ledger.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status 划转结果。
type Status string

const (
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// DefaultListLimit List 未指定 limit 时的条数。
const DefaultListLimit = 50

var ErrClosed = errors.New("journal store closed")

// Record 一次划转尝试。
type Record struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Status    Status          `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewRecord 生成带 uuid 的记录。
func NewRecord(symbol string, amount decimal.Decimal, from, to string, status Status, reason string, at time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Amount:    amount,
		From:      from,
		To:        to,
		Status:    status,
		Reason:    reason,
		CreatedAt: at,
	}
}

// Store 划转流水存储。List 按写入顺序倒序返回。
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
