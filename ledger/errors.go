package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("transfer amount must be positive")
	ErrInvalidAccount      = errors.New("unknown account")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
