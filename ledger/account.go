package ledger

import (
	"fmt"
	"strings"
)

// Account 子账户标识。
type Account int

const (
	Funding Account = iota + 1
	Trading
)

// Accounts 全部有效子账户，顺序固定。
var Accounts = []Account{Funding, Trading}

func (a Account) String() string {
	switch a {
	case Funding:
		return "funding"
	case Trading:
		return "trading"
	default:
		return fmt.Sprintf("account(%d)", int(a))
	}
}

// Valid 是否为已知子账户。
func (a Account) Valid() bool {
	return a == Funding || a == Trading
}

// ParseAccount 解析 "funding" / "trading"（忽略大小写）。
func ParseAccount(s string) (Account, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "funding":
		return Funding, nil
	case "trading":
		return Trading, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAccount, s)
	}
}

func (a Account) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAccount, int(a))
	}
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
