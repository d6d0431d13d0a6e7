package portfolio

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatUSD 以美元格式输出（四舍五入到分），例如 $50,000.00。
func FormatUSD(amount decimal.Decimal) string {
	cur := money.GetCurrency(money.USD)
	cents := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(cents.IntPart(), money.USD).Display()
}

// FormatPercent 带符号的百分比，保留两位小数。
func FormatPercent(pct decimal.Decimal) string {
	r := pct.Round(2)
	s := r.StringFixed(2) + "%"
	if !r.IsNegative() {
		s = "+" + s
	}
	return s
}
