package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Balances and ledger amounts are carried as int64 cents end to end.
// Decimal only appears at the API boundary, where client-supplied amounts
// are parsed and validated before any money math happens.

var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrTooPrecise        = errors.New("amount has more than two decimal places")
	ErrAmountOverflow    = errors.New("amount exceeds the representable range")
)

var maxCents = decimal.NewFromInt(1 << 50)

// ToCents converts a decimal currency amount into integer cents.
// Rejects zero, negative, over-precise and absurdly large values.
func ToCents(amount decimal.Decimal) (int64, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return 0, ErrNonPositiveAmount
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return 0, ErrTooPrecise
	}

	cents := amount.Mul(decimal.NewFromInt(100))
	if cents.Cmp(maxCents) > 0 {
		return 0, ErrAmountOverflow
	}
	return cents.IntPart(), nil
}

// FromCents converts integer cents back to a decimal amount for responses.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// FormatUSD formats cents as a display string.
func FormatUSD(cents int64) string {
	return fmt.Sprintf("$%s", FromCents(cents).StringFixed(2))
}
