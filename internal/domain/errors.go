package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAccountNotFound     = errors.New("account not found")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different payload")
)

// InsufficientFundsError carries the balance at the time of rejection so the
// caller can report it. The rejected operation writes nothing.
type InsufficientFundsError struct {
	BalanceCents   int64
	RequestedCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d cents, requested %d cents",
		e.BalanceCents, e.RequestedCents)
}

// IsInsufficientFunds reports whether err is an insufficient-funds rejection.
func IsInsufficientFunds(err error) (*InsufficientFundsError, bool) {
	var ife *InsufficientFundsError
	if errors.As(err, &ife) {
		return ife, true
	}
	return nil, false
}
