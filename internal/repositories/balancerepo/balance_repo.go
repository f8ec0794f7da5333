package balancerepo

import (
	"context"
	"encoding/json"

	"github.com/papertrade/funds/internal/domain"
)

// MutationInput describes one requested balance change. The idempotency key
// is optional; when present, a retry with the same key replays the recorded
// outcome instead of applying the change again.
type MutationInput struct {
	AccountID      string
	AmountCents    int64
	Description    string
	Metadata       json.RawMessage
	IdempotencyKey string
}

// IBalanceRepository is the sole writer of account balances and ledger
// entries. Each call commits the balance change and its ledger entry in one
// transaction, or neither.
type IBalanceRepository interface {
	Credit(ctx context.Context, input MutationInput) (*domain.Mutation, error)
	Debit(ctx context.Context, input MutationInput) (*domain.Mutation, error)
}
