package fundsservice

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/papertrade/funds/internal/domain"
)

// FundsRequest is one add or withdraw operation as received from the HTTP
// layer. AccountID comes from the verified token, never from the body.
type FundsRequest struct {
	AccountID      string
	Amount         decimal.Decimal
	Method         string
	IdempotencyKey string
}

type IFundsService interface {
	CreateAccount(ctx context.Context) (*domain.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
	AddFunds(ctx context.Context, req FundsRequest) (*domain.Mutation, error)
	WithdrawFunds(ctx context.Context, req FundsRequest) (*domain.Mutation, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	GetHistory(ctx context.Context, accountID string, page, pageSize int) (*domain.LedgerPage, error)
	Reconcile(ctx context.Context, accountID string) (*domain.ReconcileResult, error)
}

// EventPublisher delivers committed ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// MutationNotifier pushes committed mutations to connected dashboard clients.
type MutationNotifier interface {
	BroadcastMutation(accountID string, mutation domain.Mutation)
}
