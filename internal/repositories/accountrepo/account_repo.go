package accountrepo

import (
	"context"

	"github.com/papertrade/funds/internal/domain"
)

type IAccountRepository interface {
	Create(ctx context.Context) (*domain.Account, error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Delete(ctx context.Context, accountID string) error
}
