package ledgerrepo

import (
	"context"

	"github.com/papertrade/funds/internal/domain"
)

type ILedgerRepository interface {
	// List returns one page of an account's history, newest first.
	// page is 1-based; callers are expected to pass sane bounds.
	List(ctx context.Context, accountID string, page, pageSize int) (*domain.LedgerPage, error)
	// Replay folds every entry for the account in creation order and
	// returns the signed sum and the entry count.
	Replay(ctx context.Context, accountID string) (sum int64, count int64, err error)
}
