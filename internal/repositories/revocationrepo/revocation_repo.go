package revocationrepo

import (
	"context"

	"github.com/google/uuid"

	"github.com/papertrade/funds/internal/domain"
)

// IRevocationRepository persists token revocations until the tokens would
// have expired on their own. Revocation state survives restarts and is
// shared across instances, unlike an in-process blacklist.
type IRevocationRepository interface {
	Revoke(ctx context.Context, token domain.RevokedToken) error
	IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}
