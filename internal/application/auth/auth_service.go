package authservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/papertrade/funds/internal/domain"
)

type IAuthService interface {
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
	VerifyToken(ctx context.Context, tokenString string) (*domain.Claim, error)
	RevokeToken(ctx context.Context, claims *domain.Claim) error
	StartRevocationJanitor(ctx context.Context)
}
