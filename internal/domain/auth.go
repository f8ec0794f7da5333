package domain

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

type Claim struct {
	UserID  uuid.UUID `json:"user_id"`
	TokenID uuid.UUID `json:"token_id"`
	jwt.StandardClaims
}

// RevokedToken is a persisted revocation record. Rows are kept until the
// token itself would have expired, then purged.
type RevokedToken struct {
	TokenID   uuid.UUID `json:"token_id" db:"token_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	RevokedAt time.Time `json:"revoked_at" db:"revoked_at"`
}
