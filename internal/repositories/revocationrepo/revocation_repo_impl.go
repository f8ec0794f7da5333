package revocationrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/infrastructure/database"
)

type RevocationRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IRevocationRepository {
	return &RevocationRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *RevocationRepository) Revoke(ctx context.Context, token domain.RevokedToken) error {
	// Revoking the same token twice is a no-op.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (token_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO NOTHING
	`, token.TokenID, token.UserID, token.ExpiresAt)
	if err != nil {
		r.logger.Error().Err(err).Str("token_id", token.TokenID.String()).Msg("Failed to revoke token")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE token_id = $1`,
		tokenID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}

func (r *RevocationRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired revocations: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return purged, nil
}
