package accountrepo

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

type AccountRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IAccountRepository {
	return &AccountRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *AccountRepository) Create(ctx context.Context) (*domain.Account, error) {
	var account domain.Account
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, balance_cents)
		VALUES ($1, 0)
		RETURNING id, balance_cents, created_at, updated_at
	`, uuid.New()).Scan(
		&account.ID,
		&account.BalanceCents,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to create account")
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, balance_cents, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(
		&account.ID,
		&account.BalanceCents,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account")
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// Delete erases an account and all of its ledger entries in one transaction.
func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE account_id = $1`, accountID); err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to delete ledger entries")
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to delete account")
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}

	return tx.Commit()
}
