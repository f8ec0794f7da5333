package balancerepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/infrastructure/database"
)

const uniqueViolation = "23505"

type BalanceRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IBalanceRepository {
	return &BalanceRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *BalanceRepository) Credit(ctx context.Context, input MutationInput) (*domain.Mutation, error) {
	return r.apply(ctx, domain.EntryCredit, input)
}

func (r *BalanceRepository) Debit(ctx context.Context, input MutationInput) (*domain.Mutation, error) {
	return r.apply(ctx, domain.EntryDebit, input)
}

// apply performs one balance mutation. The account row is locked first, so
// mutations against the same account are strictly serialized; the sufficiency
// check, the balance update and the ledger append all happen under that lock
// and commit together.
func (r *BalanceRepository) apply(ctx context.Context, entryType domain.EntryType, input MutationInput) (*domain.Mutation, error) {
	if input.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM accounts WHERE id = $1 FOR UPDATE`,
		input.AccountID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	if input.IdempotencyKey != "" {
		existing, err := getEntryByIdempotencyKey(ctx, tx, input.AccountID, input.IdempotencyKey)
		if err == nil {
			if existing.EntryType != entryType || existing.AmountCents != input.AmountCents {
				return nil, domain.ErrIdempotencyConflict
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit: %w", err)
			}
			return &domain.Mutation{Entry: *existing, BalanceCents: balance, Replayed: true}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	var newBalance int64
	switch entryType {
	case domain.EntryCredit:
		err = tx.QueryRowContext(ctx, `
			UPDATE accounts
			SET balance_cents = balance_cents + $1, updated_at = now()
			WHERE id = $2
			RETURNING balance_cents
		`, input.AmountCents, input.AccountID).Scan(&newBalance)
	case domain.EntryDebit:
		if balance < input.AmountCents {
			return nil, &domain.InsufficientFundsError{
				BalanceCents:   balance,
				RequestedCents: input.AmountCents,
			}
		}
		// The balance >= amount guard is repeated in the UPDATE so the
		// non-negativity invariant holds at the statement level too.
		err = tx.QueryRowContext(ctx, `
			UPDATE accounts
			SET balance_cents = balance_cents - $1, updated_at = now()
			WHERE id = $2 AND balance_cents >= $1
			RETURNING balance_cents
		`, input.AmountCents, input.AccountID).Scan(&newBalance)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.InsufficientFundsError{
				BalanceCents:   balance,
				RequestedCents: input.AmountCents,
			}
		}
	default:
		return nil, fmt.Errorf("unknown entry type %q", entryType)
	}
	if err != nil {
		r.logger.Error().Err(err).
			Str("account_id", input.AccountID).
			Str("entry_type", string(entryType)).
			Msg("Failed to update balance")
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	entry := domain.LedgerEntry{
		ID:                uuid.New().String(),
		AccountID:         input.AccountID,
		EntryType:         entryType,
		AmountCents:       input.AmountCents,
		Description:       input.Description,
		BalanceAfterCents: newBalance,
		IdempotencyKey:    input.IdempotencyKey,
		Metadata:          input.Metadata,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries
			(id, account_id, entry_type, amount_cents, description, balance_after_cents, idempotency_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		entry.ID,
		entry.AccountID,
		string(entry.EntryType),
		entry.AmountCents,
		entry.Description,
		entry.BalanceAfterCents,
		sql.NullString{String: entry.IdempotencyKey, Valid: entry.IdempotencyKey != ""},
		pqtype.NullRawMessage{RawMessage: entry.Metadata, Valid: entry.Metadata != nil},
	).Scan(&entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrIdempotencyConflict
		}
		r.logger.Error().Err(err).
			Str("account_id", input.AccountID).
			Msg("Failed to append ledger entry")
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &domain.Mutation{Entry: entry, BalanceCents: newBalance}, nil
}

func getEntryByIdempotencyKey(ctx context.Context, tx *sql.Tx, accountID, key string) (*domain.LedgerEntry, error) {
	var (
		entry    domain.LedgerEntry
		idemKey  sql.NullString
		metadata pqtype.NullRawMessage
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, account_id, entry_type, amount_cents, description, balance_after_cents, idempotency_key, metadata, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND idempotency_key = $2
	`, accountID, key).Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.EntryType,
		&entry.AmountCents,
		&entry.Description,
		&entry.BalanceAfterCents,
		&idemKey,
		&metadata,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.IdempotencyKey = idemKey.String
	if metadata.Valid {
		entry.Metadata = metadata.RawMessage
	}
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation
}
