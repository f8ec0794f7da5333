package ledgerrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/infrastructure/database"
)

type LedgerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ILedgerRepository {
	return &LedgerRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *LedgerRepository) List(ctx context.Context, accountID string, page, pageSize int) (*domain.LedgerPage, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM ledger_entries WHERE account_id = $1`,
		accountID,
	).Scan(&total)
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to count ledger entries")
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, entry_type, amount_cents, description, balance_after_cents, idempotency_key, metadata, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, pageSize, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to list ledger entries")
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, pageSize)
	for rows.Next() {
		var (
			entry    domain.LedgerEntry
			idemKey  sql.NullString
			metadata pqtype.NullRawMessage
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.EntryType,
			&entry.AmountCents,
			&entry.Description,
			&entry.BalanceAfterCents,
			&idemKey,
			&metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.IdempotencyKey = idemKey.String
		if metadata.Valid {
			entry.Metadata = metadata.RawMessage
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &domain.LedgerPage{
		Entries:    entries,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

func (r *LedgerRepository) Replay(ctx context.Context, accountID string) (int64, int64, error) {
	var sum, count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			coalesce(sum(CASE WHEN entry_type = 'debit' THEN -amount_cents ELSE amount_cents END), 0),
			count(*)
		FROM ledger_entries
		WHERE account_id = $1
	`, accountID).Scan(&sum, &count)
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to replay ledger")
		return 0, 0, fmt.Errorf("failed to replay ledger: %w", err)
	}
	return sum, count, nil
}
