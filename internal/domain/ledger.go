package domain

import (
	"encoding/json"
	"time"
)

type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// LedgerEntry is one immutable record of a balance-changing event.
// BalanceAfterCents is a point-in-time snapshot taken inside the same
// transaction that moved the balance; it is never recomputed.
type LedgerEntry struct {
	ID                string          `json:"id" db:"id"`
	AccountID         string          `json:"account_id" db:"account_id"`
	EntryType         EntryType       `json:"type" db:"entry_type"`
	AmountCents       int64           `json:"amount_cents" db:"amount_cents"`
	Description       string          `json:"description" db:"description"`
	BalanceAfterCents int64           `json:"balance_after_cents" db:"balance_after_cents"`
	IdempotencyKey    string          `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Metadata          json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// SignedCents is the entry's effect on the balance.
func (e LedgerEntry) SignedCents() int64 {
	if e.EntryType == EntryDebit {
		return -e.AmountCents
	}
	return e.AmountCents
}

// Mutation is the result of one atomic balance change.
type Mutation struct {
	Entry        LedgerEntry `json:"entry"`
	BalanceCents int64       `json:"balance_cents"`
	// Replayed is true when the mutation was matched to an earlier
	// application of the same idempotency key and nothing was written.
	Replayed bool `json:"replayed"`
}

// LedgerPage is one page of transaction history, most recent first.
type LedgerPage struct {
	Entries    []LedgerEntry `json:"entries"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// ReconcileResult compares the stored balance against a full ledger replay.
type ReconcileResult struct {
	AccountID     string `json:"account_id"`
	BalanceCents  int64  `json:"balance_cents"`
	ReplayedCents int64  `json:"replayed_cents"`
	EntryCount    int64  `json:"entry_count"`
	Consistent    bool   `json:"consistent"`
}
