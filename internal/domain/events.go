package domain

import "time"

// LedgerEntryCreated is published after a mutation commits. Consumers treat
// it as a notification; the ledger table is the source of truth.
type LedgerEntryCreated struct {
	EntryID           string    `json:"entry_id"`
	AccountID         string    `json:"account_id"`
	EntryType         EntryType `json:"type"`
	AmountCents       int64     `json:"amount_cents"`
	BalanceAfterCents int64     `json:"balance_after_cents"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"created_at"`
}
