package memoryrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/repositories/balancerepo"
)

// Store is an in-memory implementation of the account, balance and ledger
// repositories. It mirrors the transactional contract of the postgres
// implementations: mutations against one account are serialized, and the
// balance change and ledger append become visible together or not at all.
// It backs the service unit tests and local development without postgres.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	entries  map[string][]domain.LedgerEntry
	locks    map[string]*sync.Mutex
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		entries:  make(map[string][]domain.LedgerEntry),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[accountID]; !ok {
		s.locks[accountID] = &sync.Mutex{}
	}
	return s.locks[accountID]
}

func (s *Store) Create(ctx context.Context) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[account.ID] = account
	return cloneAccount(account), nil
}

func (s *Store) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *Store) Delete(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(s.accounts, accountID)
	delete(s.entries, accountID)
	return nil
}

func (s *Store) Credit(ctx context.Context, input balancerepo.MutationInput) (*domain.Mutation, error) {
	return s.apply(domain.EntryCredit, input)
}

func (s *Store) Debit(ctx context.Context, input balancerepo.MutationInput) (*domain.Mutation, error) {
	return s.apply(domain.EntryDebit, input)
}

func (s *Store) apply(entryType domain.EntryType, input balancerepo.MutationInput) (*domain.Mutation, error) {
	if input.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	lock := s.accountLock(input.AccountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	account, ok := s.accounts[input.AccountID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if input.IdempotencyKey != "" {
		for _, existing := range s.entries[input.AccountID] {
			if existing.IdempotencyKey != input.IdempotencyKey {
				continue
			}
			if existing.EntryType != entryType || existing.AmountCents != input.AmountCents {
				return nil, domain.ErrIdempotencyConflict
			}
			return &domain.Mutation{
				Entry:        existing,
				BalanceCents: account.BalanceCents,
				Replayed:     true,
			}, nil
		}
	}

	var newBalance int64
	switch entryType {
	case domain.EntryCredit:
		newBalance = account.BalanceCents + input.AmountCents
	case domain.EntryDebit:
		if account.BalanceCents < input.AmountCents {
			return nil, &domain.InsufficientFundsError{
				BalanceCents:   account.BalanceCents,
				RequestedCents: input.AmountCents,
			}
		}
		newBalance = account.BalanceCents - input.AmountCents
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
		CreatedAt:         time.Now().UTC(),
	}

	s.mu.Lock()
	account.BalanceCents = newBalance
	account.UpdatedAt = entry.CreatedAt
	s.entries[input.AccountID] = append(s.entries[input.AccountID], entry)
	s.mu.Unlock()

	return &domain.Mutation{Entry: entry, BalanceCents: newBalance}, nil
}

func (s *Store) List(ctx context.Context, accountID string, page, pageSize int) (*domain.LedgerPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.entries[accountID]
	total := int64(len(all))

	// Entries are appended in creation order; history is served newest first.
	start := (page - 1) * pageSize
	entries := make([]domain.LedgerEntry, 0, pageSize)
	for i := len(all) - 1 - start; i >= 0 && len(entries) < pageSize; i-- {
		entries = append(entries, all[i])
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

func (s *Store) Replay(ctx context.Context, accountID string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	all := s.entries[accountID]
	for _, entry := range all {
		sum += entry.SignedCents()
	}
	return sum, int64(len(all)), nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	copied := *a
	return &copied
}
