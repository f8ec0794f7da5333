package fundsservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/papertrade/funds/internal/application/fundsservice"
	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/repositories/memoryrepo"
	"github.com/papertrade/funds/pkg/config"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEntryCreated
}

func (p *capturingPublisher) Publish(ctx context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(domain.LedgerEntryCreated); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func newTestService(t *testing.T) (fundsservice.IFundsService, *memoryrepo.Store, *capturingPublisher) {
	t.Helper()

	store := memoryrepo.New()
	publisher := &capturingPublisher{}
	svc := fundsservice.New(
		store,
		store,
		store,
		publisher,
		nil,
		config.LedgerConfig{DefaultPageSize: 20, MaxPageSize: 100},
		zerolog.Nop(),
	)
	return svc, store, publisher
}

func newTestAccount(t *testing.T, svc fundsservice.IFundsService) string {
	t.Helper()
	account, err := svc.CreateAccount(context.Background())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.BalanceCents != 0 {
		t.Fatalf("new account balance = %d, want 0", account.BalanceCents)
	}
	return account.ID
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddFunds(t *testing.T) {
	svc, _, publisher := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	mutation, err := svc.AddFunds(ctx, fundsservice.FundsRequest{
		AccountID: accountID,
		Amount:    dec("1000"),
		Method:    "UPI",
	})
	if err != nil {
		t.Fatalf("add funds: %v", err)
	}

	if mutation.BalanceCents != 100000 {
		t.Fatalf("balance = %d cents, want 100000", mutation.BalanceCents)
	}
	entry := mutation.Entry
	if entry.EntryType != domain.EntryCredit {
		t.Fatalf("entry type = %s, want credit", entry.EntryType)
	}
	if entry.AmountCents != 100000 {
		t.Fatalf("entry amount = %d, want 100000", entry.AmountCents)
	}
	if entry.BalanceAfterCents != mutation.BalanceCents {
		t.Fatalf("balance_after = %d, balance = %d; must match", entry.BalanceAfterCents, mutation.BalanceCents)
	}
	if entry.Description != "Funds added via UPI" {
		t.Fatalf("description = %q", entry.Description)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	if publisher.events[0].EntryID != entry.ID {
		t.Fatalf("published entry id %s, want %s", publisher.events[0].EntryID, entry.ID)
	}
}

func TestInvalidAmountRejectedBeforeMutation(t *testing.T) {
	svc, store, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "0.001"} {
		_, err := svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec(amount)})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
		_, err = svc.WithdrawFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec(amount)})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	balance, err := svc.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance changed to %d after rejected operations", balance)
	}
	if _, count, _ := store.Replay(ctx, accountID); count != 0 {
		t.Fatalf("ledger has %d entries after rejected operations", count)
	}
}

func TestWithdrawInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	svc, store, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	if _, err := svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("1000")}); err != nil {
		t.Fatalf("add funds: %v", err)
	}

	_, err := svc.WithdrawFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("1500")})
	ife, ok := domain.IsInsufficientFunds(err)
	if !ok {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if ife.BalanceCents != 100000 {
		t.Fatalf("reported balance = %d, want 100000", ife.BalanceCents)
	}

	balance, _ := svc.GetBalance(ctx, accountID)
	if balance != 100000 {
		t.Fatalf("balance = %d after rejected withdrawal, want 100000", balance)
	}
	if _, count, _ := store.Replay(ctx, accountID); count != 1 {
		t.Fatalf("ledger has %d entries, want 1", count)
	}
}

func TestAccountNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddFunds(ctx, fundsservice.FundsRequest{
		AccountID: "b4f9ad7e-0000-0000-0000-000000000000",
		Amount:    dec("10"),
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

// Mirrors the canonical flow: deposit 1000, a rejected over-withdrawal, then
// withdraw 400, and the history pages out newest first.
func TestHistoryNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	if _, err := svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("1000"), Method: "UPI"}); err != nil {
		t.Fatalf("add funds: %v", err)
	}
	if _, err := svc.WithdrawFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("1500"), Method: "Bank Transfer"}); err == nil {
		t.Fatal("expected over-withdrawal to fail")
	}
	if _, err := svc.WithdrawFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("400"), Method: "UPI"}); err != nil {
		t.Fatalf("withdraw funds: %v", err)
	}

	history, err := svc.GetHistory(ctx, accountID, 1, 10)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if history.TotalCount != 2 || len(history.Entries) != 2 {
		t.Fatalf("history has %d entries (total %d), want 2", len(history.Entries), history.TotalCount)
	}
	if history.TotalPages != 1 {
		t.Fatalf("total pages = %d, want 1", history.TotalPages)
	}

	newest, oldest := history.Entries[0], history.Entries[1]
	if newest.EntryType != domain.EntryDebit || newest.AmountCents != 40000 || newest.BalanceAfterCents != 60000 {
		t.Fatalf("newest entry = %+v, want debit 40000 balance_after 60000", newest)
	}
	if oldest.EntryType != domain.EntryCredit || oldest.AmountCents != 100000 || oldest.BalanceAfterCents != 100000 {
		t.Fatalf("oldest entry = %+v, want credit 100000 balance_after 100000", oldest)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("10")}); err != nil {
			t.Fatalf("add funds: %v", err)
		}
	}

	page2, err := svc.GetHistory(ctx, accountID, 2, 2)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(page2.Entries) != 2 || page2.TotalPages != 3 || page2.TotalCount != 5 {
		t.Fatalf("page 2 = %d entries, %d pages, %d total; want 2, 3, 5",
			len(page2.Entries), page2.TotalPages, page2.TotalCount)
	}

	// Pages walk strictly backwards through the balance history.
	if page2.Entries[0].BalanceAfterCents != 3000 || page2.Entries[1].BalanceAfterCents != 2000 {
		t.Fatalf("page 2 balances = %d, %d; want 3000, 2000",
			page2.Entries[0].BalanceAfterCents, page2.Entries[1].BalanceAfterCents)
	}
}

func TestLedgerReplayMatchesBalance(t *testing.T) {
	svc, _, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	ops := []struct {
		withdraw bool
		amount   string
	}{
		{false, "250.75"}, {false, "100"}, {true, "50.25"},
		{true, "300"}, {false, "12.01"}, {true, "0.51"},
	}
	for _, op := range ops {
		var err error
		if op.withdraw {
			_, err = svc.WithdrawFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec(op.amount)})
		} else {
			_, err = svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec(op.amount)})
		}
		if err != nil {
			t.Fatalf("op %+v: %v", op, err)
		}
	}

	result, err := svc.Reconcile(ctx, accountID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.Consistent {
		t.Fatalf("ledger replay %d does not match balance %d", result.ReplayedCents, result.BalanceCents)
	}
	if result.EntryCount != int64(len(ops)) {
		t.Fatalf("entry count = %d, want %d", result.EntryCount, len(ops))
	}

	// Adjacent entries must chain: balance_after[i] = balance_after[i+1] + signed amount.
	history, err := svc.GetHistory(ctx, accountID, 1, 100)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	for i := 0; i+1 < len(history.Entries); i++ {
		cur, prev := history.Entries[i], history.Entries[i+1]
		if cur.BalanceAfterCents != prev.BalanceAfterCents+cur.SignedCents() {
			t.Fatalf("entry %d breaks the chain: %d != %d + %d",
				i, cur.BalanceAfterCents, prev.BalanceAfterCents, cur.SignedCents())
		}
	}
}

func TestConcurrentWithdrawalsExactBalance(t *testing.T) {
	svc, _, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	if _, err := svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("100")}); err != nil {
		t.Fatalf("add funds: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.WithdrawFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("100")})
		}(i)
	}
	wg.Wait()

	var successes, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			if _, ok := domain.IsInsufficientFunds(err); !ok {
				t.Fatalf("unexpected error: %v", err)
			}
			rejections++
		}
	}
	if successes != 1 || rejections != workers-1 {
		t.Fatalf("successes = %d, rejections = %d; want 1 and %d", successes, rejections, workers-1)
	}

	balance, _ := svc.GetBalance(ctx, accountID)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestIdempotentRetryDoesNotDoubleApply(t *testing.T) {
	svc, _, publisher := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	req := fundsservice.FundsRequest{
		AccountID:      accountID,
		Amount:         dec("500"),
		Method:         "UPI",
		IdempotencyKey: "op-1",
	}

	first, err := svc.AddFunds(ctx, req)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	retry, err := svc.AddFunds(ctx, req)
	if err != nil {
		t.Fatalf("retry add: %v", err)
	}

	if !retry.Replayed {
		t.Fatal("retry was not flagged as a replay")
	}
	if retry.Entry.ID != first.Entry.ID {
		t.Fatalf("retry returned entry %s, want %s", retry.Entry.ID, first.Entry.ID)
	}

	balance, _ := svc.GetBalance(ctx, accountID)
	if balance != 50000 {
		t.Fatalf("balance = %d after retry, want 50000", balance)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1 (replay must not republish)", len(publisher.events))
	}
}

func TestIdempotencyKeyConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	if _, err := svc.AddFunds(ctx, fundsservice.FundsRequest{
		AccountID: accountID, Amount: dec("500"), IdempotencyKey: "op-1",
	}); err != nil {
		t.Fatalf("add funds: %v", err)
	}

	_, err := svc.AddFunds(ctx, fundsservice.FundsRequest{
		AccountID: accountID, Amount: dec("600"), IdempotencyKey: "op-1",
	})
	if !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}

	_, err = svc.WithdrawFunds(ctx, fundsservice.FundsRequest{
		AccountID: accountID, Amount: dec("500"), IdempotencyKey: "op-1",
	})
	if !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict for type mismatch, got %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	svc, store, _ := newTestService(t)
	accountID := newTestAccount(t, svc)
	ctx := context.Background()

	if _, err := svc.AddFunds(ctx, fundsservice.FundsRequest{AccountID: accountID, Amount: dec("10")}); err != nil {
		t.Fatalf("add funds: %v", err)
	}

	if err := svc.DeleteAccount(ctx, accountID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := svc.GetBalance(ctx, accountID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound after delete, got %v", err)
	}
	if _, count, _ := store.Replay(ctx, accountID); count != 0 {
		t.Fatalf("%d ledger entries survived account deletion", count)
	}
}
