package fundsservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/repositories/accountrepo"
	"github.com/papertrade/funds/internal/repositories/balancerepo"
	"github.com/papertrade/funds/internal/repositories/ledgerrepo"
	"github.com/papertrade/funds/pkg/config"
	"github.com/papertrade/funds/pkg/currency"
)

const (
	defaultAddMethod      = "UPI"
	defaultWithdrawMethod = "Bank Transfer"
)

type fundsService struct {
	accountRepo accountrepo.IAccountRepository
	balanceRepo balancerepo.IBalanceRepository
	ledgerRepo  ledgerrepo.ILedgerRepository
	publisher   EventPublisher
	notifier    MutationNotifier
	config      config.LedgerConfig
	logger      zerolog.Logger
}

func New(
	accountRepo accountrepo.IAccountRepository,
	balanceRepo balancerepo.IBalanceRepository,
	ledgerRepo ledgerrepo.ILedgerRepository,
	publisher EventPublisher,
	notifier MutationNotifier,
	cfg config.LedgerConfig,
	logger zerolog.Logger,
) IFundsService {
	return &fundsService{
		accountRepo: accountRepo,
		balanceRepo: balanceRepo,
		ledgerRepo:  ledgerRepo,
		publisher:   publisher,
		notifier:    notifier,
		config:      cfg,
		logger:      logger,
	}
}

func (s *fundsService) CreateAccount(ctx context.Context) (*domain.Account, error) {
	account, err := s.accountRepo.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", account.ID).Msg("Account created")
	return account, nil
}

func (s *fundsService) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.accountRepo.Delete(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", accountID).Msg("Account erased with its ledger")
	return nil
}

func (s *fundsService) AddFunds(ctx context.Context, req FundsRequest) (*domain.Mutation, error) {
	method := req.Method
	if method == "" {
		method = defaultAddMethod
	}

	input, err := s.buildInput(req, method)
	if err != nil {
		return nil, err
	}
	input.Description = fmt.Sprintf("Funds added via %s", method)

	mutation, err := s.balanceRepo.Credit(ctx, input)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, req.AccountID, mutation)
	return mutation, nil
}

func (s *fundsService) WithdrawFunds(ctx context.Context, req FundsRequest) (*domain.Mutation, error) {
	method := req.Method
	if method == "" {
		method = defaultWithdrawMethod
	}

	input, err := s.buildInput(req, method)
	if err != nil {
		return nil, err
	}
	input.Description = fmt.Sprintf("Funds withdrawn via %s", method)

	mutation, err := s.balanceRepo.Debit(ctx, input)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, req.AccountID, mutation)
	return mutation, nil
}

func (s *fundsService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

func (s *fundsService) GetHistory(ctx context.Context, accountID string, page, pageSize int) (*domain.LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.config.DefaultPageSize
	}
	if pageSize > s.config.MaxPageSize {
		pageSize = s.config.MaxPageSize
	}

	if _, err := s.accountRepo.Get(ctx, accountID); err != nil {
		return nil, err
	}

	return s.ledgerRepo.List(ctx, accountID, page, pageSize)
}

func (s *fundsService) Reconcile(ctx context.Context, accountID string) (*domain.ReconcileResult, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sum, count, err := s.ledgerRepo.Replay(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := &domain.ReconcileResult{
		AccountID:     accountID,
		BalanceCents:  account.BalanceCents,
		ReplayedCents: sum,
		EntryCount:    count,
		Consistent:    account.BalanceCents == sum,
	}
	if !result.Consistent {
		s.logger.Error().
			Str("account_id", accountID).
			Int64("balance_cents", account.BalanceCents).
			Int64("replayed_cents", sum).
			Msg("Ledger replay does not match stored balance")
	}
	return result, nil
}

func (s *fundsService) buildInput(req FundsRequest, method string) (balancerepo.MutationInput, error) {
	amountCents, err := currency.ToCents(req.Amount)
	if err != nil {
		return balancerepo.MutationInput{}, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	metadata, err := json.Marshal(map[string]string{"method": method})
	if err != nil {
		return balancerepo.MutationInput{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	return balancerepo.MutationInput{
		AccountID:      req.AccountID,
		AmountCents:    amountCents,
		Metadata:       metadata,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

// afterMutation fans out a committed mutation. Both sinks are best effort:
// the ledger row is already durable, so a delivery failure is logged and the
// operation still succeeds.
func (s *fundsService) afterMutation(ctx context.Context, accountID string, mutation *domain.Mutation) {
	if mutation.Replayed {
		s.logger.Info().
			Str("account_id", accountID).
			Str("idempotency_key", mutation.Entry.IdempotencyKey).
			Msg("Idempotent replay, no new ledger entry")
		return
	}

	s.logger.Info().
		Str("account_id", accountID).
		Str("entry_id", mutation.Entry.ID).
		Str("entry_type", string(mutation.Entry.EntryType)).
		Int64("amount_cents", mutation.Entry.AmountCents).
		Int64("balance_cents", mutation.BalanceCents).
		Msg("Ledger entry committed")

	if s.publisher != nil {
		event := domain.LedgerEntryCreated{
			EntryID:           mutation.Entry.ID,
			AccountID:         accountID,
			EntryType:         mutation.Entry.EntryType,
			AmountCents:       mutation.Entry.AmountCents,
			BalanceAfterCents: mutation.Entry.BalanceAfterCents,
			Description:       mutation.Entry.Description,
			CreatedAt:         mutation.Entry.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error().Err(err).
				Str("entry_id", mutation.Entry.ID).
				Msg("Failed to publish ledger event")
		}
	}

	if s.notifier != nil {
		s.notifier.BroadcastMutation(accountID, *mutation)
	}
}
