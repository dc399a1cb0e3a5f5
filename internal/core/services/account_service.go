package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// accountService implements portssvc.AccountSvc
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	cache       portssvc.BalanceCache
	events      portssvc.EventPublisher
	now         func() time.Time
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountBalanceCache lets status changes evict cached balance snapshots.
func WithAccountBalanceCache(cache portssvc.BalanceCache) AccountServiceOption {
	return func(s *accountService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithAccountEventPublisher publishes account lifecycle events.
func WithAccountEventPublisher(publisher portssvc.EventPublisher) AccountServiceOption {
	return func(s *accountService) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvc {
	svc := &accountService{
		accountRepo: repo,
		cache:       portssvc.NoopBalanceCache{},
		events:      portssvc.NoopEventPublisher{},
		now:         time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvc = (*accountService)(nil)

func (s *accountService) OpenAccount(ctx context.Context, req dto.CreateAccountRequest, actorID string) (*domain.Account, error) {
	if !req.AccountType.IsValid() {
		return nil, fmt.Errorf("%w: unsupported account type %q", apperrors.ErrValidation, req.AccountType)
	}
	if len(req.CurrencyCode) != 3 {
		return nil, fmt.Errorf("%w: currency code must be 3 letters", apperrors.ErrValidation)
	}
	rate := decimal.Zero
	if req.InterestRate != nil {
		if err := checkInterestRate(*req.InterestRate); err != nil {
			return nil, err
		}
		rate = *req.InterestRate
	}
	owner := req.UserID
	if owner == "" {
		owner = actorID
	}
	if owner == "" {
		return nil, fmt.Errorf("%w: account owner is required", apperrors.ErrValidation)
	}

	number, err := generateAccountNumber(ctx, s.accountRepo, req.AccountType)
	if err != nil {
		s.LogError(ctx, err, "Failed to allocate account number", slog.String("account_type", string(req.AccountType)))
		return nil, err
	}

	now := s.now().UTC()
	account := domain.Account{
		AccountID:     uuid.NewString(),
		AccountNumber: number,
		UserID:        owner,
		AccountType:   req.AccountType,
		Balance:       decimal.Zero,
		CurrencyCode:  req.CurrencyCode,
		Status:        domain.AccountActive,
		InterestRate:  rate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account",
			slog.String("account_id", account.AccountID),
			slog.String("user_id", owner))
		return nil, err
	}

	if err := s.events.Publish(ctx, portssvc.LedgerEvent{Type: portssvc.EventAccountOpen, Timestamp: now, AccountIDs: []string{account.AccountID}}); err != nil {
		s.LogError(ctx, err, "Failed to publish account event", slog.String("account_id", account.AccountID))
	}

	s.LogInfo(ctx, "Account opened",
		slog.String("account_id", account.AccountID),
		slog.String("account_number", account.AccountNumber),
		slog.String("opened_by", actorID))
	return &account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by ID", slog.String("account_id", accountID))
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by number", slog.String("account_number", accountNumber))
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccountsByUser(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("user_id", userID))
		return nil, err
	}
	return accounts, nil
}

func (s *accountService) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, actorID string) (*domain.Account, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown account status %q", apperrors.ErrValidation, status)
	}
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == domain.AccountClosed && status != domain.AccountClosed {
		return nil, fmt.Errorf("%w: account %s is closed", apperrors.ErrInvalidState, accountID)
	}
	if account.Status == status {
		return account, nil
	}

	now := s.now().UTC()
	if status == domain.AccountClosed {
		err = s.accountRepo.CloseAccount(ctx, accountID, now)
	} else {
		err = s.accountRepo.UpdateAccountStatus(ctx, accountID, status, now)
	}
	if err != nil {
		s.LogFailure(ctx, err, "Failed to update account status",
			slog.String("account_id", accountID),
			slog.String("status", string(status)))
		return nil, err
	}
	s.cache.Invalidate(ctx, accountID)

	account.Status = status
	account.UpdatedAt = now
	s.LogInfo(ctx, "Account status updated",
		slog.String("account_id", accountID),
		slog.String("status", string(status)),
		slog.String("updated_by", actorID))
	return account, nil
}

func (s *accountService) UpdateInterestRate(ctx context.Context, accountID string, rate decimal.Decimal, actorID string) (*domain.Account, error) {
	if err := checkInterestRate(rate); err != nil {
		return nil, err
	}
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == domain.AccountClosed {
		return nil, fmt.Errorf("%w: account %s is closed", apperrors.ErrInvalidState, accountID)
	}

	now := s.now().UTC()
	if err := s.accountRepo.UpdateInterestRate(ctx, accountID, rate, now); err != nil {
		s.LogError(ctx, err, "Failed to update interest rate", slog.String("account_id", accountID))
		return nil, err
	}
	s.cache.Invalidate(ctx, accountID)

	account.InterestRate = rate
	account.UpdatedAt = now
	s.LogInfo(ctx, "Interest rate updated",
		slog.String("account_id", accountID),
		slog.String("interest_rate", rate.String()),
		slog.String("updated_by", actorID))
	return account, nil
}

func (s *accountService) AuthorizeAccountAccess(ctx context.Context, userID, accountID string) error {
	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.UserID != userID {
		s.LogInfo(ctx, "Account access denied",
			slog.String("account_id", accountID),
			slog.String("user_id", userID))
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

// maxInterestRate is the highest annual rate, in percent, an account may carry.
var maxInterestRate = decimal.NewFromInt(100)

func checkInterestRate(rate decimal.Decimal) error {
	switch {
	case rate.IsNegative():
		return fmt.Errorf("%w: interest rate cannot be negative", apperrors.ErrValidation)
	case rate.GreaterThan(maxInterestRate):
		return fmt.Errorf("%w: interest rate cannot exceed %s%%", apperrors.ErrValidation, maxInterestRate)
	case !rate.Equal(rate.Truncate(4)):
		return fmt.Errorf("%w: interest rate allows at most 4 decimal places", apperrors.ErrValidation)
	}
	return nil
}
