package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/utils/pagination"
)

// DefaultRecentLimit is the number of recent entries returned with a balance when the caller does not say.
const DefaultRecentLimit = 5

// queryService implements portssvc.LedgerQuerySvc
type queryService struct {
	BaseService
	accounts portsrepo.AccountReader
	txns     portsrepo.TransactionReader
	cache    portssvc.BalanceCache
}

// QueryOption is a functional option for configuring the query service
type QueryOption func(*queryService)

// WithQueryBalanceCache serves balance snapshots from cache when possible.
func WithQueryBalanceCache(cache portssvc.BalanceCache) QueryOption {
	return func(s *queryService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// NewQueryService creates the read side of the ledger.
func NewQueryService(repos portsrepo.RepositoryProvider, options ...QueryOption) portssvc.LedgerQuerySvc {
	svc := &queryService{
		accounts: repos.AccountRepo,
		txns:     repos.TransactionRepo,
		cache:    portssvc.NoopBalanceCache{},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LedgerQuerySvc = (*queryService)(nil)

func (s *queryService) GetBalance(ctx context.Context, accountID string, recentLimit int) (*domain.BalanceSnapshot, error) {
	if recentLimit < 0 {
		recentLimit = DefaultRecentLimit
	}
	if cached, ok := s.cache.Get(ctx, accountID, recentLimit); ok {
		s.LogDebug(ctx, "Balance served from cache", slog.String("account_id", accountID))
		return cached, nil
	}

	account, err := s.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load account for balance", slog.String("account_id", accountID))
		}
		return nil, err
	}

	recent := []domain.Transaction{}
	if recentLimit > 0 {
		recent, err = s.txns.ListRecentTransactions(ctx, accountID, recentLimit)
		if err != nil {
			s.LogError(ctx, err, "Failed to load recent transactions", slog.String("account_id", accountID))
			return nil, err
		}
	}

	snapshot := domain.BalanceSnapshot{Account: *account, RecentTransactions: recent}
	s.cache.Set(ctx, snapshot, recentLimit)
	return &snapshot, nil
}

func (s *queryService) GetHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, page, pageSize int) (*domain.TransactionHistory, error) {
	if _, err := s.accounts.FindAccountByID(ctx, accountID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load account for history", slog.String("account_id", accountID))
		}
		return nil, err
	}

	page, pageSize = pagination.Normalize(page, pageSize)
	result, err := s.txns.ListHistory(ctx, accountID, filter, pageSize, pagination.Offset(page, pageSize))
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_id", accountID))
		return nil, err
	}
	items := result.Transactions
	if items == nil {
		items = []domain.Transaction{}
	}

	return &domain.TransactionHistory{
		Transactions: items,
		Pagination:   pagination.NewPagination(page, pageSize, result.Total),
		Summary:      result.Summary,
	}, nil
}

func (s *queryService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txns.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transaction", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}
	return txn, nil
}
