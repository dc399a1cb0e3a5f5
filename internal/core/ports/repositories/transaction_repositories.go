package repositories

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
)

// TransactionReader defines read operations over the ledger.
type TransactionReader interface {
	// FindTransactionByID retrieves a single ledger entry.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListRecentTransactions returns up to limit entries touching the account, newest first.
	ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)

	// ListHistory returns one page of the filtered history, newest first, the
	// number of matching entries and a summary over all of them. The three are
	// read from one snapshot so they agree under concurrent writes.
	ListHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, limit, offset int) (domain.HistoryPage, error)
}
