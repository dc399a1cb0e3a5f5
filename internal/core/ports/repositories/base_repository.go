package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerTx is the mutation scope handed out by a UnitOfWork. Every write made
// through it commits together or not at all.
type LedgerTx interface {
	// Account returns the locked snapshot of an account taken when the scope was opened.
	// The snapshot reflects credits and debits already applied in this scope.
	Account(accountID string) (domain.Account, bool)

	// InsertTransaction appends a new ledger entry.
	InsertTransaction(ctx context.Context, txn domain.Transaction) error

	// CompleteTransaction marks a pending entry completed and stamps its processed time.
	CompleteTransaction(ctx context.Context, transactionID string, processedAt time.Time) error

	// UpdateTransactionStatus moves an entry to a new status and replaces its metadata.
	UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, metadata domain.TransactionMetadata) error

	// Credit adds amount to an active account and returns the new balance.
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error)

	// Debit removes amount from an active account, refusing to go below floor, and returns the new balance.
	Debit(ctx context.Context, accountID string, amount, floor decimal.Decimal, now time.Time) (decimal.Decimal, error)

	// FindTransaction reads an entry inside the scope.
	FindTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindReversal returns the entry that reversed transactionID, or apperrors.ErrNotFound.
	FindReversal(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// UnitOfWork opens locked mutation scopes over a set of accounts.
type UnitOfWork interface {
	// WithinAccountLock locks the given accounts in ascending ID order, runs fn, and
	// commits on a nil return. Any error rolls back every write made through the LedgerTx.
	// Accounts that do not exist are simply absent from LedgerTx.Account.
	WithinAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx LedgerTx) error) error
}
