package services

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountReaderSvc defines read operations for accounts
type AccountReaderSvc interface {
	// GetAccountByID retrieves an account by its ID.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// GetAccountByNumber retrieves an account by its user-facing number.
	GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)

	// ListAccountsByUser retrieves every account owned by a user.
	ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error)
}

// AccountWriterSvc defines administrative write operations for accounts.
// Balances are not writable here.
type AccountWriterSvc interface {
	// OpenAccount creates a new active account with a zero balance.
	OpenAccount(ctx context.Context, req dto.CreateAccountRequest, actorID string) (*domain.Account, error)

	// UpdateAccountStatus moves an account to a new lifecycle status.
	// Closing is refused while the account still holds money.
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, actorID string) (*domain.Account, error)

	// UpdateInterestRate sets the annual interest rate, in percent, of an open account.
	UpdateInterestRate(ctx context.Context, accountID string, rate decimal.Decimal, actorID string) (*domain.Account, error)
}

// AccountAuthorizerSvc decides whether a user may act on an account.
type AccountAuthorizerSvc interface {
	// AuthorizeAccountAccess returns nil when userID owns accountID. Missing and
	// foreign accounts both yield apperrors.ErrNotFound.
	AuthorizeAccountAccess(ctx context.Context, userID, accountID string) error
}

// AccountSvc combines all account service operations
type AccountSvc interface {
	AccountReaderSvc
	AccountWriterSvc
	AccountAuthorizerSvc
}
