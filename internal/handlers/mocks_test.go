package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockAccountService) OpenAccount(ctx context.Context, req dto.CreateAccountRequest, actorID string) (*domain.Account, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, actorID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID, status, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) UpdateInterestRate(ctx context.Context, accountID string, rate decimal.Decimal, actorID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID, rate, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountService) AuthorizeAccountAccess(ctx context.Context, userID, accountID string) error {
	args := m.Called(ctx, userID, accountID)
	return args.Error(0)
}

// Ensure mock implements the interface
var _ portssvc.AccountSvc = (*MockAccountService)(nil)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.MovementResult, error) {
	args := m.Called(ctx, accountID, amount, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MovementResult), args.Error(1)
}
func (m *MockLedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.MovementResult, error) {
	args := m.Called(ctx, accountID, amount, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MovementResult), args.Error(1)
}
func (m *MockLedgerService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.TransferResult, error) {
	args := m.Called(ctx, fromAccountID, toAccountID, amount, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}
func (m *MockLedgerService) TransferByAccountNumber(ctx context.Context, fromAccountID, toAccountNumber string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.TransferResult, error) {
	args := m.Called(ctx, fromAccountID, toAccountNumber, amount, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}
func (m *MockLedgerService) ApplyInterest(ctx context.Context, accountID string, initiator string) (*domain.MovementResult, error) {
	args := m.Called(ctx, accountID, initiator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MovementResult), args.Error(1)
}
func (m *MockLedgerService) ReverseTransaction(ctx context.Context, transactionID, reason, initiator string) (*domain.ReversalResult, error) {
	args := m.Called(ctx, transactionID, reason, initiator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReversalResult), args.Error(1)
}
func (m *MockLedgerService) CancelTransaction(ctx context.Context, transactionID, reason, initiator string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, reason, initiator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

var _ portssvc.LedgerSvc = (*MockLedgerService)(nil)

// --- Mock QueryService ---
type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) GetBalance(ctx context.Context, accountID string, recentLimit int) (*domain.BalanceSnapshot, error) {
	args := m.Called(ctx, accountID, recentLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceSnapshot), args.Error(1)
}
func (m *MockQueryService) GetHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, page, pageSize int) (*domain.TransactionHistory, error) {
	args := m.Called(ctx, accountID, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionHistory), args.Error(1)
}
func (m *MockQueryService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

var _ portssvc.LedgerQuerySvc = (*MockQueryService)(nil)

const testJWTSecret = "test-secret-key-that-is-long-enough"

// generateTestToken creates a signed JWT for the given user and role.
func generateTestToken(t *testing.T, userID, role string) string {
	t.Helper()
	claims := middleware.LedgerClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ledger-test",
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err, "Failed to sign test token")
	return signed
}

func decimalEq(want string) interface{} {
	w := decimal.RequireFromString(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(w) })
}
