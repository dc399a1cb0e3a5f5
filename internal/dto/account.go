package dto

import (
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to open a new account.
type CreateAccountRequest struct {
	AccountType  domain.AccountType `json:"accountType" binding:"required,oneof=savings checking loan credit investment"`
	CurrencyCode string             `json:"currencyCode" binding:"required,len=3,uppercase"`
	InterestRate *decimal.Decimal   `json:"interestRate"` // Optional, annual percentage
	UserID       string             `json:"userID"`       // Optional, defaults to the caller; admins only
}

// UpdateAccountStatusRequest defines the payload for changing an account's status.
type UpdateAccountStatusRequest struct {
	Status domain.AccountStatus `json:"status" binding:"required,oneof=active inactive suspended closed"`
}

// UpdateInterestRateRequest defines the payload for changing an account's interest rate.
type UpdateInterestRateRequest struct {
	InterestRate *decimal.Decimal `json:"interestRate" binding:"required"` // Annual percentage
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID     string               `json:"accountID"`
	AccountNumber string               `json:"accountNumber"`
	UserID        string               `json:"userID"`
	AccountType   domain.AccountType   `json:"accountType"`
	Balance       decimal.Decimal      `json:"balance"`
	CurrencyCode  string               `json:"currencyCode"`
	Status        domain.AccountStatus `json:"status"`
	InterestRate  decimal.Decimal      `json:"interestRate"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		AccountNumber: acc.AccountNumber,
		UserID:        acc.UserID,
		AccountType:   acc.AccountType,
		Balance:       acc.Balance,
		CurrencyCode:  acc.CurrencyCode,
		Status:        acc.Status,
		InterestRate:  acc.InterestRate,
		CreatedAt:     acc.CreatedAt,
		UpdatedAt:     acc.UpdatedAt,
	}
}

// AccountBalanceResponse defines the data returned for a balance query.
type AccountBalanceResponse struct {
	AccountID          string                `json:"accountID"`
	AccountNumber      string                `json:"accountNumber"`
	Balance            decimal.Decimal       `json:"balance"`
	CurrencyCode       string                `json:"currencyCode"`
	Status             domain.AccountStatus  `json:"status"`
	RecentTransactions []TransactionResponse `json:"recentTransactions"`
}

// ToAccountBalanceResponse converts a balance snapshot into its response DTO.
func ToAccountBalanceResponse(s *domain.BalanceSnapshot) AccountBalanceResponse {
	return AccountBalanceResponse{
		AccountID:          s.Account.AccountID,
		AccountNumber:      s.Account.AccountNumber,
		Balance:            s.Account.Balance,
		CurrencyCode:       s.Account.CurrencyCode,
		Status:             s.Account.Status,
		RecentTransactions: ToTransactionResponses(s.RecentTransactions),
	}
}

// ListAccountsResponse wraps the accounts owned by the caller.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// ToListAccountsResponse converts a slice of domain.Account to ListAccountsResponse.
func ToListAccountsResponse(accounts []domain.Account) ListAccountsResponse {
	resp := ListAccountsResponse{Accounts: make([]AccountResponse, len(accounts))}
	for i := range accounts {
		resp.Accounts[i] = ToAccountResponse(&accounts[i])
	}
	return resp
}
