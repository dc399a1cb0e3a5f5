package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType defines the product type of an account.
type AccountType string

const (
	Savings    AccountType = "savings"
	Checking   AccountType = "checking"
	Loan       AccountType = "loan"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

// AccountTypes lists every supported account type.
var AccountTypes = []AccountType{Savings, Checking, Loan, Credit, Investment}

// IsValid reports whether t is one of the supported account types.
func (t AccountType) IsValid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AccountNumberPrefix returns the prefix used for user-facing account numbers of this type.
func (t AccountType) AccountNumberPrefix() string {
	switch t {
	case Savings:
		return "SAV"
	case Checking:
		return "CHK"
	case Loan:
		return "LON"
	case Credit:
		return "CRD"
	case Investment:
		return "INV"
	default:
		return "ACC"
	}
}

// AccountStatus defines the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountInactive  AccountStatus = "inactive"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

// IsValid reports whether s is a known account status.
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountInactive, AccountSuspended, AccountClosed:
		return true
	}
	return false
}

// Account represents a customer account holding a single-currency balance.
type Account struct {
	AccountID     string          `json:"accountID"`     // Opaque identifier used by ledger entries
	AccountNumber string          `json:"accountNumber"` // User-facing, unique
	UserID        string          `json:"userID"`        // Owning user
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	CurrencyCode  string          `json:"currencyCode"` // Immutable once set
	Status        AccountStatus   `json:"status"`
	InterestRate  decimal.Decimal `json:"interestRate"` // Annual percentage, non-negative
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsActive reports whether the account accepts debits and credits.
func (a Account) IsActive() bool {
	return a.Status == AccountActive
}

// SameOwner reports whether both accounts belong to the same user.
func (a Account) SameOwner(other Account) bool {
	return a.UserID == other.UserID
}
