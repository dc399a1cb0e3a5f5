// Package policy holds the pure fee, minimum-balance and interest rules
// applied by the ledger. Nothing here touches storage.
package policy

import (
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Policy is the tunable rule set. The zero value charges nothing and enforces no floors;
// use DefaultPolicy for the production tables.
type Policy struct {
	MinimumBalances  map[domain.AccountType]decimal.Decimal
	BaseFee          decimal.Decimal
	FeeRate          decimal.Decimal
	MinFee           decimal.Decimal
	MaxFee           decimal.Decimal
	InterestEligible map[domain.AccountType]bool
}

// DefaultPolicy returns the standard minimum balances and transfer fee schedule.
func DefaultPolicy() Policy {
	return Policy{
		MinimumBalances: map[domain.AccountType]decimal.Decimal{
			domain.Savings:    decimal.NewFromInt(100),
			domain.Checking:   decimal.NewFromInt(25),
			domain.Loan:       decimal.Zero,
			domain.Credit:     decimal.Zero,
			domain.Investment: decimal.NewFromInt(500),
		},
		BaseFee: decimal.NewFromInt(2),
		FeeRate: decimal.RequireFromString("0.001"),
		MinFee:  decimal.NewFromInt(1),
		MaxFee:  decimal.NewFromInt(50),
		InterestEligible: map[domain.AccountType]bool{
			domain.Savings:    true,
			domain.Investment: true,
		},
	}
}

// MinimumBalance returns the floor an account of the given type may not drop below.
// Unknown types have no floor.
func (p Policy) MinimumBalance(accountType domain.AccountType) decimal.Decimal {
	if floor, ok := p.MinimumBalances[accountType]; ok {
		return floor
	}
	return decimal.Zero
}

// TransferFee computes the fee charged to the source of a transfer.
// Transfers between accounts of the same owner are free.
func (p Policy) TransferFee(from, to domain.Account, amount decimal.Decimal) decimal.Decimal {
	if from.SameOwner(to) {
		return decimal.Zero
	}
	fee := p.BaseFee.Add(amount.Mul(p.FeeRate))
	if fee.LessThan(p.MinFee) {
		fee = p.MinFee
	}
	if fee.GreaterThan(p.MaxFee) {
		fee = p.MaxFee
	}
	return fee.Round(2)
}

// IsInterestEligible reports whether accounts of this type accrue interest.
func (p Policy) IsInterestEligible(accountType domain.AccountType) bool {
	return p.InterestEligible[accountType]
}

// MonthlyInterest returns one month of interest on the current balance, rounded to cents.
// Ineligible types, negative balances and zero rates yield zero.
func (p Policy) MonthlyInterest(account domain.Account) decimal.Decimal {
	if !p.IsInterestEligible(account.AccountType) {
		return decimal.Zero
	}
	if !account.Balance.IsPositive() || !account.InterestRate.IsPositive() {
		return decimal.Zero
	}
	return account.Balance.Mul(account.InterestRate).Div(decimal.NewFromInt(1200)).Round(2)
}
