package services

import (
	"context"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerSvc moves money. Every operation either commits all of its ledger
// entries and balance changes or none of them.
type LedgerSvc interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.MovementResult, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.MovementResult, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.TransferResult, error)

	// TransferByAccountNumber resolves the destination by account number and then transfers.
	TransferByAccountNumber(ctx context.Context, fromAccountID, toAccountNumber string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.TransferResult, error)

	// ApplyInterest posts one month of interest to an eligible account.
	ApplyInterest(ctx context.Context, accountID string, initiator string) (*domain.MovementResult, error)

	// ReverseTransaction books a counter-entry for a completed entry. An entry can be reversed once.
	ReverseTransaction(ctx context.Context, transactionID, reason, initiator string) (*domain.ReversalResult, error)

	// CancelTransaction cancels a pending entry.
	CancelTransaction(ctx context.Context, transactionID, reason, initiator string) (*domain.Transaction, error)
}

// LedgerQuerySvc reads balances and history. It never mutates.
type LedgerQuerySvc interface {
	GetBalance(ctx context.Context, accountID string, recentLimit int) (*domain.BalanceSnapshot, error)
	GetHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, page, pageSize int) (*domain.TransactionHistory, error)
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
}
