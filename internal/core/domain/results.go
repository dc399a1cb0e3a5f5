package domain

import "github.com/shopspring/decimal"

// MovementResult is returned by single-account operations (deposit, withdrawal, interest, reversal).
type MovementResult struct {
	Transaction Transaction     `json:"transaction"`
	Account     Account         `json:"account"`
	NewBalance  decimal.Decimal `json:"newBalance"`
}

// TransferResult is returned by transfers. Fee is nil when no fee was charged.
type TransferResult struct {
	Transaction    Transaction      `json:"transaction"`
	FeeTransaction *Transaction     `json:"feeTransaction,omitempty"`
	FromAccount    Account          `json:"fromAccount"`
	ToAccount      Account          `json:"toAccount"`
	FromBalance    decimal.Decimal  `json:"fromBalance"`
	ToBalance      decimal.Decimal  `json:"toBalance"`
	Fee            *decimal.Decimal `json:"fee,omitempty"`
}

// BalanceSnapshot is an account together with its most recent ledger entries, newest first.
type BalanceSnapshot struct {
	Account            Account       `json:"account"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}

// Pagination describes an offset-paginated window over a result set.
type Pagination struct {
	CurrentPage       int   `json:"currentPage"`
	PageSize          int   `json:"pageSize"`
	TotalPages        int   `json:"totalPages"`
	TotalTransactions int64 `json:"totalTransactions"`
	HasNextPage       bool  `json:"hasNextPage"`
	HasPrevPage       bool  `json:"hasPrevPage"`
}

// HistoryPage is what storage returns for one history request.
type HistoryPage struct {
	Transactions []Transaction
	Total        int64
	Summary      TransactionSummary
}

// TransactionHistory is a page of an account's filtered history plus a summary over the whole filtered set.
type TransactionHistory struct {
	Transactions []Transaction      `json:"transactions"`
	Pagination   Pagination         `json:"pagination"`
	Summary      TransactionSummary `json:"summary"`
}

// ReversalResult pairs a reversed entry with its counter-entry. Balances holds the
// post-reversal balance of every account the reversal touched.
type ReversalResult struct {
	Original Transaction                `json:"original"`
	Reversal Transaction                `json:"reversal"`
	Balances map[string]decimal.Decimal `json:"balances"`
}
