package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DepositRequest credits an account.
type DepositRequest struct {
	AccountID   string            `json:"accountID" binding:"required"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

// WithdrawRequest debits an account.
type WithdrawRequest struct {
	AccountID   string            `json:"accountID" binding:"required"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

// TransferRequest moves money between two accounts identified by ID.
type TransferRequest struct {
	FromAccountID string            `json:"fromAccountID" binding:"required"`
	ToAccountID   string            `json:"toAccountID" binding:"required"`
	Amount        decimal.Decimal   `json:"amount"`
	Description   string            `json:"description"`
	Metadata      map[string]string `json:"metadata"`
}

// TransferByNumberRequest moves money to an account identified by its account number.
type TransferByNumberRequest struct {
	FromAccountID   string            `json:"fromAccountID" binding:"required"`
	ToAccountNumber string            `json:"toAccountNumber" binding:"required"`
	Amount          decimal.Decimal   `json:"amount"`
	Description     string            `json:"description"`
	Metadata        map[string]string `json:"metadata"`
}

// ReasonRequest carries the free-text reason for a cancellation or reversal.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// HistoryParams defines query parameters for an account's transaction history.
type HistoryParams struct {
	Page      int        `form:"page,default=1" binding:"min=1"`
	PageSize  int        `form:"pageSize,default=20" binding:"min=1,max=100"`
	Type      string     `form:"type" binding:"omitempty,oneof=deposit withdrawal transfer fee interest"`
	Status    string     `form:"status" binding:"omitempty,oneof=pending completed failed cancelled"`
	DateFrom  *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo    *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
	AmountMin *string    `form:"amountMin"`
	AmountMax *string    `form:"amountMax"`
}

// Filter converts the query parameters into a history filter.
func (p HistoryParams) Filter() (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	if p.Type != "" {
		t := domain.TransactionType(p.Type)
		f.Type = &t
	}
	if p.Status != "" {
		st := domain.TransactionStatus(p.Status)
		f.Status = &st
	}
	f.DateFrom, f.DateTo = p.DateFrom, p.DateTo
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return f, fmt.Errorf("%w: dateFrom is after dateTo", apperrors.ErrValidation)
	}

	var err error
	if f.AmountMin, err = parseAmount("amountMin", p.AmountMin); err != nil {
		return f, err
	}
	if f.AmountMax, err = parseAmount("amountMax", p.AmountMax); err != nil {
		return f, err
	}
	return f, nil
}

func parseAmount(name string, raw *string) (*decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a decimal: %q", apperrors.ErrValidation, name, *raw)
	}
	return &d, nil
}

// BalanceParams defines query parameters for a balance lookup.
type BalanceParams struct {
	Recent int `form:"recent,default=5" binding:"min=0,max=50"`
}

// TransactionResponse defines the data returned for a ledger entry.
type TransactionResponse struct {
	TransactionID string                     `json:"transactionID"`
	Reference     string                     `json:"reference"`
	FromAccountID *string                    `json:"fromAccountID,omitempty"`
	ToAccountID   *string                    `json:"toAccountID,omitempty"`
	Amount        decimal.Decimal            `json:"amount"`
	Type          domain.TransactionType     `json:"type"`
	Description   string                     `json:"description"`
	Status        domain.TransactionStatus   `json:"status"`
	Metadata      domain.TransactionMetadata `json:"metadata"`
	CreatedAt     time.Time                  `json:"createdAt"`
	ProcessedAt   *time.Time                 `json:"processedAt,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: txn.TransactionID,
		Reference:     txn.Reference,
		FromAccountID: txn.FromAccountID,
		ToAccountID:   txn.ToAccountID,
		Amount:        txn.Amount,
		Type:          txn.Type,
		Description:   txn.Description,
		Status:        txn.Status,
		Metadata:      txn.Metadata,
		CreatedAt:     txn.CreatedAt,
		ProcessedAt:   txn.ProcessedAt,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(&txn)
	}
	return responses
}

// MovementResponse is returned by deposits, withdrawals and interest postings.
type MovementResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  decimal.Decimal     `json:"newBalance"`
}

// ToMovementResponse converts a single-account result into its response DTO.
func ToMovementResponse(r *domain.MovementResult) MovementResponse {
	return MovementResponse{
		Transaction: ToTransactionResponse(&r.Transaction),
		NewBalance:  r.NewBalance,
	}
}

// TransferResponse is returned by transfers. Fee is omitted when none was charged.
type TransferResponse struct {
	Transaction    TransactionResponse  `json:"transaction"`
	FeeTransaction *TransactionResponse `json:"feeTransaction,omitempty"`
	FromBalance    decimal.Decimal      `json:"fromBalance"`
	ToBalance      decimal.Decimal      `json:"toBalance"`
	Fee            *decimal.Decimal     `json:"fee,omitempty"`
}

// ToTransferResponse converts a transfer result into its response DTO.
func ToTransferResponse(r *domain.TransferResult) TransferResponse {
	resp := TransferResponse{
		Transaction: ToTransactionResponse(&r.Transaction),
		FromBalance: r.FromBalance,
		ToBalance:   r.ToBalance,
		Fee:         r.Fee,
	}
	if r.FeeTransaction != nil {
		fee := ToTransactionResponse(r.FeeTransaction)
		resp.FeeTransaction = &fee
	}
	return resp
}

// ReversalResponse is returned when a completed entry is reversed.
type ReversalResponse struct {
	OriginalTransaction TransactionResponse        `json:"originalTransaction"`
	ReversalTransaction TransactionResponse        `json:"reversalTransaction"`
	Balances            map[string]decimal.Decimal `json:"balances"`
}

// ToReversalResponse converts a reversal result into its response DTO.
func ToReversalResponse(r *domain.ReversalResult) ReversalResponse {
	return ReversalResponse{
		OriginalTransaction: ToTransactionResponse(&r.Original),
		ReversalTransaction: ToTransactionResponse(&r.Reversal),
		Balances:            r.Balances,
	}
}

// HistoryResponse is one page of an account's history.
type HistoryResponse struct {
	Transactions []TransactionResponse     `json:"transactions"`
	Pagination   domain.Pagination         `json:"pagination"`
	Summary      domain.TransactionSummary `json:"summary"`
}

// ToHistoryResponse converts a history page into its response DTO.
func ToHistoryResponse(h *domain.TransactionHistory) HistoryResponse {
	return HistoryResponse{
		Transactions: ToTransactionResponses(h.Transactions),
		Pagination:   h.Pagination,
		Summary:      h.Summary,
	}
}
