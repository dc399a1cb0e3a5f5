package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the kind of money movement recorded by a ledger entry.
type TransactionType string

const (
	DepositTxn    TransactionType = "deposit"
	WithdrawalTxn TransactionType = "withdrawal"
	TransferTxn   TransactionType = "transfer"
	FeeTxn        TransactionType = "fee"
	InterestTxn   TransactionType = "interest"
)

// IsValid reports whether t is part of the closed set of transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case DepositTxn, WithdrawalTxn, TransferTxn, FeeTxn, InterestTxn:
		return true
	}
	return false
}

// ReferenceTag returns the tag embedded at the start of generated reference codes.
func (t TransactionType) ReferenceTag() string {
	switch t {
	case DepositTxn:
		return "DEP"
	case WithdrawalTxn:
		return "WDR"
	case TransferTxn:
		return "TRF"
	case FeeTxn:
		return "FEE"
	case InterestTxn:
		return "INT"
	default:
		return "TXN"
	}
}

// TransactionStatus indicates the processing state of a ledger entry.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
	TxnCancelled TransactionStatus = "cancelled"
)

// IsValid reports whether s is a known transaction status.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TxnPending, TxnCompleted, TxnFailed, TxnCancelled:
		return true
	}
	return false
}

// TransactionMetadata is the side-channel attached to a ledger entry.
// Links between entries (fee to transfer, reversal to original) live here
// rather than in dedicated foreign keys so that the ledger schema stays uniform.
type TransactionMetadata struct {
	Initiator                string            `json:"initiator,omitempty" bson:"initiator,omitempty"`
	Channel                  string            `json:"channel,omitempty" bson:"channel,omitempty"`
	FeeAmount                *decimal.Decimal  `json:"feeAmount,omitempty" bson:"-"`
	TotalDeduction           *decimal.Decimal  `json:"totalDeduction,omitempty" bson:"-"`
	RelatedTransactionID     string            `json:"relatedTransactionId,omitempty" bson:"relatedTransactionId,omitempty"`
	ReversedTransactionID    string            `json:"reversedTransactionId,omitempty" bson:"reversedTransactionId,omitempty"`
	ReversalReason           string            `json:"reversalReason,omitempty" bson:"reversalReason,omitempty"`
	CancellationReason       string            `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CancelledBy              string            `json:"cancelledBy,omitempty" bson:"cancelledBy,omitempty"`
	InterestRate             *decimal.Decimal  `json:"interestRate,omitempty" bson:"-"`
	PrincipalAmount          *decimal.Decimal  `json:"principalAmount,omitempty" bson:"-"`
	DestinationAccountNumber string            `json:"destinationAccountNumber,omitempty" bson:"destinationAccountNumber,omitempty"`
	Extra                    map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// Transaction is one entry of the append-only ledger.
// Direction is encoded by which account reference is populated; Amount is always positive.
type Transaction struct {
	TransactionID string              `json:"transactionID"`
	Reference     string              `json:"reference"`
	FromAccountID *string             `json:"fromAccountID,omitempty"`
	ToAccountID   *string             `json:"toAccountID,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Type          TransactionType     `json:"type"`
	Description   string              `json:"description"`
	Status        TransactionStatus   `json:"status"`
	Metadata      TransactionMetadata `json:"metadata"`
	CreatedAt     time.Time           `json:"createdAt"`
	ProcessedAt   *time.Time          `json:"processedAt,omitempty"`
}

// Touches reports whether the entry references accountID on either side.
func (t Transaction) Touches(accountID string) bool {
	return t.IsFrom(accountID) || t.IsTo(accountID)
}

// IsFrom reports whether accountID is the debited side.
func (t Transaction) IsFrom(accountID string) bool {
	return t.FromAccountID != nil && *t.FromAccountID == accountID
}

// IsTo reports whether accountID is the credited side.
func (t Transaction) IsTo(accountID string) bool {
	return t.ToAccountID != nil && *t.ToAccountID == accountID
}

// AccountIDs returns the distinct accounts referenced by the entry.
func (t Transaction) AccountIDs() []string {
	ids := make([]string, 0, 2)
	if t.FromAccountID != nil {
		ids = append(ids, *t.FromAccountID)
	}
	if t.ToAccountID != nil && (t.FromAccountID == nil || *t.ToAccountID != *t.FromAccountID) {
		ids = append(ids, *t.ToAccountID)
	}
	return ids
}

// Validate checks the structural invariants of a ledger entry.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s", t.Amount.String())
	}
	switch t.Type {
	case DepositTxn, InterestTxn:
		if t.ToAccountID == nil || t.FromAccountID != nil {
			return fmt.Errorf("%s entry must reference only a destination account", t.Type)
		}
	case WithdrawalTxn, FeeTxn:
		if t.FromAccountID == nil || t.ToAccountID != nil {
			return fmt.Errorf("%s entry must reference only a source account", t.Type)
		}
	case TransferTxn:
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return fmt.Errorf("transfer entry must reference both accounts")
		}
	}
	if t.Reference == "" {
		return fmt.Errorf("transaction reference is required")
	}
	return nil
}

// TransactionFilter narrows an account's history. Nil fields are not applied; date and amount bounds are inclusive.
type TransactionFilter struct {
	Type      *TransactionType
	Status    *TransactionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	AmountMin *decimal.Decimal
	AmountMax *decimal.Decimal
}

// Matches reports whether the entry satisfies every set criterion.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.DateFrom != nil && t.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.AmountMin != nil && t.Amount.LessThan(*f.AmountMin) {
		return false
	}
	if f.AmountMax != nil && t.Amount.GreaterThan(*f.AmountMax) {
		return false
	}
	return true
}

// TransactionSummary aggregates an account's filtered history.
type TransactionSummary struct {
	TotalTransactions int64           `json:"totalTransactions"`
	TotalDeposits     decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals  decimal.Decimal `json:"totalWithdrawals"`
	TotalTransfersIn  decimal.Decimal `json:"totalTransfersIn"`
	TotalTransfersOut decimal.Decimal `json:"totalTransfersOut"`
	TotalFees         decimal.Decimal `json:"totalFees"`
	TotalInterest     decimal.Decimal `json:"totalInterest"`
}

// Add folds one entry into the summary from the point of view of accountID.
func (s *TransactionSummary) Add(accountID string, t Transaction) {
	s.TotalTransactions++
	switch t.Type {
	case DepositTxn:
		if t.IsTo(accountID) {
			s.TotalDeposits = s.TotalDeposits.Add(t.Amount)
		}
	case WithdrawalTxn:
		if t.IsFrom(accountID) {
			s.TotalWithdrawals = s.TotalWithdrawals.Add(t.Amount)
		}
	case TransferTxn:
		if t.IsFrom(accountID) {
			s.TotalTransfersOut = s.TotalTransfersOut.Add(t.Amount)
		}
		if t.IsTo(accountID) {
			s.TotalTransfersIn = s.TotalTransfersIn.Add(t.Amount)
		}
	case FeeTxn:
		if t.IsFrom(accountID) {
			s.TotalFees = s.TotalFees.Add(t.Amount)
		}
	case InterestTxn:
		if t.IsTo(accountID) {
			s.TotalInterest = s.TotalInterest.Add(t.Amount)
		}
	}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
