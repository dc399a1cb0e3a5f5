package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the transactions table row. Metadata holds the JSONB document as raw bytes.
type Transaction struct {
	TransactionID string          `db:"transaction_id"`
	Reference     string          `db:"reference"`
	FromAccountID *string         `db:"from_account_id"` // Nullable
	ToAccountID   *string         `db:"to_account_id"`   // Nullable
	Amount        decimal.Decimal `db:"amount"`
	Type          string          `db:"type"`
	Description   string          `db:"description"`
	Status        string          `db:"status"`
	Metadata      []byte          `db:"metadata"`
	CreatedAt     time.Time       `db:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at"` // Nullable
}
