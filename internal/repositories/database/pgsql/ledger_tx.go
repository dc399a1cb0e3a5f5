package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// pgLedgerTx writes through an open pgx transaction. accounts holds the rows
// locked when the scope opened, kept in step with every balance update.
type pgLedgerTx struct {
	tx       pgx.Tx
	accounts map[string]domain.Account
}

var _ portsrepo.LedgerTx = (*pgLedgerTx)(nil)

func (t *pgLedgerTx) Account(accountID string) (domain.Account, bool) {
	a, ok := t.accounts[accountID]
	return a, ok
}

func (t *pgLedgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	m, err := mapping.ToModelTransaction(txn)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err = t.tx.Exec(ctx, query,
		m.TransactionID,
		m.Reference,
		m.FromAccountID,
		m.ToAccountID,
		m.Amount,
		m.Type,
		m.Description,
		m.Status,
		m.Metadata,
		m.CreatedAt,
		m.ProcessedAt,
	)
	if err != nil {
		return classify(err, "failed to insert transaction %s", m.Reference)
	}
	return nil
}

func (t *pgLedgerTx) CompleteTransaction(ctx context.Context, transactionID string, processedAt time.Time) error {
	query := `
		UPDATE transactions
		SET status = 'completed', processed_at = $2
		WHERE transaction_id = $1 AND status = 'pending';
	`
	cmdTag, err := t.tx.Exec(ctx, query, transactionID, processedAt)
	if err != nil {
		return classify(err, "failed to complete transaction %s", transactionID)
	}
	if cmdTag.RowsAffected() == 0 {
		current, err := t.FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: transaction %s is %s", apperrors.ErrInvalidState, transactionID, current.Status)
	}
	return nil
}

func (t *pgLedgerTx) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, metadata domain.TransactionMetadata) error {
	doc, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	query := `UPDATE transactions SET status = $2, metadata = $3 WHERE transaction_id = $1;`
	cmdTag, err := t.tx.Exec(ctx, query, transactionID, string(status), doc)
	if err != nil {
		return classify(err, "failed to update transaction %s", transactionID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (t *pgLedgerTx) active(accountID string) (domain.Account, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return domain.Account{}, apperrors.ErrNotFound
	}
	if !a.IsActive() {
		return domain.Account{}, fmt.Errorf("%w: account %s is %s", apperrors.ErrInvalidState, accountID, a.Status)
	}
	return a, nil
}

func (t *pgLedgerTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	a, err := t.active(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = $3
		WHERE account_id = $1 AND status = 'active'
		RETURNING balance;
	`
	var balance decimal.Decimal
	if err := t.tx.QueryRow(ctx, query, accountID, amount, now).Scan(&balance); err != nil {
		return decimal.Zero, classify(err, "failed to credit account %s", accountID)
	}
	a.Balance = balance
	a.UpdatedAt = now
	t.accounts[accountID] = a
	return balance, nil
}

// Debit applies the floor in the UPDATE itself; no returned row means the floor would be breached.
func (t *pgLedgerTx) Debit(ctx context.Context, accountID string, amount, floor decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	a, err := t.active(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	query := `
		UPDATE accounts
		SET balance = balance - $2, updated_at = $4
		WHERE account_id = $1 AND status = 'active' AND balance - $2 >= $3
		RETURNING balance;
	`
	var balance decimal.Decimal
	err = t.tx.QueryRow(ctx, query, accountID, amount, floor, now).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: account %s", apperrors.ErrInsufficientFunds, accountID)
	}
	if err != nil {
		return decimal.Zero, classify(err, "failed to debit account %s", accountID)
	}
	a.Balance = balance
	a.UpdatedAt = now
	t.accounts[accountID] = a
	return balance, nil
}

func (t *pgLedgerTx) FindTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return findTransaction(ctx, t.tx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1;`, transactionID)
}

func (t *pgLedgerTx) FindReversal(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE metadata->>'reversedTransactionId' = $1
		LIMIT 1;
	`
	return findTransaction(ctx, t.tx, query, transactionID)
}
