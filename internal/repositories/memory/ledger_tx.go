package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// ledgerTx stages writes until the owning scope publishes them.
type ledgerTx struct {
	store    *Store
	accounts map[string]domain.Account
	touched  map[string]struct{}
	inserts  []domain.Transaction
	updates  map[string]domain.Transaction
}

var _ portsrepo.LedgerTx = (*ledgerTx)(nil)

func (t *ledgerTx) Account(accountID string) (domain.Account, bool) {
	a, ok := t.accounts[accountID]
	return a, ok
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	for _, staged := range t.inserts {
		if staged.TransactionID == txn.TransactionID || staged.Reference == txn.Reference {
			return fmt.Errorf("%w: transaction %s already staged", apperrors.ErrDuplicate, txn.Reference)
		}
	}
	t.inserts = append(t.inserts, txn)
	return nil
}

// lookup returns the current view of an entry: staged update, staged insert, then published.
func (t *ledgerTx) lookup(transactionID string) (domain.Transaction, bool) {
	if u, ok := t.updates[transactionID]; ok {
		return u, true
	}
	for _, staged := range t.inserts {
		if staged.TransactionID == transactionID {
			return staged, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if st, ok := t.store.txns[transactionID]; ok {
		return st.txn, true
	}
	return domain.Transaction{}, false
}

func (t *ledgerTx) CompleteTransaction(ctx context.Context, transactionID string, processedAt time.Time) error {
	txn, ok := t.lookup(transactionID)
	if !ok {
		return apperrors.ErrNotFound
	}
	if txn.Status != domain.TxnPending {
		return fmt.Errorf("%w: transaction %s is %s", apperrors.ErrInvalidState, transactionID, txn.Status)
	}
	txn.Status = domain.TxnCompleted
	txn.ProcessedAt = &processedAt
	t.updates[transactionID] = txn
	return nil
}

func (t *ledgerTx) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, metadata domain.TransactionMetadata) error {
	txn, ok := t.lookup(transactionID)
	if !ok {
		return apperrors.ErrNotFound
	}
	txn.Status = status
	txn.Metadata = metadata
	t.updates[transactionID] = txn
	return nil
}

func (t *ledgerTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return decimal.Zero, apperrors.ErrNotFound
	}
	if !a.IsActive() {
		return decimal.Zero, fmt.Errorf("%w: account %s is %s", apperrors.ErrInvalidState, accountID, a.Status)
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = now
	t.stage(a)
	return a.Balance, nil
}

func (t *ledgerTx) Debit(ctx context.Context, accountID string, amount, floor decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return decimal.Zero, apperrors.ErrNotFound
	}
	if !a.IsActive() {
		return decimal.Zero, fmt.Errorf("%w: account %s is %s", apperrors.ErrInvalidState, accountID, a.Status)
	}
	next := a.Balance.Sub(amount)
	if next.LessThan(floor) {
		return decimal.Zero, fmt.Errorf("%w: account %s", apperrors.ErrInsufficientFunds, accountID)
	}
	a.Balance = next
	a.UpdatedAt = now
	t.stage(a)
	return a.Balance, nil
}

func (t *ledgerTx) stage(a domain.Account) {
	if t.touched == nil {
		t.touched = make(map[string]struct{})
	}
	t.accounts[a.AccountID] = a
	t.touched[a.AccountID] = struct{}{}
}

func (t *ledgerTx) FindTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, ok := t.lookup(transactionID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (t *ledgerTx) FindReversal(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	for _, staged := range t.inserts {
		if staged.Metadata.ReversedTransactionID == transactionID {
			return &staged, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.reversals[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	txn := t.store.txns[id].txn
	return &txn, nil
}
