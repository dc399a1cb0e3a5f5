package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoLedgerTx issues every write with the session context it was created
// under, which binds them to the surrounding transaction.
type mongoLedgerTx struct {
	store    *Store
	accounts map[string]domain.Account
}

var _ portsrepo.LedgerTx = (*mongoLedgerTx)(nil)

func (t *mongoLedgerTx) Account(accountID string) (domain.Account, bool) {
	a, ok := t.accounts[accountID]
	return a, ok
}

func (t *mongoLedgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	doc, err := newTransactionDoc(txn)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if _, err := t.store.txns.InsertOne(ctx, doc); err != nil {
		return classify(err, "failed to insert transaction %s", txn.Reference)
	}
	return nil
}

func (t *mongoLedgerTx) CompleteTransaction(ctx context.Context, transactionID string, processedAt time.Time) error {
	res, err := t.store.txns.UpdateOne(ctx,
		bson.M{"_id": transactionID, "status": string(domain.TxnPending)},
		bson.M{"$set": bson.M{"status": string(domain.TxnCompleted), "processedAt": processedAt}},
	)
	if err != nil {
		return classify(err, "failed to complete transaction %s", transactionID)
	}
	if res.MatchedCount == 0 {
		current, err := t.FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: transaction %s is %s", apperrors.ErrInvalidState, transactionID, current.Status)
	}
	return nil
}

func (t *mongoLedgerTx) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, metadata domain.TransactionMetadata) error {
	doc, err := newMetadataDoc(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	res, err := t.store.txns.UpdateOne(ctx,
		bson.M{"_id": transactionID},
		bson.M{"$set": bson.M{"status": string(status), "metadata": doc}},
	)
	if err != nil {
		return classify(err, "failed to update transaction %s", transactionID)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (t *mongoLedgerTx) active(accountID string) (domain.Account, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return domain.Account{}, apperrors.ErrNotFound
	}
	if !a.IsActive() {
		return domain.Account{}, fmt.Errorf("%w: account %s is %s", apperrors.ErrInvalidState, accountID, a.Status)
	}
	return a, nil
}

// move applies delta to the balance when filter still matches and returns the new balance.
func (t *mongoLedgerTx) move(ctx context.Context, a domain.Account, filter bson.M, delta decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	inc, err := toDecimal128(delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	var doc accountDoc
	err = t.store.accounts.FindOneAndUpdate(ctx, filter,
		bson.M{
			"$inc": bson.M{"balance": inc},
			"$set": bson.M{"updatedAt": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return decimal.Zero, err
	}
	updated, err := doc.toDomain()
	if err != nil {
		return decimal.Zero, apperrors.Persistence("failed to decode account", err)
	}
	a.Balance = updated.Balance
	a.UpdatedAt = now
	t.accounts[a.AccountID] = a
	return a.Balance, nil
}

func (t *mongoLedgerTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	a, err := t.active(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := t.move(ctx, a, bson.M{"_id": accountID, "status": string(domain.AccountActive)}, amount, now)
	if err != nil {
		return decimal.Zero, classify(err, "failed to credit account %s", accountID)
	}
	return balance, nil
}

func (t *mongoLedgerTx) Debit(ctx context.Context, accountID string, amount, floor decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	a, err := t.active(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	required, err := toDecimal128(floor.Add(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	filter := bson.M{
		"_id":     accountID,
		"status":  string(domain.AccountActive),
		"balance": bson.M{"$gte": required},
	}
	balance, err := t.move(ctx, a, filter, amount.Neg(), now)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return decimal.Zero, fmt.Errorf("%w: account %s", apperrors.ErrInsufficientFunds, accountID)
	}
	if err != nil {
		return decimal.Zero, classify(err, "failed to debit account %s", accountID)
	}
	return balance, nil
}

func (t *mongoLedgerTx) FindTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return findTransaction(ctx, t.store.txns, bson.M{"_id": transactionID}, transactionID)
}

func (t *mongoLedgerTx) FindReversal(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return findTransaction(ctx, t.store.txns, bson.M{"metadata.reversedTransactionId": transactionID}, transactionID)
}
