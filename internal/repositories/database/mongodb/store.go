// Package mongodb implements the ledger storage ports on MongoDB. Ledger
// scopes run as multi-document transactions, so the deployment must be a
// replica set or sharded cluster.
package mongodb

import (
	"context"
	"fmt"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

// Store holds the collections backing accounts and the ledger.
type Store struct {
	client   *mongo.Client
	accounts *mongo.Collection
	txns     *mongo.Collection
}

// New binds a store to db and makes sure its indexes exist.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		client:   db.Client(),
		accounts: db.Collection(accountsCollection),
		txns:     db.Collection(transactionsCollection),
	}
	if err := s.setup(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) setup(ctx context.Context) error {
	if _, err := s.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "accountNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
	}); err != nil {
		return errors.WithStack(err)
	}

	if _, err := s.txns.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "fromAccountId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "toAccountId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			// An entry can be reversed at most once.
			Keys: bson.D{{Key: "metadata.reversedTransactionId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"metadata.reversedTransactionId": bson.M{"$exists": true},
			}),
		},
	}); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// NewRepositoryProvider exposes the store through the repository ports.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:     store,
		TransactionRepo: store,
		UnitOfWork:      store,
	}
}

var (
	_ portsrepo.AccountRepositoryFacade = (*Store)(nil)
	_ portsrepo.TransactionReader       = (*Store)(nil)
	_ portsrepo.UnitOfWork              = (*Store)(nil)
)

// classify maps driver errors onto application errors, keeping a stack on infrastructure failures.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, msg)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, msg)
	}
	return apperrors.Persistence(msg, errors.WithStack(err))
}
