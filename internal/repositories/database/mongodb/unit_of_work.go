package mongodb

import (
	"context"
	"slices"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// WithinAccountLock runs fn inside a session transaction. Each account is
// "locked" by bumping its lockVersion first, in ascending ID order, so two
// scopes over the same account write-conflict and the driver retries the loser.
// fn may therefore run more than once and must not leak side effects.
func (s *Store) WithinAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	ses, err := s.client.StartSession()
	if err != nil {
		return classify(err, "failed to start session")
	}
	defer ses.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = ses.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		accounts, err := s.lockAccounts(sessCtx, ids)
		if err != nil {
			return nil, err
		}
		return nil, fn(sessCtx, &mongoLedgerTx{store: s, accounts: accounts})
	}, txnOpts)
	return err
}

func (s *Store) lockAccounts(ctx context.Context, ids []string) (map[string]domain.Account, error) {
	accounts := make(map[string]domain.Account, len(ids))
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	for _, id := range ids {
		var doc accountDoc
		err := s.accounts.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"lockVersion": 1}}, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, classify(err, "failed to lock account %s", id)
		}
		a, err := doc.toDomain()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		accounts[id] = a
	}
	return accounts, nil
}
