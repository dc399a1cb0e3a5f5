package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	doc, err := newAccountDoc(account)
	if err != nil {
		return apperrors.Persistence("failed to encode account", err)
	}
	if _, err := s.accounts.InsertOne(ctx, doc); err != nil {
		return classify(err, "failed to save account %s", account.AccountID)
	}
	return nil
}

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": accountID}, accountID)
}

func (s *Store) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.findAccount(ctx, bson.M{"accountNumber": accountNumber}, accountNumber)
}

func (s *Store) findAccount(ctx context.Context, filter bson.M, key string) (*domain.Account, error) {
	var doc accountDoc
	if err := s.accounts.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, classify(err, "account %s", key)
	}
	account, err := doc.toDomain()
	if err != nil {
		return nil, apperrors.Persistence("failed to decode account", err)
	}
	return &account, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.accounts.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, classify(err, "failed to list accounts of user %s", userID)
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, "failed to read accounts of user %s", userID)
	}
	accounts := make([]domain.Account, 0, len(docs))
	for _, doc := range docs {
		a, err := doc.toDomain()
		if err != nil {
			return nil, apperrors.Persistence("failed to decode account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// UpdateAccountStatus bumps lockVersion too, so it conflicts with any open ledger scope on the account.
func (s *Store) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, now time.Time) error {
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{
			"$set": bson.M{"status": string(status), "updatedAt": now},
			"$inc": bson.M{"lockVersion": 1},
		},
	)
	if err != nil {
		return classify(err, "failed to update status of account %s", accountID)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CloseAccount matches on a zero balance and bumps lockVersion, so it either
// commits before a ledger scope touches the account or write-conflicts with it.
func (s *Store) CloseAccount(ctx context.Context, accountID string, now time.Time) error {
	zero, _ := primitive.ParseDecimal128("0")
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID, "balance": zero},
		bson.M{
			"$set": bson.M{"status": string(domain.AccountClosed), "updatedAt": now},
			"$inc": bson.M{"lockVersion": 1},
		},
	)
	if err != nil {
		return classify(err, "failed to close account %s", accountID)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	account, err := s.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: account %s still holds %s", apperrors.ErrInvalidState, accountID, account.Balance.StringFixed(2))
}

func (s *Store) UpdateInterestRate(ctx context.Context, accountID string, rate decimal.Decimal, now time.Time) error {
	v, err := toDecimal128(rate)
	if err != nil {
		return fmt.Errorf("%w: interest rate %s: %v", apperrors.ErrValidation, rate, err)
	}
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$set": bson.M{"interestRate": v, "updatedAt": now}},
	)
	if err != nil {
		return classify(err, "failed to update interest rate of account %s", accountID)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
