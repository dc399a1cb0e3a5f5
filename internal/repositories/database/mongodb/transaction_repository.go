package mongodb

import (
	"context"
	"fmt"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "reference", Value: -1}}

// accountFilter selects entries touching accountID that satisfy filter.
func accountFilter(accountID string, filter domain.TransactionFilter) (bson.D, error) {
	q := bson.D{{Key: "$or", Value: bson.A{
		bson.M{"fromAccountId": accountID},
		bson.M{"toAccountId": accountID},
	}}}
	if filter.Type != nil {
		q = append(q, bson.E{Key: "type", Value: string(*filter.Type)})
	}
	if filter.Status != nil {
		q = append(q, bson.E{Key: "status", Value: string(*filter.Status)})
	}
	if filter.DateFrom != nil || filter.DateTo != nil {
		created := bson.M{}
		if filter.DateFrom != nil {
			created["$gte"] = *filter.DateFrom
		}
		if filter.DateTo != nil {
			created["$lte"] = *filter.DateTo
		}
		q = append(q, bson.E{Key: "createdAt", Value: created})
	}
	if filter.AmountMin != nil || filter.AmountMax != nil {
		amount := bson.M{}
		if filter.AmountMin != nil {
			v, err := toDecimal128(*filter.AmountMin)
			if err != nil {
				return nil, err
			}
			amount["$gte"] = v
		}
		if filter.AmountMax != nil {
			v, err := toDecimal128(*filter.AmountMax)
			if err != nil {
				return nil, err
			}
			amount["$lte"] = v
		}
		q = append(q, bson.E{Key: "amount", Value: amount})
	}
	return q, nil
}

func decodeTransactions(ctx context.Context, cur *mongo.Cursor) ([]domain.Transaction, error) {
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, "failed to read transactions")
	}
	items := make([]domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		t, err := doc.toDomain()
		if err != nil {
			return nil, apperrors.Persistence("failed to decode transaction", err)
		}
		items = append(items, t)
	}
	return items, nil
}

func findTransaction(ctx context.Context, coll *mongo.Collection, filter bson.M, key string) (*domain.Transaction, error) {
	var doc transactionDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, classify(err, "transaction %s", key)
	}
	t, err := doc.toDomain()
	if err != nil {
		return nil, apperrors.Persistence("failed to decode transaction", err)
	}
	return &t, nil
}

func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return findTransaction(ctx, s.txns, bson.M{"_id": transactionID}, transactionID)
}

func (s *Store) ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	q, _ := accountFilter(accountID, domain.TransactionFilter{})
	cur, err := s.txns.Find(ctx, q, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
	if err != nil {
		return nil, classify(err, "failed to list recent transactions of account %s", accountID)
	}
	return decodeTransactions(ctx, cur)
}

// ListHistory runs the count, the page and the summary in one read-only
// snapshot transaction, so all three agree with each other.
func (s *Store) ListHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, limit, offset int) (domain.HistoryPage, error) {
	q, err := accountFilter(accountID, filter)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("%w: invalid amount filter: %v", apperrors.ErrValidation, err)
	}

	ses, err := s.client.StartSession()
	if err != nil {
		return domain.HistoryPage{}, classify(err, "failed to start session")
	}
	defer ses.EndSession(ctx)

	var page domain.HistoryPage
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot())
	_, err = ses.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		total, err := s.txns.CountDocuments(sessCtx, q)
		if err != nil {
			return nil, classify(err, "failed to count transactions of account %s", accountID)
		}
		opts := options.Find().SetSort(newestFirst).SetSkip(int64(offset)).SetLimit(int64(limit))
		cur, err := s.txns.Find(sessCtx, q, opts)
		if err != nil {
			return nil, classify(err, "failed to list transactions of account %s", accountID)
		}
		items, err := decodeTransactions(sessCtx, cur)
		if err != nil {
			return nil, err
		}
		summary, err := s.summarize(sessCtx, accountID, q)
		if err != nil {
			return nil, err
		}
		page = domain.HistoryPage{Transactions: items, Total: total, Summary: summary}
		return nil, nil
	}, txnOpts)
	if err != nil {
		return domain.HistoryPage{}, err
	}
	return page, nil
}

type summaryDoc struct {
	Count        int64                `bson:"count"`
	Deposits     primitive.Decimal128 `bson:"deposits"`
	Withdrawals  primitive.Decimal128 `bson:"withdrawals"`
	TransfersIn  primitive.Decimal128 `bson:"transfersIn"`
	TransfersOut primitive.Decimal128 `bson:"transfersOut"`
	Fees         primitive.Decimal128 `bson:"fees"`
	Interest     primitive.Decimal128 `bson:"interest"`
}

// sumWhere adds the amount of entries of txnType where side equals accountID.
func sumWhere(txnType domain.TransactionType, side, accountID string, zero primitive.Decimal128) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$type", string(txnType)}},
			bson.M{"$eq": bson.A{"$" + side, accountID}},
		}},
		"$amount",
		zero,
	}}}
}

// summarize aggregates every entry matching q.
func (s *Store) summarize(ctx context.Context, accountID string, q bson.D) (domain.TransactionSummary, error) {
	zero, _ := primitive.ParseDecimal128("0")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: q}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"count":        bson.M{"$sum": 1},
			"deposits":     sumWhere(domain.DepositTxn, "toAccountId", accountID, zero),
			"withdrawals":  sumWhere(domain.WithdrawalTxn, "fromAccountId", accountID, zero),
			"transfersIn":  sumWhere(domain.TransferTxn, "toAccountId", accountID, zero),
			"transfersOut": sumWhere(domain.TransferTxn, "fromAccountId", accountID, zero),
			"fees":         sumWhere(domain.FeeTxn, "fromAccountId", accountID, zero),
			"interest":     sumWhere(domain.InterestTxn, "toAccountId", accountID, zero),
		}}},
	}
	cur, err := s.txns.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.TransactionSummary{}, classify(err, "failed to summarize transactions of account %s", accountID)
	}
	var rows []summaryDoc
	if err := cur.All(ctx, &rows); err != nil {
		return domain.TransactionSummary{}, classify(err, "failed to read summary of account %s", accountID)
	}
	if len(rows) == 0 {
		return domain.TransactionSummary{}, nil
	}
	return rows[0].toDomain()
}

func (d summaryDoc) toDomain() (domain.TransactionSummary, error) {
	s := domain.TransactionSummary{TotalTransactions: d.Count}
	fields := []struct {
		dst *decimal.Decimal
		src primitive.Decimal128
	}{
		{&s.TotalDeposits, d.Deposits},
		{&s.TotalWithdrawals, d.Withdrawals},
		{&s.TotalTransfersIn, d.TransfersIn},
		{&s.TotalTransfersOut, d.TransfersOut},
		{&s.TotalFees, d.Fees},
		{&s.TotalInterest, d.Interest},
	}
	for _, f := range fields {
		v, err := fromDecimal128(f.src)
		if err != nil {
			return domain.TransactionSummary{}, apperrors.Persistence("failed to decode summary", err)
		}
		*f.dst = v
	}
	return s, nil
}
