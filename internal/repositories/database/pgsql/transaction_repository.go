package pgsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/models"
	"github.com/SscSPs/bank_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `transaction_id, reference, from_account_id, to_account_id, amount, type, description, status, metadata, created_at, processed_at`

type PgxTransactionRepository struct {
	BaseRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionReader = (*PgxTransactionRepository)(nil)

// accountFilter builds the WHERE clause selecting entries that touch accountID and
// satisfy filter. Placeholders are numbered from $1.
func accountFilter(accountID string, filter domain.TransactionFilter) (string, []any) {
	args := []any{accountID}
	clauses := []string{"(from_account_id = $1 OR to_account_id = $1)"}
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != nil {
		add("type = $%d", string(*filter.Type))
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.DateFrom != nil {
		add("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("created_at <= $%d", *filter.DateTo)
	}
	if filter.AmountMin != nil {
		add("amount >= $%d", *filter.AmountMin)
	}
	if filter.AmountMax != nil {
		add("amount <= $%d", *filter.AmountMax)
	}
	return strings.Join(clauses, " AND "), args
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainTransactionSlice(ms)
}

// FindTransactionByID retrieves a single ledger entry.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return findTransaction(ctx, r.Pool, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1;`, transactionID)
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findTransaction(ctx context.Context, q querier, query string, arg string) (*domain.Transaction, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, classify(err, "failed to query transaction %s", arg)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, classify(err, "transaction %s", arg)
	}
	txn, err := mapping.ToDomainTransaction(m)
	if err != nil {
		return nil, classify(err, "transaction %s", arg)
	}
	return &txn, nil
}

// ListRecentTransactions returns up to limit entries touching the account, newest first.
func (r *PgxTransactionRepository) ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	return listPage(ctx, r.Pool, accountID, domain.TransactionFilter{}, limit, 0)
}

// ListHistory reads the count, the page and the summary inside one read-only
// REPEATABLE READ transaction, so all three see the same snapshot.
func (r *PgxTransactionRepository) ListHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, limit, offset int) (domain.HistoryPage, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.HistoryPage{}, apperrors.Persistence("failed to begin history snapshot", err)
	}
	defer r.Rollback(ctx, tx)

	var page domain.HistoryPage
	where, args := accountFilter(accountID, filter)
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + where + `;`
	if err := tx.QueryRow(ctx, countQuery, args...).Scan(&page.Total); err != nil {
		return domain.HistoryPage{}, classify(err, "failed to count transactions of account %s", accountID)
	}
	if page.Transactions, err = listPage(ctx, tx, accountID, filter, limit, offset); err != nil {
		return domain.HistoryPage{}, err
	}
	if page.Summary, err = summarize(ctx, tx, accountID, filter); err != nil {
		return domain.HistoryPage{}, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return domain.HistoryPage{}, err
	}
	return page, nil
}

func listPage(ctx context.Context, q querier, accountID string, filter domain.TransactionFilter, limit, offset int) ([]domain.Transaction, error) {
	where, args := accountFilter(accountID, filter)
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d;`,
		transactionColumns, where, n+1, n+2)
	rows, err := q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, classify(err, "failed to list transactions of account %s", accountID)
	}
	items, err := collectTransactions(rows)
	if err != nil {
		return nil, classify(err, "failed to scan transactions of account %s", accountID)
	}
	return items, nil
}

// summarize aggregates the whole filtered history of an account in one pass.
func summarize(ctx context.Context, q querier, accountID string, filter domain.TransactionFilter) (domain.TransactionSummary, error) {
	where, args := accountFilter(accountID, filter)
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(amount) FILTER (WHERE type = 'deposit' AND to_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'withdrawal' AND from_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'transfer' AND to_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'transfer' AND from_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'fee' AND from_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'interest' AND to_account_id = $1), 0)
		FROM transactions
		WHERE ` + where + `;`

	var s domain.TransactionSummary
	err := q.QueryRow(ctx, query, args...).Scan(
		&s.TotalTransactions,
		&s.TotalDeposits,
		&s.TotalWithdrawals,
		&s.TotalTransfersIn,
		&s.TotalTransfersOut,
		&s.TotalFees,
		&s.TotalInterest,
	)
	if err != nil {
		return domain.TransactionSummary{}, classify(err, "failed to summarize transactions of account %s", accountID)
	}
	return s, nil
}
