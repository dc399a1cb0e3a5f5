package pgsql

import (
	"context"
	"slices"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/models"
	"github.com/SscSPs/bank_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxUnitOfWork runs ledger scopes inside a single PostgreSQL transaction.
type PgxUnitOfWork struct {
	BaseRepository
}

func newPgxUnitOfWork(pool *pgxpool.Pool) *PgxUnitOfWork {
	return &PgxUnitOfWork{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.UnitOfWork = (*PgxUnitOfWork)(nil)

// WithinAccountLock takes FOR UPDATE row locks on the accounts in ascending ID
// order, runs fn and commits when it returns nil.
func (u *PgxUnitOfWork) WithinAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}
	defer u.Rollback(ctx, tx) // No-op once committed

	accounts, err := lockAccounts(ctx, tx, ids)
	if err != nil {
		return err
	}

	if err := fn(ctx, &pgLedgerTx{tx: tx, accounts: accounts}); err != nil {
		return err
	}
	return u.Commit(ctx, tx)
}

// lockAccounts reads and locks the accounts that exist. Missing IDs are skipped.
func lockAccounts(ctx context.Context, tx pgx.Tx, ids []string) (map[string]domain.Account, error) {
	accounts := make(map[string]domain.Account, len(ids))
	if len(ids) == 0 {
		return accounts, nil
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, classify(err, "failed to lock accounts")
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, classify(err, "failed to scan locked accounts")
	}
	for _, m := range ms {
		accounts[m.AccountID] = mapping.ToDomainAccount(m)
	}
	return accounts, nil
}
