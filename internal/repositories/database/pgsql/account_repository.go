package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/bank_ledger/internal/models"
	"github.com/SscSPs/bank_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, account_number, user_id, account_type, balance, currency_code, status, interest_rate, created_at, updated_at`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.AccountNumber,
		m.UserID,
		m.AccountType,
		m.Balance,
		m.CurrencyCode,
		m.Status,
		m.InterestRate,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return classify(err, "failed to save account %s", m.AccountID)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1;`, accountID)
}

// FindAccountByNumber retrieves an account by its user-facing number.
func (r *PgxAccountRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1;`, accountNumber)
}

func (r *PgxAccountRepository) findOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	rows, err := r.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, classify(err, "failed to query account %s", arg)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, classify(err, "account %s", arg)
	}
	account := mapping.ToDomainAccount(m)
	return &account, nil
}

// ListAccountsByUser retrieves every account of a user, oldest first.
func (r *PgxAccountRepository) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at ASC, account_id ASC;`
	rows, err := r.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err, "failed to list accounts of user %s", userID)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, classify(err, "failed to scan accounts of user %s", userID)
	}
	return mapping.ToDomainAccountSlice(ms), nil
}

// UpdateAccountStatus changes an account's status. The row lock taken by the
// update serializes it with any ledger scope holding the account.
func (r *PgxAccountRepository) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, now time.Time) error {
	query := `UPDATE accounts SET status = $2, updated_at = $3 WHERE account_id = $1;`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, string(status), now)
	if err != nil {
		return classify(err, "failed to update status of account %s", accountID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CloseAccount closes the account only while its balance is zero. The
// conditional update waits on any ledger scope holding the row lock and
// re-checks the balance after it commits.
func (r *PgxAccountRepository) CloseAccount(ctx context.Context, accountID string, now time.Time) error {
	query := `UPDATE accounts SET status = 'closed', updated_at = $2 WHERE account_id = $1 AND balance = 0;`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, now)
	if err != nil {
		return classify(err, "failed to close account %s", accountID)
	}
	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	account, err := r.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: account %s still holds %s", apperrors.ErrInvalidState, accountID, account.Balance.StringFixed(2))
}

// UpdateInterestRate replaces the annual rate of an account.
func (r *PgxAccountRepository) UpdateInterestRate(ctx context.Context, accountID string, rate decimal.Decimal, now time.Time) error {
	query := `UPDATE accounts SET interest_rate = $2, updated_at = $3 WHERE account_id = $1;`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, rate, now)
	if err != nil {
		return classify(err, "failed to update interest rate of account %s", accountID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
