// Package memory is a process-local implementation of the ledger storage ports.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type storedTxn struct {
	seq int64
	txn domain.Transaction
}

// Store keeps accounts and ledger entries in maps. Mutations go through
// WithinAccountLock, which holds one mutex per account and publishes staged
// writes under mu, so readers never observe half of an operation.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]domain.Account
	numbers   map[string]string
	txns      map[string]*storedTxn
	refs      map[string]string
	reversals map[string]string
	seq       int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:  make(map[string]domain.Account),
		numbers:   make(map[string]string),
		txns:      make(map[string]*storedTxn),
		refs:      make(map[string]string),
		reversals: make(map[string]string),
		locks:     make(map[string]*sync.Mutex),
	}
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

func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// lockAccounts takes the per-account mutexes in ascending ID order and returns the release func.
func (s *Store) lockAccounts(accountIDs []string) func() {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := s.accountLock(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// --- AccountRepositoryFacade ---

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	if _, exists := s.numbers[account.AccountNumber]; exists {
		return fmt.Errorf("%w: account number %s already exists", apperrors.ErrDuplicate, account.AccountNumber)
	}
	s.accounts[account.AccountID] = account
	s.numbers[account.AccountNumber] = account.AccountID
	return nil
}

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &account, nil
}

func (s *Store) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.numbers[accountNumber]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Account{}
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.AccountID, b.AccountID)
	})
	return out, nil
}

func (s *Store) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, now time.Time) error {
	release := s.lockAccounts([]string{accountID})
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	account.Status = status
	account.UpdatedAt = now
	s.accounts[accountID] = account
	return nil
}

// CloseAccount holds the account mutex, so no ledger scope can fund the
// account between the balance check and the status write.
func (s *Store) CloseAccount(ctx context.Context, accountID string, now time.Time) error {
	release := s.lockAccounts([]string{accountID})
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if !account.Balance.IsZero() {
		return fmt.Errorf("%w: account %s still holds %s", apperrors.ErrInvalidState, accountID, account.Balance.StringFixed(2))
	}
	account.Status = domain.AccountClosed
	account.UpdatedAt = now
	s.accounts[accountID] = account
	return nil
}

func (s *Store) UpdateInterestRate(ctx context.Context, accountID string, rate decimal.Decimal, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	account.InterestRate = rate
	account.UpdatedAt = now
	s.accounts[accountID] = account
	return nil
}

// --- TransactionReader ---

func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.txns[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	txn := st.txn
	return &txn, nil
}

// matching returns the entries touching accountID that pass filter, newest first.
// Callers must hold mu.
func (s *Store) matching(accountID string, filter domain.TransactionFilter) []*storedTxn {
	var out []*storedTxn
	for _, st := range s.txns {
		if st.txn.Touches(accountID) && filter.Matches(st.txn) {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b *storedTxn) int {
		if c := b.txn.CreatedAt.Compare(a.txn.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return out
}

func (s *Store) ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pageOf(s.matching(accountID, domain.TransactionFilter{}), limit, 0), nil
}

// ListHistory reads the page, total and summary under one read lock.
func (s *Store) ListHistory(ctx context.Context, accountID string, filter domain.TransactionFilter, limit, offset int) (domain.HistoryPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.matching(accountID, filter)

	page := domain.HistoryPage{
		Transactions: pageOf(all, limit, offset),
		Total:        int64(len(all)),
	}
	for _, st := range all {
		page.Summary.Add(accountID, st.txn)
	}
	return page, nil
}

func pageOf(all []*storedTxn, limit, offset int) []domain.Transaction {
	out := []domain.Transaction{}
	if offset >= len(all) || limit <= 0 {
		return out
	}
	end := min(offset+limit, len(all))
	for _, st := range all[offset:end] {
		out = append(out, st.txn)
	}
	return out
}

// --- UnitOfWork ---

func (s *Store) WithinAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release := s.lockAccounts(accountIDs)
	defer release()

	tx := &ledgerTx{
		store:    s,
		accounts: make(map[string]domain.Account, len(accountIDs)),
		updates:  make(map[string]domain.Transaction),
	}
	s.mu.RLock()
	for _, id := range accountIDs {
		if a, ok := s.accounts[id]; ok {
			tx.accounts[id] = a
		}
	}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.publish(tx)
}

// publish applies a finished scope. Only balances and entries are written;
// status and rate changes made concurrently through the account writer are kept.
func (s *Store) publish(tx *ledgerTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range tx.inserts {
		if _, exists := s.txns[txn.TransactionID]; exists {
			return fmt.Errorf("%w: transaction %s already exists", apperrors.ErrDuplicate, txn.TransactionID)
		}
		if _, exists := s.refs[txn.Reference]; exists {
			return fmt.Errorf("%w: reference %s already exists", apperrors.ErrDuplicate, txn.Reference)
		}
	}

	for id := range tx.touched {
		stored := s.accounts[id]
		staged := tx.accounts[id]
		stored.Balance = staged.Balance
		stored.UpdatedAt = staged.UpdatedAt
		s.accounts[id] = stored
	}
	for _, txn := range tx.inserts {
		if u, ok := tx.updates[txn.TransactionID]; ok {
			txn = u
		}
		s.seq++
		s.txns[txn.TransactionID] = &storedTxn{seq: s.seq, txn: txn}
		s.refs[txn.Reference] = txn.TransactionID
		if orig := txn.Metadata.ReversedTransactionID; orig != "" {
			s.reversals[orig] = txn.TransactionID
		}
	}
	for id, txn := range tx.updates {
		if st, ok := s.txns[id]; ok {
			st.txn = txn
		}
	}
	return nil
}
