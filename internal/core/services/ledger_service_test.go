package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/core/services"
	"github.com/SscSPs/bank_ledger/internal/repositories/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []portssvc.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e portssvc.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// MockBalanceCache is a mock type for the BalanceCache interface
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) Get(ctx context.Context, accountID string, recentLimit int) (*domain.BalanceSnapshot, bool) {
	args := m.Called(ctx, accountID, recentLimit)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.BalanceSnapshot), args.Bool(1)
}

func (m *MockBalanceCache) Set(ctx context.Context, snapshot domain.BalanceSnapshot, recentLimit int) {
	m.Called(ctx, snapshot, recentLimit)
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, accountIDs ...string) {
	m.Called(ctx, accountIDs)
}

// faultyUnitOfWork wraps a real unit of work and injects storage failures into its scopes.
type faultyUnitOfWork struct {
	portsrepo.UnitOfWork
	failCredit bool
	failInsert domain.TransactionType
}

func (u faultyUnitOfWork) WithinAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return u.UnitOfWork.WithinAccountLock(ctx, accountIDs, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return fn(ctx, faultyLedgerTx{LedgerTx: tx, failCredit: u.failCredit, failInsert: u.failInsert})
	})
}

type faultyLedgerTx struct {
	portsrepo.LedgerTx
	failCredit bool
	failInsert domain.TransactionType
}

func (t faultyLedgerTx) Credit(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if t.failCredit {
		return decimal.Zero, apperrors.Persistence("failed to credit account "+accountID, errors.New("connection reset by peer"))
	}
	return t.LedgerTx.Credit(ctx, accountID, amount, now)
}

func (t faultyLedgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if txn.Type == t.failInsert {
		return apperrors.Persistence("failed to insert transaction "+txn.TransactionID, errors.New("connection reset by peer"))
	}
	return t.LedgerTx.InsertTransaction(ctx, txn)
}

type LedgerServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	repos     portsrepo.RepositoryProvider
	publisher *recordingPublisher
	ledger    portssvc.LedgerSvc
	query     portssvc.LedgerQuerySvc
	seq       int
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	suite.repos = memory.NewRepositoryProvider(suite.store)
	suite.publisher = &recordingPublisher{}
	suite.ledger = services.NewLedgerService(suite.repos, services.WithEventPublisher(suite.publisher))
	suite.query = services.NewQueryService(suite.repos)
}

func (suite *LedgerServiceTestSuite) newAccount(owner string, accountType domain.AccountType, currency, balance string) domain.Account {
	return suite.newAccountWithRate(owner, accountType, currency, balance, "0")
}

func (suite *LedgerServiceTestSuite) newAccountWithRate(owner string, accountType domain.AccountType, currency, balance, rate string) domain.Account {
	suite.seq++
	now := time.Now().UTC()
	acc := domain.Account{
		AccountID:     uuid.NewString(),
		AccountNumber: fmt.Sprintf("%s%09d", accountType.AccountNumberPrefix(), suite.seq),
		UserID:        owner,
		AccountType:   accountType,
		Balance:       dec(balance),
		CurrencyCode:  currency,
		Status:        domain.AccountActive,
		InterestRate:  dec(rate),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	suite.Require().NoError(suite.store.SaveAccount(suite.ctx, acc))
	return acc
}

func (suite *LedgerServiceTestSuite) balance(accountID string) decimal.Decimal {
	acc, err := suite.store.FindAccountByID(suite.ctx, accountID)
	suite.Require().NoError(err)
	return acc.Balance
}

func (suite *LedgerServiceTestSuite) history(accountID string) []domain.Transaction {
	h, err := suite.query.GetHistory(suite.ctx, accountID, domain.TransactionFilter{}, 1, 100)
	suite.Require().NoError(err)
	return h.Transactions
}

func (suite *LedgerServiceTestSuite) assertDecimal(expected string, actual decimal.Decimal) {
	suite.True(dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

// --- Scenarios ---

func (suite *LedgerServiceTestSuite) TestDeposit_NewCheckingAccount() {
	acc := suite.newAccount("alice", domain.Checking, "USD", "0")

	res, err := suite.ledger.Deposit(suite.ctx, acc.AccountID, dec("500"), "", domain.TransactionMetadata{Initiator: "alice"})

	suite.Require().NoError(err)
	suite.assertDecimal("500", res.NewBalance)
	suite.assertDecimal("500", res.Account.Balance)
	suite.Equal(domain.DepositTxn, res.Transaction.Type)
	suite.Equal(domain.TxnCompleted, res.Transaction.Status)
	suite.NotNil(res.Transaction.ProcessedAt)
	suite.Regexp(`^DEP\d{13}\d{3}$`, res.Transaction.Reference)
	suite.Equal("Deposit", res.Transaction.Description)

	entries := suite.history(acc.AccountID)
	suite.Require().Len(entries, 1)
	suite.Equal(res.Transaction.TransactionID, entries[0].TransactionID)
	suite.Equal(domain.TxnCompleted, entries[0].Status)
	suite.assertDecimal("500", suite.balance(acc.AccountID))
	suite.Equal([]string{portssvc.EventDeposit}, suite.publisher.types())
}

func (suite *LedgerServiceTestSuite) TestWithdraw_BreachesSavingsFloor() {
	acc := suite.newAccount("alice", domain.Savings, "USD", "150")

	res, err := suite.ledger.Withdraw(suite.ctx, acc.AccountID, dec("100"), "", domain.TransactionMetadata{})

	suite.Nil(res)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.assertDecimal("150", suite.balance(acc.AccountID))
	suite.Empty(suite.history(acc.AccountID))
	suite.Empty(suite.publisher.types())
}

func (suite *LedgerServiceTestSuite) TestTransfer_DifferentOwnersChargesFee() {
	a := suite.newAccount("alice", domain.Checking, "USD", "2000")
	b := suite.newAccount("bob", domain.Checking, "USD", "0")

	res, err := suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("1000"), "rent", domain.TransactionMetadata{Initiator: "alice"})

	suite.Require().NoError(err)
	suite.Require().NotNil(res.Fee)
	suite.assertDecimal("3", *res.Fee)
	suite.assertDecimal("997", res.FromBalance)
	suite.assertDecimal("1000", res.ToBalance)
	suite.assertDecimal("997", suite.balance(a.AccountID))
	suite.assertDecimal("1000", suite.balance(b.AccountID))

	suite.Equal(domain.TxnCompleted, res.Transaction.Status)
	suite.Require().NotNil(res.Transaction.Metadata.FeeAmount)
	suite.assertDecimal("3", *res.Transaction.Metadata.FeeAmount)
	suite.assertDecimal("1003", *res.Transaction.Metadata.TotalDeduction)

	suite.Require().NotNil(res.FeeTransaction)
	suite.Equal(domain.FeeTxn, res.FeeTransaction.Type)
	suite.Equal(res.Transaction.TransactionID, res.FeeTransaction.Metadata.RelatedTransactionID)
	suite.Regexp(`^FEE\d+$`, res.FeeTransaction.Reference)

	entries := suite.history(a.AccountID)
	suite.Len(entries, 2, "transfer and fee")
	suite.Len(suite.history(b.AccountID), 1, "destination sees only the transfer")
}

func (suite *LedgerServiceTestSuite) TestTransfer_SameOwnerIsFree() {
	a := suite.newAccount("alice", domain.Checking, "USD", "500")
	b := suite.newAccount("alice", domain.Savings, "USD", "0")

	res, err := suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("200"), "", domain.TransactionMetadata{})

	suite.Require().NoError(err)
	suite.Nil(res.Fee)
	suite.Nil(res.FeeTransaction)
	suite.assertDecimal("300", res.FromBalance)
	suite.assertDecimal("200", res.ToBalance)
	suite.Len(suite.history(a.AccountID), 1)
}

func (suite *LedgerServiceTestSuite) TestTransfer_CurrencyMismatch() {
	a := suite.newAccount("alice", domain.Checking, "USD", "500")
	b := suite.newAccount("bob", domain.Checking, "EUR", "0")

	_, err := suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("100"), "", domain.TransactionMetadata{})

	suite.ErrorIs(err, apperrors.ErrCurrencyMismatch)
	suite.assertDecimal("500", suite.balance(a.AccountID))
	suite.assertDecimal("0", suite.balance(b.AccountID))
	suite.Empty(suite.history(a.AccountID))
}

func (suite *LedgerServiceTestSuite) TestWithdraw_ConcurrentDoubleSpend() {
	acc := suite.newAccount("alice", domain.Loan, "USD", "100")

	var g errgroup.Group
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = suite.ledger.Withdraw(suite.ctx, acc.AccountID, dec("80"), "", domain.TransactionMetadata{})
			return nil
		})
	}
	suite.Require().NoError(g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
		}
	}
	suite.Equal(1, succeeded)
	suite.assertDecimal("20", suite.balance(acc.AccountID))
}

// --- Properties ---

func (suite *LedgerServiceTestSuite) TestInvalidAmount_NeverMutates() {
	a := suite.newAccount("alice", domain.Checking, "USD", "100")
	b := suite.newAccount("bob", domain.Checking, "USD", "100")

	for _, amount := range []string{"0", "-1", "-0.01"} {
		_, err := suite.ledger.Deposit(suite.ctx, a.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount)
		_, err = suite.ledger.Withdraw(suite.ctx, a.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount)
		_, err = suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount)
		_, err = suite.ledger.Transfer(suite.ctx, a.AccountID, a.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount, "amount is checked before account identity")
	}

	suite.assertDecimal("100", suite.balance(a.AccountID))
	suite.assertDecimal("100", suite.balance(b.AccountID))
	suite.Empty(suite.history(a.AccountID))
}

func (suite *LedgerServiceTestSuite) TestAmountScale() {
	a := suite.newAccount("alice", domain.Checking, "USD", "100")
	b := suite.newAccount("bob", domain.Checking, "USD", "100")

	for _, amount := range []string{"0.005", "1.001", "0.00001", "1000000000000000"} {
		_, err := suite.ledger.Deposit(suite.ctx, a.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount, amount)
		_, err = suite.ledger.Withdraw(suite.ctx, a.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount, amount)
		_, err = suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec(amount), "", domain.TransactionMetadata{})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount, amount)
	}
	suite.Empty(suite.history(a.AccountID))

	// Trailing zeros are not extra precision.
	res, err := suite.ledger.Deposit(suite.ctx, a.AccountID, dec("10.500"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)
	suite.assertDecimal("110.5", res.NewBalance)
	_, err = suite.ledger.Withdraw(suite.ctx, a.AccountID, dec("0.01"), "", domain.TransactionMetadata{})
	suite.NoError(err)
}

func (suite *LedgerServiceTestSuite) TestTransfer_StorageFailureRollsBack() {
	tests := []struct {
		name string
		uow  faultyUnitOfWork
	}{
		{"credit fails after debit", faultyUnitOfWork{failCredit: true}},
		{"fee entry insert fails", faultyUnitOfWork{failInsert: domain.FeeTxn}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			a := suite.newAccount("alice", domain.Checking, "USD", "500")
			b := suite.newAccount("bob", domain.Checking, "USD", "50")
			uow := tt.uow
			uow.UnitOfWork = suite.store
			repos := suite.repos
			repos.UnitOfWork = uow
			publisher := &recordingPublisher{}
			ledger := services.NewLedgerService(repos, services.WithEventPublisher(publisher))

			res, err := ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("100"), "rent", domain.TransactionMetadata{})

			suite.Nil(res)
			suite.ErrorIs(err, apperrors.ErrPersistence)
			suite.Equal(http.StatusInternalServerError, apperrors.StatusCode(err))
			suite.assertDecimal("500", suite.balance(a.AccountID))
			suite.assertDecimal("50", suite.balance(b.AccountID))
			suite.Empty(suite.history(a.AccountID))
			suite.Empty(suite.history(b.AccountID))
			suite.Empty(publisher.types(), "nothing is published for a rolled back transfer")
		})
	}
}

func (suite *LedgerServiceTestSuite) TestTransfer_ConservationAndFloors() {
	owners := []string{"alice", "bob", "carol"}
	accounts := make([]domain.Account, 0, 6)
	for i, owner := range owners {
		accounts = append(accounts,
			suite.newAccount(owner, domain.Checking, "USD", "1000"),
			suite.newAccount(owner, domain.Savings, "USD", decimal.NewFromInt(int64(500*(i+1))).String()),
		)
	}
	total := func() decimal.Decimal {
		sum := decimal.Zero
		for _, a := range accounts {
			sum = sum.Add(suite.balance(a.AccountID))
		}
		return sum
	}
	before := total()
	fees := decimal.Zero

	var g errgroup.Group
	var mu sync.Mutex
	for i := 0; i < 60; i++ {
		from := accounts[i%len(accounts)]
		to := accounts[(i*7+1)%len(accounts)]
		amount := decimal.NewFromInt(int64(37 + (i*53)%400))
		g.Go(func() error {
			res, err := suite.ledger.Transfer(suite.ctx, from.AccountID, to.AccountID, amount, "", domain.TransactionMetadata{})
			if err != nil {
				if errors.Is(err, apperrors.ErrInsufficientFunds) || errors.Is(err, apperrors.ErrSameAccount) {
					return nil
				}
				return err
			}
			if res.Fee != nil {
				mu.Lock()
				fees = fees.Add(*res.Fee)
				mu.Unlock()
			}
			return nil
		})
	}
	suite.Require().NoError(g.Wait())

	suite.True(before.Sub(fees).Equal(total()), "money is only removed through fees")
	for _, a := range accounts {
		bal := suite.balance(a.AccountID)
		floor := map[domain.AccountType]decimal.Decimal{domain.Checking: dec("25"), domain.Savings: dec("100")}[a.AccountType]
		suite.True(bal.GreaterThanOrEqual(floor), "account %s fell to %s", a.AccountID, bal)
	}
}

func (suite *LedgerServiceTestSuite) TestTransfer_SameAccountRejected() {
	a := suite.newAccount("alice", domain.Checking, "USD", "100")

	_, err := suite.ledger.Transfer(suite.ctx, a.AccountID, a.AccountID, dec("10"), "", domain.TransactionMetadata{})

	suite.ErrorIs(err, apperrors.ErrSameAccount)
	suite.Empty(suite.history(a.AccountID))
}

func (suite *LedgerServiceTestSuite) TestTransfer_ValidationOrder() {
	a := suite.newAccount("alice", domain.Checking, "USD", "100")
	b := suite.newAccount("bob", domain.Checking, "EUR", "0")

	_, err := suite.ledger.Transfer(suite.ctx, a.AccountID, "missing", dec("10"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrNotFound)

	suite.Require().NoError(suite.store.UpdateAccountStatus(suite.ctx, b.AccountID, domain.AccountSuspended, time.Now()))
	_, err = suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("10"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrInvalidState, "status is checked before currency")
}

func (suite *LedgerServiceTestSuite) TestTransfer_FeeMustFitAboveFloor() {
	// 127 - 100 - 2.10 = 24.90 < 25
	a := suite.newAccount("alice", domain.Checking, "USD", "127")
	b := suite.newAccount("bob", domain.Checking, "USD", "0")

	_, err := suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("100"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	res, err := suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("99"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)
	suite.assertDecimal("25.90", res.FromBalance)
}

func (suite *LedgerServiceTestSuite) TestWithdraw_ExactBalanceAllowedWhenFloorIsZero() {
	acc := suite.newAccount("alice", domain.Credit, "USD", "80")

	res, err := suite.ledger.Withdraw(suite.ctx, acc.AccountID, dec("80"), "", domain.TransactionMetadata{})

	suite.Require().NoError(err)
	suite.assertDecimal("0", res.NewBalance)
}

func (suite *LedgerServiceTestSuite) TestDeposit_InactiveAndMissingAccounts() {
	acc := suite.newAccount("alice", domain.Checking, "USD", "0")
	suite.Require().NoError(suite.store.UpdateAccountStatus(suite.ctx, acc.AccountID, domain.AccountClosed, time.Now()))

	_, err := suite.ledger.Deposit(suite.ctx, acc.AccountID, dec("5"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrInvalidState)

	_, err = suite.ledger.Deposit(suite.ctx, "missing", dec("5"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- Supplemented operations ---

func (suite *LedgerServiceTestSuite) TestTransferByAccountNumber() {
	a := suite.newAccount("alice", domain.Checking, "USD", "500")
	b := suite.newAccount("bob", domain.Checking, "USD", "0")

	res, err := suite.ledger.TransferByAccountNumber(suite.ctx, a.AccountID, b.AccountNumber, dec("100"), "", domain.TransactionMetadata{})

	suite.Require().NoError(err)
	suite.Equal(b.AccountID, *res.Transaction.ToAccountID)
	suite.Equal(services.ChannelAccountNumber, res.Transaction.Metadata.Channel)
	suite.Equal(b.AccountNumber, res.Transaction.Metadata.DestinationAccountNumber)

	_, err = suite.ledger.TransferByAccountNumber(suite.ctx, a.AccountID, "CHK999999999", dec("1"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestApplyInterest() {
	savings := suite.newAccount("alice", domain.Savings, "USD", "1200")
	withRate := suite.newAccountWithRate("alice", domain.Savings, "USD", "1200", "3")

	res, err := suite.ledger.ApplyInterest(suite.ctx, withRate.AccountID, "scheduler")
	suite.Require().NoError(err)
	suite.assertDecimal("3", res.Transaction.Amount)
	suite.assertDecimal("1203", res.NewBalance)
	suite.Equal(domain.InterestTxn, res.Transaction.Type)
	suite.Regexp(`^INT\d+$`, res.Transaction.Reference)
	suite.assertDecimal("1200", *res.Transaction.Metadata.PrincipalAmount)

	_, err = suite.ledger.ApplyInterest(suite.ctx, savings.AccountID, "scheduler")
	suite.ErrorIs(err, apperrors.ErrValidation, "zero rate accrues nothing")

	checking := suite.newAccount("alice", domain.Checking, "USD", "1200")
	_, err = suite.ledger.ApplyInterest(suite.ctx, checking.AccountID, "scheduler")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestReverseTransfer() {
	a := suite.newAccount("alice", domain.Checking, "USD", "2000")
	b := suite.newAccount("bob", domain.Checking, "USD", "0")
	res, err := suite.ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("1000"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)

	rev, err := suite.ledger.ReverseTransaction(suite.ctx, res.Transaction.TransactionID, "duplicate payment", "admin")

	suite.Require().NoError(err)
	suite.Equal(domain.TransferTxn, rev.Reversal.Type)
	suite.Equal(b.AccountID, *rev.Reversal.FromAccountID)
	suite.Equal(a.AccountID, *rev.Reversal.ToAccountID)
	suite.Equal(res.Transaction.TransactionID, rev.Reversal.Metadata.ReversedTransactionID)
	suite.Regexp(`^REV\d+$`, rev.Reversal.Reference)
	suite.Equal("Reversal: duplicate payment", rev.Reversal.Description)
	// The fee is not refunded.
	suite.assertDecimal("1997", suite.balance(a.AccountID))
	suite.assertDecimal("0", suite.balance(b.AccountID))
	suite.assertDecimal("1997", rev.Balances[a.AccountID])

	_, err = suite.ledger.ReverseTransaction(suite.ctx, res.Transaction.TransactionID, "again", "admin")
	suite.ErrorIs(err, apperrors.ErrInvalidState, "an entry can only be reversed once")

	_, err = suite.ledger.ReverseTransaction(suite.ctx, res.FeeTransaction.TransactionID, "", "admin")
	suite.ErrorIs(err, apperrors.ErrInvalidState, "fee entries are not reversible")
}

func (suite *LedgerServiceTestSuite) TestReverseDeposit_RequiresFunds() {
	acc := suite.newAccount("alice", domain.Checking, "USD", "0")
	dep, err := suite.ledger.Deposit(suite.ctx, acc.AccountID, dec("100"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)
	_, err = suite.ledger.Withdraw(suite.ctx, acc.AccountID, dec("60"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)

	_, err = suite.ledger.ReverseTransaction(suite.ctx, dep.Transaction.TransactionID, "", "admin")
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.assertDecimal("40", suite.balance(acc.AccountID))

	_, err = suite.ledger.ReverseTransaction(suite.ctx, "missing", "", "admin")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestReverseReversal_Rejected() {
	acc := suite.newAccount("alice", domain.Checking, "USD", "0")
	dep, err := suite.ledger.Deposit(suite.ctx, acc.AccountID, dec("100"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)
	rev, err := suite.ledger.ReverseTransaction(suite.ctx, dep.Transaction.TransactionID, "", "admin")
	suite.Require().NoError(err)
	suite.assertDecimal("0", suite.balance(acc.AccountID))

	_, err = suite.ledger.ReverseTransaction(suite.ctx, rev.Reversal.TransactionID, "undo the undo", "admin")

	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.assertDecimal("0", suite.balance(acc.AccountID))
	suite.Len(suite.history(acc.AccountID), 2)
}

func (suite *LedgerServiceTestSuite) TestReverseWithdrawal() {
	acc := suite.newAccount("alice", domain.Checking, "USD", "100")
	wdr, err := suite.ledger.Withdraw(suite.ctx, acc.AccountID, dec("30"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)

	rev, err := suite.ledger.ReverseTransaction(suite.ctx, wdr.Transaction.TransactionID, "", "admin")

	suite.Require().NoError(err)
	suite.Equal(domain.DepositTxn, rev.Reversal.Type)
	suite.assertDecimal("100", suite.balance(acc.AccountID))
	suite.Equal("Reversal: Transaction reversal", rev.Reversal.Description)
}

func (suite *LedgerServiceTestSuite) TestCancelTransaction() {
	acc := suite.newAccount("alice", domain.Checking, "USD", "100")
	pendingID := uuid.NewString()
	suite.Require().NoError(suite.store.WithinAccountLock(suite.ctx, []string{acc.AccountID}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertTransaction(ctx, domain.Transaction{
			TransactionID: pendingID,
			Reference:     "DEP0000000000000001",
			ToAccountID:   &acc.AccountID,
			Amount:        dec("10"),
			Type:          domain.DepositTxn,
			Status:        domain.TxnPending,
			CreatedAt:     time.Now(),
		})
	}))

	cancelled, err := suite.ledger.CancelTransaction(suite.ctx, pendingID, "customer request", "alice")
	suite.Require().NoError(err)
	suite.Equal(domain.TxnCancelled, cancelled.Status)
	suite.Equal("customer request", cancelled.Metadata.CancellationReason)
	suite.Equal("alice", cancelled.Metadata.CancelledBy)

	stored, err := suite.query.GetTransaction(suite.ctx, pendingID)
	suite.Require().NoError(err)
	suite.Equal(domain.TxnCancelled, stored.Status)
	suite.assertDecimal("100", suite.balance(acc.AccountID))

	_, err = suite.ledger.CancelTransaction(suite.ctx, pendingID, "", "alice")
	suite.ErrorIs(err, apperrors.ErrInvalidState)

	dep, err := suite.ledger.Deposit(suite.ctx, acc.AccountID, dec("1"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)
	_, err = suite.ledger.CancelTransaction(suite.ctx, dep.Transaction.TransactionID, "", "alice")
	suite.ErrorIs(err, apperrors.ErrInvalidState, "completed entries cannot be cancelled")
}

func (suite *LedgerServiceTestSuite) TestBalanceCacheInvalidatedAfterCommit() {
	cache := new(MockBalanceCache)
	ledger := services.NewLedgerService(suite.repos, services.WithBalanceCache(cache))
	a := suite.newAccount("alice", domain.Checking, "USD", "500")
	b := suite.newAccount("bob", domain.Checking, "USD", "0")

	cache.On("Invalidate", mock.Anything, []string{a.AccountID, b.AccountID}).Return().Once()
	_, err := ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("10"), "", domain.TransactionMetadata{})
	suite.Require().NoError(err)

	// Rejected operations leave the cache alone.
	_, err = ledger.Transfer(suite.ctx, a.AccountID, b.AccountID, dec("100000"), "", domain.TransactionMetadata{})
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	cache.AssertExpectations(suite.T())
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
