package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/core/policy"
	portsrepo "github.com/SscSPs/bank_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChannelAccountNumber marks transfers whose destination was given by account number.
const ChannelAccountNumber = "accountNumber"

// ledgerService implements portssvc.LedgerSvc on top of a UnitOfWork.
// Validation happens on the locked snapshots, so checks and writes see the same balances.
type ledgerService struct {
	BaseService
	accounts portsrepo.AccountReader
	txns     portsrepo.TransactionReader
	uow      portsrepo.UnitOfWork
	policy   policy.Policy
	cache    portssvc.BalanceCache
	events   portssvc.EventPublisher
	refs     *ReferenceGenerator
	now      func() time.Time
}

// LedgerOption is a functional option for configuring the ledger service
type LedgerOption func(*ledgerService)

// WithPolicy replaces the default fee and minimum balance rules.
func WithPolicy(p policy.Policy) LedgerOption {
	return func(s *ledgerService) {
		s.policy = p
	}
}

// WithBalanceCache evicts cached balances after every committed mutation.
func WithBalanceCache(cache portssvc.BalanceCache) LedgerOption {
	return func(s *ledgerService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithEventPublisher publishes an event after every committed mutation.
func WithEventPublisher(publisher portssvc.EventPublisher) LedgerOption {
	return func(s *ledgerService) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates the orchestrator for deposits, withdrawals and transfers.
func NewLedgerService(repos portsrepo.RepositoryProvider, options ...LedgerOption) portssvc.LedgerSvc {
	svc := &ledgerService{
		accounts: repos.AccountRepo,
		txns:     repos.TransactionRepo,
		uow:      repos.UnitOfWork,
		policy:   policy.DefaultPolicy(),
		cache:    portssvc.NoopBalanceCache{},
		events:   portssvc.NoopEventPublisher{},
		now:      time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	svc.refs = NewReferenceGenerator(svc.now)
	return svc
}

var _ portssvc.LedgerSvc = (*ledgerService)(nil)

func (s *ledgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.MovementResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Deposit"
	}

	var result domain.MovementResult
	err := s.uow.WithinAccountLock(ctx, []string{accountID}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, err := lockedActiveAccount(tx, accountID)
		if err != nil {
			return err
		}

		now := s.timestamp()
		txn := s.newEntry(domain.DepositTxn, nil, &accountID, amount, description, metadata, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		balance, err := tx.Credit(ctx, accountID, amount, now)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, tx, &txn, now); err != nil {
			return err
		}

		account.Balance = balance
		account.UpdatedAt = now
		result = domain.MovementResult{Transaction: txn, Account: account, NewBalance: balance}
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Deposit failed", slog.String("account_id", accountID), slog.String("amount", utils.FormatMoney(amount)))
		return nil, err
	}

	s.afterCommit(ctx, portssvc.EventDeposit, result.Transaction)
	s.LogInfo(ctx, "Deposit completed",
		slog.String("account_id", accountID),
		slog.String("reference", result.Transaction.Reference),
		slog.String("amount", utils.FormatMoney(amount)))
	return &result, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.MovementResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Withdrawal"
	}

	var result domain.MovementResult
	err := s.uow.WithinAccountLock(ctx, []string{accountID}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, err := lockedActiveAccount(tx, accountID)
		if err != nil {
			return err
		}

		floor := s.policy.MinimumBalance(account.AccountType)
		if account.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is below requested %s", apperrors.ErrInsufficientFunds, account.Balance, amount)
		}
		if account.Balance.Sub(amount).LessThan(floor) {
			return fmt.Errorf("%w: withdrawal would breach minimum balance of %s", apperrors.ErrInsufficientFunds, floor)
		}

		now := s.timestamp()
		txn := s.newEntry(domain.WithdrawalTxn, &accountID, nil, amount, description, metadata, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		balance, err := tx.Debit(ctx, accountID, amount, floor, now)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, tx, &txn, now); err != nil {
			return err
		}

		account.Balance = balance
		account.UpdatedAt = now
		result = domain.MovementResult{Transaction: txn, Account: account, NewBalance: balance}
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Withdrawal failed", slog.String("account_id", accountID), slog.String("amount", utils.FormatMoney(amount)))
		return nil, err
	}

	s.afterCommit(ctx, portssvc.EventWithdrawal, result.Transaction)
	s.LogInfo(ctx, "Withdrawal completed",
		slog.String("account_id", accountID),
		slog.String("reference", result.Transaction.Reference),
		slog.String("amount", utils.FormatMoney(amount)))
	return &result, nil
}

func (s *ledgerService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.TransferResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if fromAccountID == toAccountID {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSameAccount, fromAccountID)
	}
	if description == "" {
		description = "Transfer"
	}

	var result domain.TransferResult
	err := s.uow.WithinAccountLock(ctx, []string{fromAccountID, toAccountID}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		from, ok := tx.Account(fromAccountID)
		if !ok {
			return notFound("source account", fromAccountID)
		}
		to, ok := tx.Account(toAccountID)
		if !ok {
			return notFound("destination account", toAccountID)
		}
		if !from.IsActive() {
			return inactive("source account", from)
		}
		if !to.IsActive() {
			return inactive("destination account", to)
		}
		if from.CurrencyCode != to.CurrencyCode {
			return fmt.Errorf("%w: %s to %s", apperrors.ErrCurrencyMismatch, from.CurrencyCode, to.CurrencyCode)
		}

		fee := s.policy.TransferFee(from, to, amount)
		total := amount.Add(fee)
		floor := s.policy.MinimumBalance(from.AccountType)
		if from.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is below requested %s", apperrors.ErrInsufficientFunds, from.Balance, amount)
		}
		if from.Balance.Sub(total).LessThan(floor) {
			return fmt.Errorf("%w: transfer plus fee %s would breach minimum balance of %s", apperrors.ErrInsufficientFunds, fee, floor)
		}
		if from.Balance.LessThan(total) {
			return fmt.Errorf("%w: balance %s does not cover %s including fee", apperrors.ErrInsufficientFunds, from.Balance, total)
		}

		now := s.timestamp()
		metadata.FeeAmount = &fee
		metadata.TotalDeduction = &total
		txn := s.newEntry(domain.TransferTxn, &fromAccountID, &toAccountID, amount, description, metadata, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		fromBalance, err := tx.Debit(ctx, fromAccountID, total, floor, now)
		if err != nil {
			return err
		}
		toBalance, err := tx.Credit(ctx, toAccountID, amount, now)
		if err != nil {
			return err
		}

		if fee.IsPositive() {
			feeTxn := s.newEntry(domain.FeeTxn, &fromAccountID, nil, fee,
				fmt.Sprintf("Transfer fee for %s", txn.Reference),
				domain.TransactionMetadata{
					Initiator:            metadata.Initiator,
					Channel:              metadata.Channel,
					RelatedTransactionID: txn.TransactionID,
				}, now)
			feeTxn.Status = domain.TxnCompleted
			feeTxn.ProcessedAt = &now
			if err := tx.InsertTransaction(ctx, feeTxn); err != nil {
				return err
			}
			result.FeeTransaction = &feeTxn
			result.Fee = &fee
		}

		if err := s.complete(ctx, tx, &txn, now); err != nil {
			return err
		}

		from.Balance, from.UpdatedAt = fromBalance, now
		to.Balance, to.UpdatedAt = toBalance, now
		result.Transaction = txn
		result.FromAccount = from
		result.ToAccount = to
		result.FromBalance = fromBalance
		result.ToBalance = toBalance
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Transfer failed",
			slog.String("from_account_id", fromAccountID),
			slog.String("to_account_id", toAccountID),
			slog.String("amount", utils.FormatMoney(amount)))
		return nil, err
	}

	s.afterCommit(ctx, portssvc.EventTransfer, result.Transaction)
	s.LogInfo(ctx, "Transfer completed",
		slog.String("reference", result.Transaction.Reference),
		slog.String("from_account_id", fromAccountID),
		slog.String("to_account_id", toAccountID),
		slog.String("amount", utils.FormatMoney(amount)))
	return &result, nil
}

func (s *ledgerService) TransferByAccountNumber(ctx context.Context, fromAccountID, toAccountNumber string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata) (*domain.TransferResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	dest, err := s.accounts.FindAccountByNumber(ctx, toAccountNumber)
	if err != nil {
		s.LogFailure(ctx, err, "Destination lookup failed", slog.String("account_number", toAccountNumber))
		return nil, err
	}
	metadata.Channel = ChannelAccountNumber
	metadata.DestinationAccountNumber = toAccountNumber
	return s.Transfer(ctx, fromAccountID, dest.AccountID, amount, description, metadata)
}

func (s *ledgerService) ApplyInterest(ctx context.Context, accountID string, initiator string) (*domain.MovementResult, error) {
	var result domain.MovementResult
	err := s.uow.WithinAccountLock(ctx, []string{accountID}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, err := lockedActiveAccount(tx, accountID)
		if err != nil {
			return err
		}
		if !s.policy.IsInterestEligible(account.AccountType) {
			return fmt.Errorf("%w: %s accounts do not earn interest", apperrors.ErrValidation, account.AccountType)
		}
		interest := s.policy.MonthlyInterest(account)
		if !interest.IsPositive() {
			return fmt.Errorf("%w: no interest accrued on account %s", apperrors.ErrValidation, accountID)
		}

		now := s.timestamp()
		rate := account.InterestRate
		principal := account.Balance
		txn := s.newEntry(domain.InterestTxn, nil, &accountID, interest,
			fmt.Sprintf("Monthly interest at %s%%", rate.String()),
			domain.TransactionMetadata{
				Initiator:       initiator,
				InterestRate:    &rate,
				PrincipalAmount: &principal,
			}, now)
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		balance, err := tx.Credit(ctx, accountID, interest, now)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, tx, &txn, now); err != nil {
			return err
		}

		account.Balance = balance
		account.UpdatedAt = now
		result = domain.MovementResult{Transaction: txn, Account: account, NewBalance: balance}
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Interest posting failed", slog.String("account_id", accountID))
		return nil, err
	}

	s.afterCommit(ctx, portssvc.EventInterest, result.Transaction)
	s.LogInfo(ctx, "Interest posted",
		slog.String("account_id", accountID),
		slog.String("amount", utils.FormatMoney(result.Transaction.Amount)))
	return &result, nil
}

func (s *ledgerService) ReverseTransaction(ctx context.Context, transactionID, reason, initiator string) (*domain.ReversalResult, error) {
	original, err := s.txns.FindTransactionByID(ctx, transactionID)
	if err != nil {
		s.LogFailure(ctx, err, "Reversal lookup failed", slog.String("transaction_id", transactionID))
		return nil, err
	}
	if reason == "" {
		reason = "Transaction reversal"
	}

	var result domain.ReversalResult
	err = s.uow.WithinAccountLock(ctx, original.AccountIDs(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		// Re-read under lock so a concurrent reversal or cancel is seen.
		current, err := tx.FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if current.Status != domain.TxnCompleted {
			return fmt.Errorf("%w: only completed transactions can be reversed, %s is %s", apperrors.ErrInvalidState, transactionID, current.Status)
		}
		if orig := current.Metadata.ReversedTransactionID; orig != "" {
			return fmt.Errorf("%w: %s is the reversal of %s and cannot be reversed", apperrors.ErrInvalidState, transactionID, orig)
		}
		if err := ensureNotReversed(ctx, tx, transactionID); err != nil {
			return err
		}

		now := s.timestamp()
		meta := domain.TransactionMetadata{
			Initiator:             initiator,
			ReversedTransactionID: transactionID,
			ReversalReason:        reason,
		}
		description := "Reversal: " + reason
		balances := make(map[string]decimal.Decimal, 2)

		var rev domain.Transaction
		switch current.Type {
		case domain.DepositTxn, domain.InterestTxn:
			target := *current.ToAccountID
			if err := checkReversalDebit(tx, target, current.Amount); err != nil {
				return err
			}
			rev = s.newReversal(domain.WithdrawalTxn, &target, nil, current.Amount, description, meta, now)
			if err := tx.InsertTransaction(ctx, rev); err != nil {
				return err
			}
			if balances[target], err = tx.Debit(ctx, target, current.Amount, decimal.Zero, now); err != nil {
				return err
			}
		case domain.WithdrawalTxn:
			target := *current.FromAccountID
			if _, err := lockedActiveAccount(tx, target); err != nil {
				return err
			}
			rev = s.newReversal(domain.DepositTxn, nil, &target, current.Amount, description, meta, now)
			if err := tx.InsertTransaction(ctx, rev); err != nil {
				return err
			}
			if balances[target], err = tx.Credit(ctx, target, current.Amount, now); err != nil {
				return err
			}
		case domain.TransferTxn:
			payer, payee := *current.ToAccountID, *current.FromAccountID
			if err := checkReversalDebit(tx, payer, current.Amount); err != nil {
				return err
			}
			if _, err := lockedActiveAccount(tx, payee); err != nil {
				return err
			}
			rev = s.newReversal(domain.TransferTxn, &payer, &payee, current.Amount, description, meta, now)
			if err := tx.InsertTransaction(ctx, rev); err != nil {
				return err
			}
			if balances[payer], err = tx.Debit(ctx, payer, current.Amount, decimal.Zero, now); err != nil {
				return err
			}
			if balances[payee], err = tx.Credit(ctx, payee, current.Amount, now); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s entries cannot be reversed", apperrors.ErrInvalidState, current.Type)
		}

		if err := s.complete(ctx, tx, &rev, now); err != nil {
			return err
		}
		result = domain.ReversalResult{Original: *current, Reversal: rev, Balances: balances}
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Reversal failed", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.afterCommit(ctx, portssvc.EventReversal, result.Reversal)
	s.LogInfo(ctx, "Transaction reversed",
		slog.String("transaction_id", transactionID),
		slog.String("reversal_reference", result.Reversal.Reference),
		slog.String("initiator", initiator))
	return &result, nil
}

func (s *ledgerService) CancelTransaction(ctx context.Context, transactionID, reason, initiator string) (*domain.Transaction, error) {
	original, err := s.txns.FindTransactionByID(ctx, transactionID)
	if err != nil {
		s.LogFailure(ctx, err, "Cancel lookup failed", slog.String("transaction_id", transactionID))
		return nil, err
	}
	if reason == "" {
		reason = "Cancelled by user"
	}

	var cancelled domain.Transaction
	err = s.uow.WithinAccountLock(ctx, original.AccountIDs(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		current, err := tx.FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if current.Status != domain.TxnPending {
			return fmt.Errorf("%w: only pending transactions can be cancelled, %s is %s", apperrors.ErrInvalidState, transactionID, current.Status)
		}
		meta := current.Metadata
		meta.CancellationReason = reason
		meta.CancelledBy = initiator
		if err := tx.UpdateTransactionStatus(ctx, transactionID, domain.TxnCancelled, meta); err != nil {
			return err
		}
		cancelled = *current
		cancelled.Status = domain.TxnCancelled
		cancelled.Metadata = meta
		return nil
	})
	if err != nil {
		s.LogFailure(ctx, err, "Cancel failed", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.afterCommit(ctx, portssvc.EventCancelled, cancelled)
	s.LogInfo(ctx, "Transaction cancelled",
		slog.String("transaction_id", transactionID),
		slog.String("cancelled_by", initiator))
	return &cancelled, nil
}

// newEntry builds a pending ledger entry with a fresh ID and reference.
func (s *ledgerService) newEntry(kind domain.TransactionType, from, to *string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata, now time.Time) domain.Transaction {
	return domain.Transaction{
		TransactionID: uuid.NewString(),
		Reference:     s.refs.Next(kind.ReferenceTag()),
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Type:          kind,
		Description:   description,
		Status:        domain.TxnPending,
		Metadata:      metadata,
		CreatedAt:     now,
	}
}

func (s *ledgerService) newReversal(kind domain.TransactionType, from, to *string, amount decimal.Decimal, description string, metadata domain.TransactionMetadata, now time.Time) domain.Transaction {
	txn := s.newEntry(kind, from, to, amount, description, metadata, now)
	txn.Reference = s.refs.Next(ReversalTag)
	return txn
}

// complete marks a pending entry completed inside the scope and mirrors it on txn.
func (s *ledgerService) complete(ctx context.Context, tx portsrepo.LedgerTx, txn *domain.Transaction, now time.Time) error {
	if err := tx.CompleteTransaction(ctx, txn.TransactionID, now); err != nil {
		return err
	}
	txn.Status = domain.TxnCompleted
	txn.ProcessedAt = &now
	return nil
}

// afterCommit runs side effects that must not affect the outcome of a committed operation.
func (s *ledgerService) afterCommit(ctx context.Context, eventType string, txn domain.Transaction) {
	ids := txn.AccountIDs()
	s.cache.Invalidate(ctx, ids...)
	event := portssvc.LedgerEvent{
		Type:        eventType,
		Timestamp:   s.timestamp(),
		AccountIDs:  ids,
		Transaction: &txn,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.LogError(ctx, err, "Failed to publish ledger event",
			slog.String("event_type", eventType),
			slog.String("transaction_id", txn.TransactionID))
	}
}

func (s *ledgerService) timestamp() time.Time {
	return s.now().UTC()
}

// amountScale is the number of decimal places money amounts may carry.
const amountScale = 2

// maxAmount bounds a single amount so that it fits the storage columns.
var maxAmount = decimal.New(1, 15)

func checkAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return fmt.Errorf("%w: must be greater than zero, got %s", apperrors.ErrInvalidAmount, amount.String())
	case !amount.Equal(amount.Truncate(amountScale)):
		return fmt.Errorf("%w: %s has more than %d decimal places", apperrors.ErrInvalidAmount, amount.String(), amountScale)
	case amount.GreaterThanOrEqual(maxAmount):
		return fmt.Errorf("%w: %s exceeds the largest supported amount", apperrors.ErrInvalidAmount, amount.String())
	}
	return nil
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, what, id)
}

func inactive(what string, account domain.Account) error {
	return fmt.Errorf("%w: %s %s is %s", apperrors.ErrInvalidState, what, account.AccountID, account.Status)
}

func lockedActiveAccount(tx portsrepo.LedgerTx, accountID string) (domain.Account, error) {
	account, ok := tx.Account(accountID)
	if !ok {
		return domain.Account{}, notFound("account", accountID)
	}
	if !account.IsActive() {
		return domain.Account{}, inactive("account", account)
	}
	return account, nil
}

// checkReversalDebit ensures the side giving money back is active and can cover the amount.
// Reversals may take an account below its product minimum but never below zero.
func checkReversalDebit(tx portsrepo.LedgerTx, accountID string, amount decimal.Decimal) error {
	account, err := lockedActiveAccount(tx, accountID)
	if err != nil {
		return err
	}
	if account.Balance.LessThan(amount) {
		return fmt.Errorf("%w: account %s cannot cover reversal of %s", apperrors.ErrInsufficientFunds, accountID, amount)
	}
	return nil
}

func ensureNotReversed(ctx context.Context, tx portsrepo.LedgerTx, transactionID string) error {
	existing, err := tx.FindReversal(ctx, transactionID)
	if err == nil {
		return fmt.Errorf("%w: transaction %s was already reversed by %s", apperrors.ErrInvalidState, transactionID, existing.Reference)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
