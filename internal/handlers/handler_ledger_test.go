package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/handlers"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	router   *gin.Engine
	ledger   *MockLedgerService
	query    *MockQueryService
	accounts *MockAccountService
	userID   string
}

func newLedgerFixture() *ledgerFixture {
	gin.SetMode(gin.TestMode)
	f := &ledgerFixture{
		router: gin.New(),
		ledger: new(MockLedgerService),
		query:    new(MockQueryService),
		accounts: new(MockAccountService),
		userID:   uuid.NewString(),
	}
	f.router.Use(middleware.AuthMiddleware(testJWTSecret))
	handlers.RegisterLedgerRoutes(f.router.Group("/api/v1"), f.ledger, f.query, f.accounts)
	return f
}

// owns lets the caller act on the given accounts.
func (f *ledgerFixture) owns(accountIDs ...string) {
	for _, id := range accountIDs {
		f.accounts.On("AuthorizeAccountAccess", mock.Anything, f.userID, id).Return(nil)
	}
}

// foreign makes the given accounts belong to someone else.
func (f *ledgerFixture) foreign(accountIDs ...string) {
	for _, id := range accountIDs {
		f.accounts.On("AuthorizeAccountAccess", mock.Anything, f.userID, id).
			Return(fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id))
	}
}

func (f *ledgerFixture) do(t *testing.T, method, url, body, role string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, url, nil)
	} else {
		req, _ = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, f.userID, role))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func completedTxn(typ domain.TransactionType, from, to *string, amount string) domain.Transaction {
	now := time.Now().UTC()
	return domain.Transaction{
		TransactionID: uuid.NewString(),
		Reference:     "TXN" + uuid.NewString()[:8],
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
		Status:        domain.TxnCompleted,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
}

func TestDeposit_Success(t *testing.T) {
	f := newLedgerFixture()
	accountID := uuid.NewString()
	txn := completedTxn(domain.DepositTxn, nil, &accountID, "100.50")

	f.ledger.On("Deposit", mock.Anything, accountID, decimalEq("100.50"), "salary",
		mock.MatchedBy(func(m domain.TransactionMetadata) bool {
			return m.Initiator == f.userID && m.Extra["source"] == "payroll"
		}),
	).Return(&domain.MovementResult{Transaction: txn, NewBalance: decimal.RequireFromString("100.50")}, nil).Once()

	body := fmt.Sprintf(`{"accountID":%q,"amount":"100.50","description":"salary","metadata":{"source":"payroll"}}`, accountID)
	w := f.do(t, http.MethodPost, "/api/v1/transactions/deposit", body, "")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.MovementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, txn.TransactionID, resp.Transaction.TransactionID)
	assert.True(t, resp.NewBalance.Equal(decimal.RequireFromString("100.5")))
	f.ledger.AssertExpectations(t)
}

func TestDeposit_MissingAccount(t *testing.T) {
	f := newLedgerFixture()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/deposit", `{"amount":"10"}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.ledger.AssertNotCalled(t, "Deposit")
}

func TestWithdraw_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"insufficient funds", fmt.Errorf("%w: balance 10.00", apperrors.ErrInsufficientFunds), http.StatusUnprocessableEntity, "insufficient funds"},
		{"invalid amount", fmt.Errorf("%w: 0.005 has more than 2 decimal places", apperrors.ErrInvalidAmount), http.StatusBadRequest, "decimal places"},
		{"inactive account", fmt.Errorf("%w: account suspended", apperrors.ErrInvalidState), http.StatusConflict, "suspended"},
		{"storage failure", apperrors.Persistence("debit account", errors.New("connection reset")), http.StatusInternalServerError, "Withdrawal failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()
			accountID := uuid.NewString()
			f.owns(accountID)
			f.ledger.On("Withdraw", mock.Anything, accountID, mock.Anything, "", mock.Anything).Return(nil, tt.err).Once()

			w := f.do(t, http.MethodPost, "/api/v1/transactions/withdraw", fmt.Sprintf(`{"accountID":%q,"amount":50}`, accountID), "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestTransfer_WithFee(t *testing.T) {
	f := newLedgerFixture()
	from, to := uuid.NewString(), uuid.NewString()
	fee := decimal.RequireFromString("2.50")
	principal := completedTxn(domain.TransferTxn, &from, &to, "200")
	feeTxn := completedTxn(domain.FeeTxn, &from, nil, "2.50")
	f.owns(from)

	f.ledger.On("Transfer", mock.Anything, from, to, decimalEq("200"), "rent", mock.Anything).
		Return(&domain.TransferResult{
			Transaction:    principal,
			FeeTransaction: &feeTxn,
			FromBalance:    decimal.RequireFromString("297.50"),
			ToBalance:      decimal.NewFromInt(200),
			Fee:            &fee,
		}, nil).Once()

	body := fmt.Sprintf(`{"fromAccountID":%q,"toAccountID":%q,"amount":"200","description":"rent"}`, from, to)
	w := f.do(t, http.MethodPost, "/api/v1/transactions/transfer", body, "")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.TransferResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.FeeTransaction)
	assert.Equal(t, feeTxn.TransactionID, resp.FeeTransaction.TransactionID)
	require.NotNil(t, resp.Fee)
	assert.True(t, resp.Fee.Equal(fee))
	assert.True(t, resp.FromBalance.Equal(decimal.RequireFromString("297.5")))
}

func TestTransfer_SameAccount(t *testing.T) {
	f := newLedgerFixture()
	id := uuid.NewString()
	f.owns(id)
	f.ledger.On("Transfer", mock.Anything, id, id, mock.Anything, "", mock.Anything).Return(nil, apperrors.ErrSameAccount).Once()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/transfer", fmt.Sprintf(`{"fromAccountID":%q,"toAccountID":%q,"amount":"1"}`, id, id), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferByNumber_Success(t *testing.T) {
	f := newLedgerFixture()
	from, to := uuid.NewString(), uuid.NewString()
	f.owns(from)
	f.ledger.On("TransferByAccountNumber", mock.Anything, from, "CHK000000042", decimalEq("75"), "", mock.Anything).
		Return(&domain.TransferResult{
			Transaction: completedTxn(domain.TransferTxn, &from, &to, "75"),
			FromBalance: decimal.NewFromInt(25),
			ToBalance:   decimal.NewFromInt(75),
		}, nil).Once()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/transfer/by-number", fmt.Sprintf(`{"fromAccountID":%q,"toAccountNumber":"CHK000000042","amount":"75"}`, from), "")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "feeTransaction")
	f.ledger.AssertExpectations(t)
}

func TestGetTransaction(t *testing.T) {
	f := newLedgerFixture()
	to := uuid.NewString()
	txn := completedTxn(domain.DepositTxn, nil, &to, "5")
	f.owns(to)
	f.query.On("GetTransaction", mock.Anything, txn.TransactionID).Return(&txn, nil).Once()
	f.query.On("GetTransaction", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound).Once()

	w := f.do(t, http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), txn.Reference)

	w = f.do(t, http.MethodGet, "/api/v1/transactions/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWithdraw_ForeignAccount(t *testing.T) {
	f := newLedgerFixture()
	victim := uuid.NewString()
	f.foreign(victim)

	w := f.do(t, http.MethodPost, "/api/v1/transactions/withdraw", fmt.Sprintf(`{"accountID":%q,"amount":"900"}`, victim), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	f.ledger.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransfer_ForeignSource(t *testing.T) {
	f := newLedgerFixture()
	victim, mine := uuid.NewString(), uuid.NewString()
	f.foreign(victim)

	w := f.do(t, http.MethodPost, "/api/v1/transactions/transfer",
		fmt.Sprintf(`{"fromAccountID":%q,"toAccountID":%q,"amount":"10"}`, victim, mine), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/transactions/transfer/by-number",
		fmt.Sprintf(`{"fromAccountID":%q,"toAccountNumber":"CHK000000042","amount":"10"}`, victim), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "TransferByAccountNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdraw_AdminSkipsOwnership(t *testing.T) {
	f := newLedgerFixture()
	accountID := uuid.NewString()
	f.ledger.On("Withdraw", mock.Anything, accountID, decimalEq("5"), "", mock.Anything).
		Return(&domain.MovementResult{Transaction: completedTxn(domain.WithdrawalTxn, &accountID, nil, "5"), NewBalance: decimal.NewFromInt(95)}, nil).Once()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/withdraw", fmt.Sprintf(`{"accountID":%q,"amount":"5"}`, accountID), middleware.RoleAdmin)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.accounts.AssertNotCalled(t, "AuthorizeAccountAccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTransaction_NeitherSideOwned(t *testing.T) {
	f := newLedgerFixture()
	from, to := uuid.NewString(), uuid.NewString()
	txn := completedTxn(domain.TransferTxn, &from, &to, "5")
	f.foreign(from, to)
	f.query.On("GetTransaction", mock.Anything, txn.TransactionID).Return(&txn, nil)

	w := f.do(t, http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), txn.Reference)

	w = f.do(t, http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, "", middleware.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTransaction_DestinationOwnerMaySee(t *testing.T) {
	f := newLedgerFixture()
	from, to := uuid.NewString(), uuid.NewString()
	txn := completedTxn(domain.TransferTxn, &from, &to, "5")
	f.foreign(from)
	f.owns(to)
	f.query.On("GetTransaction", mock.Anything, txn.TransactionID).Return(&txn, nil).Once()

	w := f.do(t, http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, "", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancel_RequiresAdmin(t *testing.T) {
	f := newLedgerFixture()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/"+uuid.NewString()+"/cancel", `{"reason":"dup"}`, "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	f.ledger.AssertNotCalled(t, "CancelTransaction")
}

func TestCancel_NotPending(t *testing.T) {
	f := newLedgerFixture()
	id := uuid.NewString()
	f.ledger.On("CancelTransaction", mock.Anything, id, "dup", f.userID).
		Return(nil, fmt.Errorf("%w: transaction is completed", apperrors.ErrInvalidState)).Once()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/"+id+"/cancel", `{"reason":"dup"}`, middleware.RoleAdmin)

	assert.Equal(t, http.StatusConflict, w.Code)
	f.ledger.AssertExpectations(t)
}

func TestReverse_EmptyBody(t *testing.T) {
	f := newLedgerFixture()
	acc := uuid.NewString()
	original := completedTxn(domain.DepositTxn, nil, &acc, "40")
	reversal := completedTxn(domain.WithdrawalTxn, &acc, nil, "40")
	f.ledger.On("ReverseTransaction", mock.Anything, original.TransactionID, "", f.userID).
		Return(&domain.ReversalResult{
			Original: original,
			Reversal: reversal,
			Balances: map[string]decimal.Decimal{acc: decimal.Zero},
		}, nil).Once()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/"+original.TransactionID+"/reverse", "", middleware.RoleAdmin)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.ReversalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, reversal.TransactionID, resp.ReversalTransaction.TransactionID)
	assert.Contains(t, resp.Balances, acc)
}

func TestReverse_AlreadyReversed(t *testing.T) {
	f := newLedgerFixture()
	id := uuid.NewString()
	f.ledger.On("ReverseTransaction", mock.Anything, id, "customer dispute", f.userID).
		Return(nil, fmt.Errorf("%w: already reversed", apperrors.ErrInvalidState)).Once()

	w := f.do(t, http.MethodPost, "/api/v1/transactions/"+id+"/reverse", `{"reason":"customer dispute"}`, middleware.RoleAdmin)

	assert.Equal(t, http.StatusConflict, w.Code)
}
