package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_Validate(t *testing.T) {
	acc := "acc_1"
	other := "acc_2"

	tests := []struct {
		name    string
		tx      domain.Transaction
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid deposit",
			tx: domain.Transaction{
				Reference:   "DEP1",
				ToAccountID: &acc,
				Amount:      decimal.NewFromInt(500),
				Type:        domain.DepositTxn,
			},
		},
		{
			name: "valid transfer",
			tx: domain.Transaction{
				Reference:     "TRF1",
				FromAccountID: &acc,
				ToAccountID:   &other,
				Amount:        decimal.NewFromInt(10),
				Type:          domain.TransferTxn,
			},
		},
		{
			name: "deposit with source account",
			tx: domain.Transaction{
				Reference:     "DEP1",
				FromAccountID: &other,
				ToAccountID:   &acc,
				Amount:        decimal.NewFromInt(1),
				Type:          domain.DepositTxn,
			},
			wantErr: true,
			errMsg:  "only a destination account",
		},
		{
			name: "withdrawal without source",
			tx: domain.Transaction{
				Reference:   "WDR1",
				ToAccountID: &acc,
				Amount:      decimal.NewFromInt(1),
				Type:        domain.WithdrawalTxn,
			},
			wantErr: true,
			errMsg:  "only a source account",
		},
		{
			name: "zero amount",
			tx: domain.Transaction{
				Reference:   "DEP1",
				ToAccountID: &acc,
				Amount:      decimal.Zero,
				Type:        domain.DepositTxn,
			},
			wantErr: true,
			errMsg:  "must be positive",
		},
		{
			name: "unknown type",
			tx: domain.Transaction{
				Reference:   "X",
				ToAccountID: &acc,
				Amount:      decimal.NewFromInt(1),
				Type:        "payment",
			},
			wantErr: true,
			errMsg:  "unknown transaction type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionFilter_Matches(t *testing.T) {
	acc := "acc_1"
	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tx := domain.Transaction{
		ToAccountID: &acc,
		Amount:      decimal.NewFromInt(250),
		Type:        domain.DepositTxn,
		Status:      domain.TxnCompleted,
		CreatedAt:   created,
	}

	deposit := domain.DepositTxn
	withdrawal := domain.WithdrawalTxn
	completed := domain.TxnCompleted
	min := decimal.NewFromInt(250)
	max := decimal.NewFromInt(100)

	assert.True(t, domain.TransactionFilter{}.Matches(tx))
	assert.True(t, domain.TransactionFilter{Type: &deposit, Status: &completed}.Matches(tx))
	assert.False(t, domain.TransactionFilter{Type: &withdrawal}.Matches(tx))
	assert.True(t, domain.TransactionFilter{DateFrom: &created, DateTo: &created}.Matches(tx), "date bounds are inclusive")
	assert.True(t, domain.TransactionFilter{AmountMin: &min}.Matches(tx), "amount bounds are inclusive")
	assert.False(t, domain.TransactionFilter{AmountMax: &max}.Matches(tx))
}

func TestTransactionSummary_Add(t *testing.T) {
	a, b := "a", "b"
	var s domain.TransactionSummary

	s.Add(a, domain.Transaction{Type: domain.DepositTxn, ToAccountID: &a, Amount: decimal.NewFromInt(100)})
	s.Add(a, domain.Transaction{Type: domain.TransferTxn, FromAccountID: &a, ToAccountID: &b, Amount: decimal.NewFromInt(40)})
	s.Add(a, domain.Transaction{Type: domain.TransferTxn, FromAccountID: &b, ToAccountID: &a, Amount: decimal.NewFromInt(15)})
	s.Add(a, domain.Transaction{Type: domain.FeeTxn, FromAccountID: &a, Amount: decimal.RequireFromString("2.04")})
	s.Add(a, domain.Transaction{Type: domain.WithdrawalTxn, FromAccountID: &a, Amount: decimal.NewFromInt(5)})
	s.Add(a, domain.Transaction{Type: domain.InterestTxn, ToAccountID: &a, Amount: decimal.RequireFromString("0.50")})

	assert.Equal(t, int64(6), s.TotalTransactions)
	assert.True(t, s.TotalDeposits.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.TotalTransfersOut.Equal(decimal.NewFromInt(40)))
	assert.True(t, s.TotalTransfersIn.Equal(decimal.NewFromInt(15)))
	assert.True(t, s.TotalFees.Equal(decimal.RequireFromString("2.04")))
	assert.True(t, s.TotalWithdrawals.Equal(decimal.NewFromInt(5)))
	assert.True(t, s.TotalInterest.Equal(decimal.RequireFromString("0.5")))
}

func TestTransaction_AccountIDs(t *testing.T) {
	a, b := "a", "b"
	assert.Equal(t, []string{"a", "b"}, domain.Transaction{FromAccountID: &a, ToAccountID: &b}.AccountIDs())
	assert.Equal(t, []string{"a"}, domain.Transaction{FromAccountID: &a, ToAccountID: &a}.AccountIDs())
	assert.Equal(t, []string{"b"}, domain.Transaction{ToAccountID: &b}.AccountIDs())
}
