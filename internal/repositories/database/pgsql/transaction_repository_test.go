package pgsql

import (
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountFilter(t *testing.T) {
	deposit := domain.DepositTxn
	completed := domain.TxnCompleted
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	max := decimal.NewFromInt(500)

	tests := []struct {
		name      string
		filter    domain.TransactionFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "account only",
			filter:    domain.TransactionFilter{},
			wantWhere: "(from_account_id = $1 OR to_account_id = $1)",
			wantArgs:  1,
		},
		{
			name:      "type and status",
			filter:    domain.TransactionFilter{Type: &deposit, Status: &completed},
			wantWhere: "(from_account_id = $1 OR to_account_id = $1) AND type = $2 AND status = $3",
			wantArgs:  3,
		},
		{
			name:      "date and amount bounds",
			filter:    domain.TransactionFilter{DateFrom: &from, AmountMax: &max},
			wantWhere: "(from_account_id = $1 OR to_account_id = $1) AND created_at >= $2 AND amount <= $3",
			wantArgs:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := accountFilter("acc_1", tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Len(t, args, tt.wantArgs)
			assert.Equal(t, "acc_1", args[0])
		})
	}
}
