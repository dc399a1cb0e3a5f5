package services

import (
	"context"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
)

// BalanceCache stores balance snapshots between reads. Implementations must
// treat every failure as a miss; the ledger stays correct without a cache.
type BalanceCache interface {
	Get(ctx context.Context, accountID string, recentLimit int) (*domain.BalanceSnapshot, bool)
	Set(ctx context.Context, snapshot domain.BalanceSnapshot, recentLimit int)
	Invalidate(ctx context.Context, accountIDs ...string)
}

// LedgerEvent is emitted after a mutation commits.
type LedgerEvent struct {
	Type        string              `json:"type"`
	Timestamp   time.Time           `json:"timestamp"`
	AccountIDs  []string            `json:"accountIds"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

// Event types published on the ledger stream.
const (
	EventDeposit     = "ledger.deposit"
	EventWithdrawal  = "ledger.withdrawal"
	EventTransfer    = "ledger.transfer"
	EventInterest    = "ledger.interest"
	EventReversal    = "ledger.reversal"
	EventCancelled   = "ledger.cancelled"
	EventAccountOpen = "account.opened"
)

// EventPublisher delivers ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

// NoopBalanceCache never caches.
type NoopBalanceCache struct{}

func (NoopBalanceCache) Get(context.Context, string, int) (*domain.BalanceSnapshot, bool) {
	return nil, false
}
func (NoopBalanceCache) Set(context.Context, domain.BalanceSnapshot, int) {}
func (NoopBalanceCache) Invalidate(context.Context, ...string)             {}

// NoopEventPublisher drops every event.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, LedgerEvent) error { return nil }
