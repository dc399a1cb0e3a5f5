package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/platform/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// unreachableClient points at a port nothing listens on, so every command fails fast.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ledger:balance:acc_1", cache.Key("acc_1"))
}

func TestRedisBalanceCache_FailuresAreMisses(t *testing.T) {
	client := unreachableClient()
	defer client.Close()
	c := cache.NewRedisBalanceCache(client, time.Minute)
	ctx := context.Background()

	snapshot, ok := c.Get(ctx, "acc_1", 5)
	assert.False(t, ok)
	assert.Nil(t, snapshot)

	assert.NotPanics(t, func() {
		c.Set(ctx, domain.BalanceSnapshot{Account: domain.Account{AccountID: "acc_1"}}, 5)
		c.Invalidate(ctx, "acc_1", "acc_2")
		c.Invalidate(ctx)
	})
}
