// Package cache serves balance snapshots from Redis.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ledger:balance:"

// Key returns the Redis hash holding every cached snapshot of an account,
// one field per recent-entries limit, so a single DEL evicts them all.
func Key(accountID string) string {
	return keyPrefix + accountID
}

// RedisBalanceCache is a JSON-backed BalanceCache. Failures are logged and
// treated as misses; the store stays authoritative.
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache creates a cache whose entries expire after ttl.
func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, ttl: ttl}
}

var _ portssvc.BalanceCache = (*RedisBalanceCache)(nil)

func (c *RedisBalanceCache) Get(ctx context.Context, accountID string, recentLimit int) (*domain.BalanceSnapshot, bool) {
	data, err := c.client.HGet(ctx, Key(accountID), strconv.Itoa(recentLimit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.WarnContext(ctx, "Balance cache read failed", slog.String("account_id", accountID), slog.String("error", err.Error()))
		}
		return nil, false
	}
	var snapshot domain.BalanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}

func (c *RedisBalanceCache) Set(ctx context.Context, snapshot domain.BalanceSnapshot, recentLimit int) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.WarnContext(ctx, "Balance cache marshal failed", slog.String("account_id", snapshot.Account.AccountID), slog.String("error", err.Error()))
		return
	}
	key := Key(snapshot.Account.AccountID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(recentLimit), data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "Balance cache write failed", slog.String("account_id", snapshot.Account.AccountID), slog.String("error", err.Error()))
	}
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, accountIDs ...string) {
	if len(accountIDs) == 0 {
		return
	}
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = Key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "Balance cache eviction failed", slog.Any("account_ids", accountIDs), slog.String("error", err.Error()))
	}
}
