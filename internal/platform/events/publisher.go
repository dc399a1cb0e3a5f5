// Package events publishes committed ledger mutations to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/redis/go-redis/v9"
)

// maxStreamLen caps the stream; trimming is approximate.
const maxStreamLen = 100000

// RedisStreamPublisher appends every ledger event to one stream.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream}
}

var _ portssvc.EventPublisher = (*RedisStreamPublisher)(nil)

// Publish adds the event with its type and accounts as flat fields next to the JSON body,
// so consumers can route without decoding.
func (p *RedisStreamPublisher) Publish(ctx context.Context, event portssvc.LedgerEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{
			"type":     event.Type,
			"accounts": strings.Join(event.AccountIDs, ","),
			"event":    eventJSON,
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
