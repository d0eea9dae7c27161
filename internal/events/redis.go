// internal/events/redis.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"escrow-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes every escrow event onto a pub/sub channel for
// external observers (reconciliation, notification services).
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
