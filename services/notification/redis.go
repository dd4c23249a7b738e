package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"bookline/models"

	"github.com/go-redis/redis/v8"
)

// RedisPublisher pushes engine events onto per-shop redis channels. The
// realtime delivery layer subscribes to "shop-events:<shopID>".
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Publisher over an existing redis client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func channelFor(shopID string) string {
	return "shop-events:" + shopID
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.EngineEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal engine event: %w", err)
	}
	if err := p.client.Publish(ctx, channelFor(event.ShopID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event for shop %s: %w", event.Type, event.ShopID, err)
	}
	return nil
}
