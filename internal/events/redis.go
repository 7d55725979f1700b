package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisPublisher is the slice of *redis.Client used here.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher sends JSON-encoded events to a Redis pub/sub channel.
type RedisPublisher struct {
	client  redisPublisher
	channel string
}

// NewRedisPublisher publishes on channel through client.
func NewRedisPublisher(client redisPublisher, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish encodes ev and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
