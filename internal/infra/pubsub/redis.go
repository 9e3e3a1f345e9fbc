package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"quote_relay/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Compile-time check to ensure RedisPublisher implements TopicPublisher
var _ domain.TopicPublisher = (*RedisPublisher)(nil)

// RedisPublisher PUBLISHes quote JSON on a channel named after the topic.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// DialRedis connects and pings so a bad address fails at startup.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, domain.NewNetworkError("redis ping", err)
	}
	return NewRedisPublisher(client), nil
}

// Name implements domain.TopicPublisher.
func (p *RedisPublisher) Name() string { return "redis" }

// Publish implements domain.TopicPublisher.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, q domain.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return domain.NewNetworkError("redis publish", err)
	}
	return nil
}

// Close releases the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
