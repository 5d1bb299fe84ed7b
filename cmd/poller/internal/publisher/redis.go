package publisher

import (
	"context"
	"fmt"
	"time"
)

// Compile-time check to ensure RedisPublisher implements Sink
var _ Sink = (*RedisPublisher)(nil)

// RedisPublisher caches the latest snapshot under one key and announces it on one channel.
type RedisPublisher struct {
	rdb     RedisClient
	key     string
	channel string
	ttl     time.Duration
}

func NewRedisPublisher(rdb RedisClient, key, channel string, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, key: key, channel: channel, ttl: ttl}
}

func (r *RedisPublisher) Name() string { return "redis" }

func (r *RedisPublisher) Publish(ctx context.Context, _ time.Time, payload []byte) error {
	// Atomic SET + PUBLISH in single pipeline so late joiners and subscribers agree
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, r.key, payload, r.ttl)
	pipe.Publish(ctx, r.channel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}
