package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Compile-time check to ensure RedisStore implements SnapshotStore
var _ SnapshotStore = (*RedisStore)(nil)

type RedisStore struct {
	client  *redis.Client
	key     string
	channel string
}

func NewRedisStore(client *redis.Client, snapshotKey, channel string) *RedisStore {
	return &RedisStore{
		client:  client,
		key:     snapshotKey,
		channel: channel,
	}
}

// Latest reads the cached snapshot (GET). A missing or expired key is not an error.
func (r *RedisStore) Latest(ctx context.Context) (string, error) {
	payload, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", r.key, err)
	}
	return payload, nil
}

// RunPubSub is a blocking loop that reads snapshots from the channel and triggers the callback
func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(payload string)) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	// Wait for the subscription confirmation so publishes after this call are not missed
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			onMessage(msg.Payload)
		}
	}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
