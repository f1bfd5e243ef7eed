package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisLedger stores one expiring key per delivered message.
type redisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func openRedis(opts Options) (Ledger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisLedger(client, opts), nil
}

func newRedisLedger(client *redis.Client, opts Options) *redisLedger {
	return &redisLedger{client: client, prefix: opts.RedisPrefix, ttl: opts.TTL}
}

func (r *redisLedger) Close() error {
	return r.client.Close()
}

func (r *redisLedger) Seen(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *redisLedger) Mark(ctx context.Context, id string) error {
	if err := r.client.Set(ctx, r.prefix+id, 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
