package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSlots keeps slots in a redis hash per session so a fleet of storefront
// processes can share browser state.
type RedisSlots struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSlots(redisURL string, ttl time.Duration) (*RedisSlots, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisSlots{client: client, prefix: "shopfront:slots:", ttl: ttl}, nil
}

func (r *RedisSlots) key(sessionID string) string { return r.prefix + sessionID }

func (r *RedisSlots) Get(ctx context.Context, sessionID, slot string) ([]byte, error) {
	v, err := r.client.HGet(ctx, r.key(sessionID), slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotEmpty
	}
	return v, err
}

func (r *RedisSlots) Put(ctx context.Context, sessionID, slot string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(sessionID), slot, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(sessionID), r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

const maxUpdateRetries = 10

// Update watches the session hash and retries when another writer got in
// between the read and the write.
func (r *RedisSlots) Update(ctx context.Context, sessionID, slot string, fn UpdateFunc) error {
	key := r.key(sessionID)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, slot).Bytes()
		if errors.Is(err, redis.Nil) {
			cur, err = nil, nil
		}
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, slot, next)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}
	return fmt.Errorf("update %s: too much contention", slot)
}

func (r *RedisSlots) Delete(ctx context.Context, sessionID, slot string) error {
	return r.client.HDel(ctx, r.key(sessionID), slot).Err()
}

func (r *RedisSlots) Close() error { return r.client.Close() }
