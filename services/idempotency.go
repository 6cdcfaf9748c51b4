package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyBookingCreate = "idem:booking:create:%s:%s"

// IdempotencyStore remembers which booking an Idempotency-Key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, email, key string) (uint, bool, error)
	Remember(ctx context.Context, email, key string, bookingID uint) error
}

type RedisIdempotency struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotency(rdb *redis.Client, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotency{rdb: rdb, ttl: ttl}
}

func bookingCreateKey(email, key string) string {
	return fmt.Sprintf(keyBookingCreate, email, key)
}

func (r *RedisIdempotency) Lookup(ctx context.Context, email, key string) (uint, bool, error) {
	val, err := r.rdb.Get(ctx, bookingCreateKey(email, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return uint(id), true, nil
}

// Remember keeps the first booking id stored under a key.
func (r *RedisIdempotency) Remember(ctx context.Context, email, key string, bookingID uint) error {
	return r.rdb.SetNX(ctx, bookingCreateKey(email, key), bookingID, r.ttl).Err()
}
