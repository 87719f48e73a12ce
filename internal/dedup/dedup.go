// Package dedup guards notifications with short-lived reservations so the
// same transition is not announced twice, e.g. after history was lost or
// when two monitors share a webhook.
package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 7 * 24 * time.Hour
	keyPrefix  = "float-tracker:alert:"
)

// Reserver claims a notification key. TryReserve returns true when the
// caller owns the key and should send the notification.
type Reserver interface {
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NewListingKey identifies the first sighting of a listing.
func NewListingKey(target, listingID string) string {
	return "new:" + target + ":" + listingID
}

// PriceChangeKey identifies the n-th logged change of a listing to price.
func PriceChangeKey(target, listingID string, n int, price int64) string {
	return "change:" + target + ":" + listingID + ":" + strconv.Itoa(n) + ":" + strconv.FormatInt(price, 10)
}

// RedisReserver reserves keys with SET NX and a TTL.
type RedisReserver struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReserver creates a reserver over client. A non-positive ttl uses
// seven days.
func NewRedisReserver(client *redis.Client, ttl time.Duration) *RedisReserver {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisReserver{client: client, ttl: ttl}
}

// TryReserve implements Reserver.
func (r *RedisReserver) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+key, "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserving %q: %w", key, err)
	}
	return ok, nil
}

// Ping verifies the Redis connection.
func (r *RedisReserver) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (r *RedisReserver) Close() error {
	return r.client.Close()
}

// Noop grants every reservation.
type Noop struct{}

// TryReserve implements Reserver.
func (Noop) TryReserve(context.Context, string) (bool, error) {
	return true, nil
}
