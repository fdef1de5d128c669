package cache

import (
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "commute:travel:"

// RedisTravelCache stores travel times as JSON values with a Redis TTL.
type RedisTravelCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTravelCache(client *redis.Client, ttl time.Duration) *RedisTravelCache {
	return &RedisTravelCache{client: client, ttl: ttl}
}

func redisKey(origin, destination string) string {
	return redisKeyPrefix + origin + "|" + destination
}

func (r *RedisTravelCache) Get(
	ctx context.Context,
	origin string,
	destination string,
) (_ ports.TravelTime, _ bool, err error) {
	defer obs.Time(ctx, "travel.redis.Get")(&err)

	b, err := r.client.Get(ctx, redisKey(origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.TravelTime{}, false, nil
	}
	if err != nil {
		return ports.TravelTime{}, false, fmt.Errorf("redis travel cache get: %w", err)
	}

	var tt ports.TravelTime
	if err := json.Unmarshal(b, &tt); err != nil {
		return ports.TravelTime{}, false, fmt.Errorf("redis travel cache decode: %w", err)
	}
	return tt, true, nil
}

func (r *RedisTravelCache) Put(
	ctx context.Context,
	origin string,
	destination string,
	tt ports.TravelTime,
) (err error) {
	defer obs.Time(ctx, "travel.redis.Put")(&err)

	b, err := json.Marshal(tt)
	if err != nil {
		return fmt.Errorf("redis travel cache encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(origin, destination), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis travel cache set: %w", err)
	}
	return nil
}
