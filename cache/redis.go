package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache shared between server instances. Each collection keeps a
// set of its member keys so it can be invalidated without SCAN.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisClient dials addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedis(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) entryKey(collection, key string) string {
	return r.prefix + ":" + collection + ":" + key
}

func (r *Redis) indexKey(collection string) string {
	return r.prefix + ":idx:" + collection
}

func (r *Redis) Get(ctx context.Context, collection, key string, dst interface{}) (bool, error) {
	b, err := r.rdb.Get(ctx, r.entryKey(collection, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observe(collection, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	observe(collection, true)
	if err := decode(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, collection, key string, v interface{}) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	k := r.entryKey(collection, key)
	idx := r.indexKey(collection)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, k, b, r.ttl)
		p.SAdd(ctx, idx, k)
		p.Expire(ctx, idx, 2*r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) InvalidateCollection(ctx context.Context, collections ...string) error {
	for _, c := range collections {
		idx := r.indexKey(c)
		keys, err := r.rdb.SMembers(ctx, idx).Result()
		if err != nil {
			return fmt.Errorf("redis smembers: %w", err)
		}
		if err := r.rdb.Del(ctx, append(keys, idx)...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		invalidations.WithLabelValues(c).Inc()
	}
	return nil
}
