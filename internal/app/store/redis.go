package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"roomsync/internal/pkg/errs"
)

// Redis implements Store on top of a Redis server via go-redis.
type Redis struct {
	rdb *redis.Client
}

// NewRedis constructs a Redis-backed Store. The connection is lazy; callers
// should Ping once at startup to surface connectivity problems early.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("get", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return storeErr("set", key, err)
	}
	return nil
}

func (r *Redis) HGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := r.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("hget", key, err)
	}
	return val, true, nil
}

func (r *Redis) HSet(ctx context.Context, key, field, value string) error {
	if err := r.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return storeErr("hset", key, err)
	}
	return nil
}

func (r *Redis) HDel(ctx context.Context, key, field string) error {
	if err := r.rdb.HDel(ctx, key, field).Err(); err != nil {
		return storeErr("hdel", key, err)
	}
	return nil
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeErr("hgetall", key, err)
	}
	return fields, nil
}

func (r *Redis) RPush(ctx context.Context, key, value string) error {
	if err := r.rdb.RPush(ctx, key, value).Err(); err != nil {
		return storeErr("rpush", key, err)
	}
	return nil
}

func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, storeErr("lrange", key, err)
	}
	return vals, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return storeErr("ping", "", err)
	}
	return nil
}

// storeErr tags driver errors with the StorageUnavailable condition so call
// sites can apply the log-and-continue policy uniformly.
func storeErr(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("redis %s: %w", op, errs.Storage(err))
	}
	return fmt.Errorf("redis %s %q: %w", op, key, errs.Storage(err))
}
