package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "plantops:matrix:"
	versionPrefix = "plantops:matrix-version:"
	epochKey      = "plantops:matrix-epoch"
)

// RedisMatrixCache keeps built permission matrices in redis, keyed by user id. Each user also has a
// version counter, bumped on invalidation, and all users share an epoch bumped by InvalidateAll.
// Version counters never expire so a token can not repeat after an invalidation.
type RedisMatrixCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMatrixCache(client *redis.Client, ttl time.Duration) *RedisMatrixCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisMatrixCache{client: client, ttl: ttl}
}

// Connect dials redis and verifies the connection with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func key(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

func versionKey(userID int64) string {
	return fmt.Sprintf("%s%d", versionPrefix, userID)
}

func (c *RedisMatrixCache) Get(ctx context.Context, userID int64) (permission.Matrix, bool, error) {
	data, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return permission.Matrix{}, false, nil
	}
	if err != nil {
		return permission.Matrix{}, false, err
	}

	var m permission.Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		// a corrupt entry is treated as a miss and removed
		_ = c.client.Del(ctx, key(userID)).Err()
		return permission.Matrix{}, false, nil
	}
	return m, true, nil
}

// Version returns the token Set compares against: "<epoch>:<user version>".
func (c *RedisMatrixCache) Version(ctx context.Context, userID int64) (string, error) {
	return version(ctx, c.client, userID)
}

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func version(ctx context.Context, cmd multiGetter, userID int64) (string, error) {
	vals, err := cmd.MGet(ctx, epochKey, versionKey(userID)).Result()
	if err != nil {
		return "", err
	}
	counter := func(v interface{}) string {
		if n, ok := v.(string); ok {
			return n
		}
		return "0"
	}
	return counter(vals[0]) + ":" + counter(vals[1]), nil
}

// Set stores m only if the user's version still matches. The check and the write run in one
// WATCH/MULTI transaction so an invalidation in between aborts the write.
func (c *RedisMatrixCache) Set(ctx context.Context, userID int64, expected string, m permission.Matrix) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal matrix: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := version(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != expected {
			return permission.ErrStaleMatrix
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(userID), data, c.ttl)
			return nil
		})
		return err
	}, epochKey, versionKey(userID))
	if errors.Is(err, redis.TxFailedErr) {
		return permission.ErrStaleMatrix
	}
	return err
}

func (c *RedisMatrixCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = key(id)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, versionKey(id))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

func (c *RedisMatrixCache) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, epochKey).Err(); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
