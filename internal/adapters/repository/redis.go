package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisBackend = "redis"

// RedisStore implements Store on top of a Redis server. Ranked sets are
// sorted sets, aggregates and ledger entries are hashes and the event id
// counter is a plain INCR key.
type RedisStore struct {
	client      redis.UniversalClient
	scanCount   int64
	deleteBatch int
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and validates the connection with PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	cfg.HydrateDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return newRedisStore(client, cfg), nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the connection settings; Close closes the client.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	var cfg RedisConfig
	cfg.HydrateDefaults()
	return newRedisStore(client, cfg)
}

func newRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	return &RedisStore{
		client:      client,
		scanCount:   cfg.ScanCount,
		deleteBatch: cfg.DeleteBatch,
	}
}

// translate maps redis.Nil to ErrNotFound and wraps everything else.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrNotFound
	default:
		return fmt.Errorf("redis %s: %w", op, err)
	}
}

// Incr implements Store.
func (r *RedisStore) Incr(ctx context.Context, key string) (n int64, err error) {
	defer func(start time.Time) { observe(redisBackend, "incr", start, err) }(time.Now())

	n, err = r.client.Incr(ctx, key).Result()
	return n, translate("incr", err)
}

// HSet implements Store.
func (r *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) (err error) {
	defer func(start time.Time) { observe(redisBackend, "hset", start, err) }(time.Now())

	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for f, v := range fields {
		values[f] = v
	}
	return translate("hset", r.client.HSet(ctx, key, values).Err())
}

// HGet implements Store.
func (r *RedisStore) HGet(ctx context.Context, key, field string) (v string, err error) {
	defer func(start time.Time) { observe(redisBackend, "hget", start, err) }(time.Now())

	v, err = r.client.HGet(ctx, key, field).Result()
	return v, translate("hget", err)
}

// HGetAll implements Store.
func (r *RedisStore) HGetAll(ctx context.Context, key string) (out map[string]string, err error) {
	defer func(start time.Time) { observe(redisBackend, "hgetall", start, err) }(time.Now())

	out, err = r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, translate("hgetall", err)
	}
	return out, nil
}

// ZAdd implements Store.
func (r *RedisStore) ZAdd(ctx context.Context, key, member string, score float64) (err error) {
	defer func(start time.Time) { observe(redisBackend, "zadd", start, err) }(time.Now())

	return translate("zadd", r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

// ZRevRange implements Store.
func (r *RedisStore) ZRevRange(ctx context.Context, key string, start, stop int64) (ids []string, err error) {
	defer func(t time.Time) { observe(redisBackend, "zrevrange", t, err) }(time.Now())

	ids, err = r.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, translate("zrevrange", err)
	}
	return ids, nil
}

// ZRevRangeWithScores implements Store.
func (r *RedisStore) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) (out []Member, err error) {
	defer func(t time.Time) { observe(redisBackend, "zrevrange", t, err) }(time.Now())

	zs, err := r.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, translate("zrevrange", err)
	}
	out = make([]Member, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			id = fmt.Sprint(z.Member)
		}
		out = append(out, Member{ID: id, Score: z.Score})
	}
	return out, nil
}

// ZRevRank implements Store.
func (r *RedisStore) ZRevRank(ctx context.Context, key, member string) (rank int64, err error) {
	defer func(start time.Time) { observe(redisBackend, "zrevrank", start, err) }(time.Now())

	rank, err = r.client.ZRevRank(ctx, key, member).Result()
	return rank, translate("zrevrank", err)
}

// ZScore implements Store.
func (r *RedisStore) ZScore(ctx context.Context, key, member string) (score float64, err error) {
	defer func(start time.Time) { observe(redisBackend, "zscore", start, err) }(time.Now())

	score, err = r.client.ZScore(ctx, key, member).Result()
	return score, translate("zscore", err)
}

// ZCard implements Store.
func (r *RedisStore) ZCard(ctx context.Context, key string) (n int64, err error) {
	defer func(start time.Time) { observe(redisBackend, "zcard", start, err) }(time.Now())

	n, err = r.client.ZCard(ctx, key).Result()
	return n, translate("zcard", err)
}

// Keys implements Store. It walks the keyspace with SCAN so large resets do
// not block the server the way KEYS would.
func (r *RedisStore) Keys(ctx context.Context, pattern string) (keys []string, err error) {
	defer func(start time.Time) { observe(redisBackend, "keys", start, err) }(time.Now())

	seen := make(map[string]struct{})
	keys = []string{}
	var cursor uint64
	for {
		var batch []string
		batch, cursor, err = r.client.Scan(ctx, cursor, pattern, r.scanCount).Result()
		if err != nil {
			return nil, translate("scan", err)
		}
		for _, k := range batch {
			// SCAN may return a key more than once.
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Del implements Store. Keys are removed in batches.
func (r *RedisStore) Del(ctx context.Context, keys ...string) (n int64, err error) {
	defer func(start time.Time) { observe(redisBackend, "del", start, err) }(time.Now())

	for len(keys) > 0 {
		end := min(r.deleteBatch, len(keys))
		removed, err := r.client.Del(ctx, keys[:end]...).Result()
		if err != nil {
			return n, translate("del", err)
		}
		n += removed
		keys = keys[end:]
	}
	return n, nil
}

// FlushAll implements Store.
func (r *RedisStore) FlushAll(ctx context.Context) (err error) {
	defer func(start time.Time) { observe(redisBackend, "flushall", start, err) }(time.Now())

	return translate("flushall", r.client.FlushAll(ctx).Err())
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return translate("ping", r.client.Ping(ctx).Err())
}

// Close releases the client connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
