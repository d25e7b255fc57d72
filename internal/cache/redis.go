package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/catalog-service/internal/model"
)

// DefaultRedisPrefix namespaces the cache keys.
const DefaultRedisPrefix = "catalog:cache:"

// RedisStore keeps the snapshot and the manual bucket in two Redis hashes
// keyed by job id, plus a string key holding the capture time.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore returns a RedisStore. An empty prefix means DefaultRedisPrefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, logger: slog.Default().With("component", "redis-cache")}
}

func (s *RedisStore) jobsKey() string     { return s.prefix + "jobs" }
func (s *RedisStore) manualKey() string   { return s.prefix + "manual" }
func (s *RedisStore) capturedKey() string { return s.prefix + "captured_at" }

// Load returns the snapshot hash and its capture time.
func (s *RedisStore) Load(ctx context.Context) (model.Snapshot, error) {
	jobs, err := s.loadHash(ctx, s.jobsKey())
	if err != nil {
		return model.Snapshot{}, err
	}
	at, err := s.rdb.Get(ctx, s.capturedKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.Snapshot{}, fmt.Errorf("redis GET %s: %w", s.capturedKey(), err)
	}
	return model.Snapshot{Jobs: jobs, CapturedAt: parseTime(at)}, nil
}

// Replace swaps the snapshot hash atomically.
func (s *RedisStore) Replace(ctx context.Context, recs []model.JobRecord, capturedAt time.Time) error {
	fields := make(map[string]any, len(recs))
	for _, r := range recs {
		b, err := encode(r)
		if err != nil {
			return err
		}
		fields[r.ID] = b
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.jobsKey())
		if len(fields) > 0 {
			pipe.HSet(ctx, s.jobsKey(), fields)
		}
		pipe.Set(ctx, s.capturedKey(), formatTime(capturedAt), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace snapshot: %w", err)
	}
	return nil
}

// Put writes one snapshot record.
func (s *RedisStore) Put(ctx context.Context, rec model.JobRecord) error {
	return s.put(ctx, s.jobsKey(), rec)
}

// Get reads one snapshot record.
func (s *RedisStore) Get(ctx context.Context, id string) (model.JobRecord, bool, error) {
	data, err := s.rdb.HGet(ctx, s.jobsKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.JobRecord{}, false, nil
	}
	if err != nil {
		return model.JobRecord{}, false, fmt.Errorf("redis HGET %s: %w", id, err)
	}
	rec, err := decode(data)
	if err != nil {
		return model.JobRecord{}, false, err
	}
	return rec, true, nil
}

// Delete removes one snapshot record.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.HDel(ctx, s.jobsKey(), id).Err(); err != nil {
		return fmt.Errorf("redis HDEL %s: %w", id, err)
	}
	return nil
}

// LoadManual returns the manual bucket.
func (s *RedisStore) LoadManual(ctx context.Context) ([]model.JobRecord, error) {
	return s.loadHash(ctx, s.manualKey())
}

// PutManual writes one manual record.
func (s *RedisStore) PutManual(ctx context.Context, rec model.JobRecord) error {
	return s.put(ctx, s.manualKey(), rec)
}

// DeleteManual removes one manual record.
func (s *RedisStore) DeleteManual(ctx context.Context, id string) error {
	if err := s.rdb.HDel(ctx, s.manualKey(), id).Err(); err != nil {
		return fmt.Errorf("redis HDEL manual %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, key string, rec model.JobRecord) error {
	b, err := encode(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, key, rec.ID, b).Err(); err != nil {
		return fmt.Errorf("redis HSET %s %s: %w", key, rec.ID, err)
	}
	return nil
}

func (s *RedisStore) loadHash(ctx context.Context, key string) ([]model.JobRecord, error) {
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	recs := make([]model.JobRecord, 0, len(raw))
	for id, v := range raw {
		rec, err := decode([]byte(v))
		if err != nil {
			s.logger.Warn("skipping undecodable cache entry", "key", key, "id", id, "err", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
