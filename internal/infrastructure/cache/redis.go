package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const (
	defaultRedisPrefix = "steeltiger:"
	indexKey           = "__datasets"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL    string // redis://[:password@]host:port/db
	Prefix string
	TTL    time.Duration // zero keeps datasets until replaced
}

// RedisStore keeps each dataset as one JSON document under prefix+key and
// tracks the stored keys in a set, so several service instances share one
// copy of the data.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %v", domain.ErrStoreUnavailable, err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %v", domain.ErrStoreUnavailable, err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.TTL, logger), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis_store").Logger(),
	}
}

// GetDataset returns the stored dataset. Misses, decoding problems and
// connection errors all yield an empty dataset.
func (s *RedisStore) GetDataset(ctx context.Context, key string) domain.Dataset {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.EmptyDataset(key)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("dataset", key).Msg("redis get failed")
		return domain.EmptyDataset(key)
	}

	var dataset domain.Dataset
	if err := json.Unmarshal(raw, &dataset); err != nil {
		s.logger.Warn().Err(err).Str("dataset", key).Msg("stored dataset is not valid JSON")
		return domain.EmptyDataset(key)
	}
	if dataset.Rows == nil {
		dataset.Rows = []domain.Row{}
	}
	return dataset
}

// PutDataset replaces the dataset stored under key
func (s *RedisStore) PutDataset(ctx context.Context, key string, dataset domain.Dataset) error {
	dataset.Meta.Dataset = key
	dataset.Meta.Count = len(dataset.Rows)

	payload, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("marshal dataset %s: %w", key, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+key, payload, s.ttl)
		pipe.SAdd(ctx, s.prefix+indexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis set %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Keys returns the keys of every dataset still present, sorted
func (s *RedisStore) Keys(ctx context.Context) []string {
	members, err := s.client.SMembers(ctx, s.prefix+indexKey).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("redis index read failed")
		return []string{}
	}

	keys := make([]string, 0, len(members))
	for _, key := range members {
		n, err := s.client.Exists(ctx, s.prefix+key).Result()
		if err != nil || n == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
