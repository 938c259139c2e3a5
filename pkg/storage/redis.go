package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds connection settings for the redis-backed store.
type Config struct {
	ConnectionURL  string        `env:"FLAGKIT_REDIS_URL" envDefault:"redis://localhost:6379/0"` // Format "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"FLAGKIT_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"FLAGKIT_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"FLAGKIT_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// RedisStore persists decisions in redis, one JSON document per
// (featureKey, userId) pair. Suitable for server-side hosts that share
// assignments across processes.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithTTL sets an expiry on stored decisions. Zero means no expiry, which
// keeps assignments sticky indefinitely.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "flagkit:decision:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes a redis connection from config, retrying per the
// configured attempts, and returns a store on top of it.
func Connect(ctx context.Context, cfg Config, opts ...RedisOption) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	connOpt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	for range attempts {
		client := redis.NewClient(connOpt)
		if err := client.Ping(ctx).Err(); err == nil {
			return NewRedisStore(client, opts...), nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrStoreUnavailable, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrStoreUnavailable
}

func (s *RedisStore) key(featureKey, userID string) string {
	return s.keyPrefix + featureKey + ":" + userID
}

// Get returns the stored decision for the pair, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, featureKey, userID string) (*Record, error) {
	payload, err := s.client.Get(ctx, s.key(featureKey, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		// A record we cannot decode is as good as no record.
		return nil, errors.Join(ErrInvalidRecord, err)
	}
	return &record, nil
}

// Set validates and stores the record.
func (s *RedisStore) Set(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	if err := s.client.Set(ctx, s.key(record.FeatureKey, record.UserID), payload, s.ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
