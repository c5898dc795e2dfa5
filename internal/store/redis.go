package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "abtest:session:"
	testKeyPrefix    = "abtest:test:"
)

// Redis is a Store over a Redis server
type Redis struct {
	client *redis.Client
	ttl    time.Duration // 0 keeps keys forever
	now    func() time.Time
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// OpenRedis connects to Redis and verifies the connection
func OpenRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedis(client, cfg.TTL), nil
}

// NewRedis wraps a connected client
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

func (r *Redis) GetSession(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *Redis) PutSession(ctx context.Context, s *Session) error {
	stored := *s
	stored.UpdatedAt = r.now().UTC()
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *Redis) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Redis) LoadTest(ctx context.Context, testID string) (string, error) {
	payload, err := r.client.Get(ctx, testKeyPrefix+testID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load test: %w", err)
	}
	return payload, nil
}

func (r *Redis) SaveTest(ctx context.Context, testID, payload string) error {
	if err := r.client.Set(ctx, testKeyPrefix+testID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save test: %w", err)
	}
	return nil
}

func (r *Redis) DeleteTest(ctx context.Context, testID string) error {
	if err := r.client.Del(ctx, testKeyPrefix+testID).Err(); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
