package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "feedback:session:"

// noExpiry is the index score of sessions without TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.SessionStore using Redis.
// Each session is a JSON string; a sorted set indexes live sessions by
// expiry so List can prune lazily.
type Store[T any] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type config struct {
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*config)

// WithTTL expires idle sessions. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New[T any](address, password string, db int, opts ...Option) *Store[T] {
	return NewFromClient[T](NewClient(address, password, db), opts...)
}

// NewClient builds the client shared by stores and the locker.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient[T any](client *backend.Client, opts ...Option) *Store[T] {
	c := config{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&c)
	}
	return &Store[T]{client: client, prefix: c.prefix, ttl: c.ttl}
}

func (s *Store[T]) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store[T]) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session to Redis.
func (s *Store[T]) Save(ctx context.Context, sessionID string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the session from Redis.
func (s *Store[T]) Load(ctx context.Context, sessionID string) (*T, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var v T
	if err := json.Unmarshal(val, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &v, nil
}

// Delete removes the session.
func (s *Store[T]) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns live sessions, pruning expired index entries first.
func (s *Store[T]) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store[T]) Close() error {
	return s.client.Close()
}
