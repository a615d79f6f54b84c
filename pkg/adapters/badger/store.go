// Package badger stores sessions in an embedded Badger database, for single
// instance deployments that want persistence without running Redis.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	backend "github.com/dgraph-io/badger/v4"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "session:"

// Store implements ports.SessionStore on Badger.
type Store[T any] struct {
	db     *backend.DB
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*config)

type config struct {
	prefix string
	ttl    time.Duration
}

// WithPrefix separates session kinds sharing one database.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithTTL expires idle sessions. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// Open opens (or creates) a database directory. An empty path opens an
// in-memory database.
func Open(path string) (*backend.DB, error) {
	opts := backend.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := backend.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}
	return db, nil
}

// New creates a store over an open database. The caller owns db.
func New[T any](db *backend.DB, opts ...Option) *Store[T] {
	c := config{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&c)
	}
	return &Store[T]{db: db, prefix: c.prefix, ttl: c.ttl}
}

func (s *Store[T]) key(sessionID string) []byte {
	return []byte(s.prefix + sessionID)
}

// Save persists the session.
func (s *Store[T]) Save(ctx context.Context, sessionID string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	err = s.db.Update(func(txn *backend.Txn) error {
		e := backend.NewEntry(s.key(sessionID), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to save to badger: %w", err)
	}
	return nil
}

// Load retrieves the session.
func (s *Store[T]) Load(ctx context.Context, sessionID string) (*T, error) {
	var data []byte
	err := s.db.View(func(txn *backend.Txn) error {
		item, err := txn.Get(s.key(sessionID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, backend.ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read from badger: %w", err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &v, nil
}

// Delete removes the session.
func (s *Store[T]) Delete(ctx context.Context, sessionID string) error {
	err := s.db.Update(func(txn *backend.Txn) error {
		return txn.Delete(s.key(sessionID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete from badger: %w", err)
	}
	return nil
}

// List returns the IDs of live sessions under the store prefix.
func (s *Store[T]) List(ctx context.Context) ([]string, error) {
	prefix := []byte(s.prefix)
	sessions := []string{}
	err := s.db.View(func(txn *backend.Txn) error {
		opts := backend.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			sessions = append(sessions, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
