package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock may be held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring one in-flight step per
// session. It uses reference counting to garbage collect unused locks.
type Manager[T any] struct {
	store ports.SessionStore[T]

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	prefix  string // Namespaces distributed lock keys
	logger  *slog.Logger
}

type options struct {
	locker  ports.DistributedLocker
	lockTTL time.Duration
	prefix  string
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*options)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.lockTTL = ttl
	}
}

// WithLockPrefix namespaces distributed lock keys, so user and admin
// sessions of the same chat do not contend.
func WithLockPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewManager creates a session manager over the given store.
func NewManager[T any](store ports.SessionStore[T], opts ...Option) *Manager[T] {
	o := options{lockTTL: DefaultLockTTL, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{
		store:   store,
		locks:   make(map[string]*lockEntry),
		locker:  o.locker,
		lockTTL: o.lockTTL,
		prefix:  o.prefix,
		logger:  o.logger,
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager[T]) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager[T]) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager[T]) Load(ctx context.Context, sessionID string) (*T, error) {
	var v *T
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		v, err = m.store.Load(ctx, sessionID)
		return err
	})
	return v, err
}

// LoadOrStart loads a session, or creates and persists a fresh one with newFn.
func (m *Manager[T]) LoadOrStart(ctx context.Context, sessionID string, newFn func() *T) (*T, error) {
	var v *T
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		v, err = m.loadOrNew(ctx, sessionID, newFn)
		if err != nil || v == nil {
			return err
		}
		if err := m.store.Save(ctx, sessionID, v); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return v, err
}

// Update runs fn on the current snapshot under the session lock and
// persists the snapshot fn returns. A nil result deletes the session.
// If fn fails nothing is written.
func (m *Manager[T]) Update(ctx context.Context, sessionID string, newFn func() *T, fn func(ctx context.Context, current *T) (*T, error)) (*T, error) {
	var next *T
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := m.loadOrNew(ctx, sessionID, newFn)
		if err != nil {
			return err
		}
		next, err = fn(ctx, current)
		if err != nil {
			return err
		}
		if next == nil {
			return m.store.Delete(ctx, sessionID)
		}
		if err := m.store.Save(ctx, sessionID, next); err != nil {
			return fmt.Errorf("failed to save session %s: %w", sessionID, err)
		}
		return nil
	})
	return next, err
}

func (m *Manager[T]) loadOrNew(ctx context.Context, sessionID string, newFn func() *T) (*T, error) {
	v, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return newFn(), nil
}

// Save persists the session.
func (m *Manager[T]) Save(ctx context.Context, sessionID string, v *T) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, v)
	})
}

// Delete removes the session from the store.
func (m *Manager[T]) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager[T]) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager[T]) Store() ports.SessionStore[T] {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
// It is not reentrant: fn must use the store, not the Manager.
func (m *Manager[T]) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, m.prefix+sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
