// Package cli assembles the bot from configuration: record storage, session
// backends, the intake engine and the admin desk. Commands in cmd/feedbackbot
// build an App and attach a transport to it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/internal/config"
	"github.com/Doe880/telegram-feedback-bot1/internal/directory"
	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/internal/metrics"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/attachments"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/badger"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/file"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/memory"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/postgres"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/redis"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/sqlite"
	"github.com/Doe880/telegram-feedback-bot1/pkg/admin"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/intake"
	"github.com/Doe880/telegram-feedback-bot1/pkg/persistence/middleware"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
	"github.com/Doe880/telegram-feedback-bot1/pkg/session"
	badgerdb "github.com/dgraph-io/badger/v4"
	goredis "github.com/redis/go-redis/v9"
)

// Session key prefixes. User and admin conversations never share a key.
const (
	UserPrefix  = "feedback:user:"
	AdminPrefix = "feedback:admin:"
)

// Deps are the transport-specific pieces of an App.
type Deps struct {
	Notifier ports.Notifier
	Fetcher  attachments.Fetcher
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
	Debug    bool
}

// App is a fully wired bot without a transport.
type App struct {
	Config        *config.Config
	Directory     *directory.Directory
	Prompts       *prompts.Table
	Records       ports.RecordStore
	Conversations *intake.Conversations
	Desk          *admin.Sessions

	closers []func() error
}

// Build wires an App from cfg. The caller must Close it.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (_ *App, err error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		return nil, errors.New("a notifier is required")
	}
	if deps.Fetcher == nil {
		deps.Fetcher = attachments.LocalFetcher{}
	}

	dir, err := cfg.Directory()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Directory: dir, Prompts: prompts.Default()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	records, err := a.openRecords(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Records = records

	users, admins, err := a.openSessions(cfg.Sessions, logger)
	if err != nil {
		return nil, err
	}

	var hooks []domain.LifecycleHooks
	if deps.Metrics != nil {
		hooks = append(hooks, deps.Metrics.Hooks())
	}
	if deps.Debug {
		hooks = append(hooks, DebugHooks(logger))
	}
	combined := CombineHooks(hooks...)

	finalizer := intake.NewFinalizer(records, deps.Notifier, dir, a.Prompts,
		intake.WithFinalizerLogger(logger),
		intake.WithFinalizerHooks(combined),
	)
	engine := intake.NewEngine(
		flow.New(a.Prompts, dir),
		finalizer,
		records,
		attachments.New(cfg.Uploads.Dir, deps.Fetcher),
		intake.WithLogger(logger),
		intake.WithLifecycleHooks(combined),
	)
	a.Conversations = intake.NewConversations(engine, users)

	desk := admin.New(records, deps.Notifier, dir, a.Prompts, admin.WithLogger(logger))
	a.Desk = admin.NewSessions(desk, admins)

	logger.Info("Bot assembled",
		"storage", cfg.Storage.Driver,
		"sessions", cfg.Sessions.Backend,
		"managers", len(dir.Managers()),
		"admins", len(dir.Admins()),
	)
	return a, nil
}

// Close releases databases and clients in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) openRecords(ctx context.Context, cfg config.StorageConfig) (ports.RecordStore, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewRecords(), nil
	case "postgres":
		db, err := postgres.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.onClose(sqlDB.Close)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return postgres.NewRecords(db), nil
	default:
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)
		return sqlite.NewRecords(db), nil
	}
}

func (a *App) openSessions(cfg config.SessionsConfig, logger *slog.Logger) (*session.Manager[domain.Session], *session.Manager[domain.AdminSession], error) {
	enc, err := cfg.Encryption()
	if err != nil {
		return nil, nil, err
	}

	b := &sessionBackend{cfg: cfg}
	switch cfg.Backend {
	case "redis":
		b.redis = redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.onClose(b.redis.Close)
	case "badger":
		db, err := badger.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		a.onClose(db.Close)
		b.badger = db
	case "file", "memory", "":
	default:
		return nil, nil, fmt.Errorf("unknown sessions backend %q", cfg.Backend)
	}

	users, err := newManager[domain.Session](b, UserPrefix, enc, logger)
	if err != nil {
		return nil, nil, err
	}
	admins, err := newManager[domain.AdminSession](b, AdminPrefix, enc, logger)
	if err != nil {
		return nil, nil, err
	}
	if enc != nil {
		logger.Info("Session encryption enabled", "fallback_keys", len(enc.FallbackKeys))
	}
	return users, admins, nil
}

// sessionBackend holds the connections shared by user and admin stores.
type sessionBackend struct {
	cfg    config.SessionsConfig
	redis  *goredis.Client
	badger *badgerdb.DB
}

func newManager[T any](b *sessionBackend, prefix string, enc *middleware.EncryptionConfig, logger *slog.Logger) (*session.Manager[T], error) {
	opts := []session.Option{session.WithLogger(logger)}
	// Replicas behind a load balancer serialize updates to the same chat.
	if b.redis != nil {
		opts = append(opts, session.WithLocker(redis.NewLocker(b.redis, prefix)))
	}

	if enc == nil {
		return session.NewManager(openStore[T](b, prefix), opts...), nil
	}
	store, err := middleware.NewEncrypted[T](openStore[middleware.Sealed](b, prefix), *enc)
	if err != nil {
		return nil, err
	}
	return session.NewManager[T](store, opts...), nil
}

func openStore[T any](b *sessionBackend, prefix string) ports.SessionStore[T] {
	switch {
	case b.redis != nil:
		return redis.NewFromClient[T](b.redis, redis.WithPrefix(prefix), redis.WithTTL(b.cfg.TTL))
	case b.badger != nil:
		return badger.New[T](b.badger, badger.WithPrefix(prefix), badger.WithTTL(b.cfg.TTL))
	case b.cfg.Backend == "file":
		return file.New[T](filepath.Join(b.cfg.Path, strings.Trim(strings.ReplaceAll(prefix, ":", "_"), "_")))
	default:
		return memory.NewStore[T]()
	}
}
