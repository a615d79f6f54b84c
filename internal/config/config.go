// Package config loads bot settings from flags, environment, an optional
// config file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/internal/directory"
	"github.com/Doe880/telegram-feedback-bot1/pkg/persistence/middleware"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables (FEEDBACK_HTTP_ADDR, ...).
const EnvPrefix = "FEEDBACK"

// Telegram delivery modes.
const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

// Config is the full runtime configuration.
type Config struct {
	Telegram      TelegramConfig `mapstructure:"telegram"`
	HTTP          HTTPConfig     `mapstructure:"http"`
	Admins        []int64        `mapstructure:"-"`
	Managers      []string       `mapstructure:"managers"`
	DirectoryFile string         `mapstructure:"directory_file"`
	Storage       StorageConfig  `mapstructure:"storage"`
	Sessions      SessionsConfig `mapstructure:"sessions"`
	Uploads       UploadsConfig  `mapstructure:"uploads"`
	Log           LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	Mode          string `mapstructure:"mode"`
	WebhookURL    string `mapstructure:"webhook_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type HTTPConfig struct {
	Addr     string `mapstructure:"addr"`
	APIToken string `mapstructure:"api_token"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SessionsConfig struct {
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	FallbackKeys  []string      `mapstructure:"fallback_keys"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps keys to the variable names of earlier deployments.
var legacyEnv = map[string]string{
	"telegram.token":          "BOT_TOKEN",
	"admins":                  "ADMINS",
	"telegram.webhook_url":    "WEBHOOK_URL",
	"telegram.webhook_secret": "WEBHOOK_SECRET",
}

// SetDefaults registers default values on v. Every key needs one, even an
// empty one, or AutomaticEnv never surfaces it to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.mode", ModePolling)
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.api_token", "")
	v.SetDefault("directory_file", "")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "messages.db")
	v.SetDefault("sessions.backend", "memory")
	v.SetDefault("sessions.path", "data/sessions")
	v.SetDefault("sessions.redis_addr", "localhost:6379")
	v.SetDefault("sessions.redis_password", "")
	v.SetDefault("sessions.redis_db", 0)
	v.SetDefault("sessions.ttl", time.Duration(0))
	v.SetDefault("sessions.encryption_key", "")
	v.SetDefault("sessions.fallback_keys", []string{})
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("admins", "")
	v.SetDefault("managers", []string{})
}

// Load reads configuration into a Config. configFile may be empty, in which
// case ./config.yaml is used when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	admins, err := ParseIDs(v.Get("admins"))
	if err != nil {
		return nil, fmt.Errorf("invalid admins: %w", err)
	}
	cfg.Admins = admins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that do not depend on the command being run.
func (c *Config) Validate() error {
	var errs []error
	switch c.Telegram.Mode {
	case ModeWebhook, ModePolling:
	default:
		errs = append(errs, fmt.Errorf("telegram.mode must be %q or %q, got %q", ModeWebhook, ModePolling, c.Telegram.Mode))
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is required for postgres"))
	}
	switch c.Sessions.Backend {
	case "memory", "file", "redis", "badger":
	default:
		errs = append(errs, fmt.Errorf("unknown sessions.backend %q", c.Sessions.Backend))
	}
	if c.Sessions.TTL < 0 {
		errs = append(errs, errors.New("sessions.ttl must not be negative"))
	}
	if _, err := c.Sessions.Encryption(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Encryption returns the session encryption keys, or nil when sessions are
// stored in the clear.
func (s SessionsConfig) Encryption() (*middleware.EncryptionConfig, error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, errors.New("sessions.fallback_keys requires sessions.encryption_key")
		}
		return nil, nil
	}
	active, err := middleware.ParseKey(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("sessions.encryption_key: %w", err)
	}
	enc := &middleware.EncryptionConfig{ActiveKey: active}
	for i, raw := range s.FallbackKeys {
		key, err := middleware.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("sessions.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

// ValidateServe adds the requirements of running against Telegram.
func (c *Config) ValidateServe() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token (or BOT_TOKEN) is required"))
	}
	if c.Telegram.Mode == ModeWebhook {
		if c.Telegram.WebhookURL == "" {
			errs = append(errs, errors.New("telegram.webhook_url is required in webhook mode"))
		}
		if c.Telegram.WebhookSecret == "" {
			errs = append(errs, errors.New("telegram.webhook_secret is required in webhook mode"))
		}
	}
	if len(c.Admins) == 0 {
		errs = append(errs, errors.New("at least one admin chat id is required"))
	}
	return errors.Join(errs...)
}

// Directory builds the recipient directory from the configured managers,
// admins and optional directory file.
func (c *Config) Directory() (*directory.Directory, error) {
	if c.DirectoryFile != "" {
		return directory.LoadFile(c.DirectoryFile, c.Managers, c.Admins)
	}
	return directory.New(c.Managers, c.Admins), nil
}

// ParseIDs accepts a comma separated string (as found in ADMINS) or a list
// of numbers and returns the chat ids it names.
func ParseIDs(raw any) ([]int64, error) {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	case []int64:
		return v, nil
	case []int:
		out := make([]int64, 0, len(v))
		for _, id := range v {
			out = append(out, int64(id))
		}
		return out, nil
	case int:
		return []int64{int64(v)}, nil
	case int64:
		return []int64{v}, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}

	var ids []int64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
