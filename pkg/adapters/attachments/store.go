// Package attachments saves files users attach to a submission into an
// uploads directory.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/google/uuid"
)

// DefaultMaxBytes matches the largest file the Telegram Bot API lets a bot download.
const DefaultMaxBytes = 20 << 20

// ErrTooLarge is returned for files over the configured limit.
var ErrTooLarge = errors.New("attachment too large")

// Fetcher opens the content behind a transport-specific reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) (io.ReadCloser, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	return f(ctx, ref)
}

// LocalFetcher treats refs as paths on the local filesystem.
type LocalFetcher struct{}

// Fetch opens the file at ref.
func (LocalFetcher) Fetch(_ context.Context, ref string) (io.ReadCloser, error) {
	return os.Open(ref)
}

// Store implements ports.AttachmentStore on a directory.
type Store struct {
	dir      string
	fetcher  Fetcher
	maxBytes int64
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(s *Store) { s.maxBytes = n }
}

// New creates a store writing into dir.
func New(dir string, fetcher Fetcher, opts ...Option) *Store {
	if dir == "" {
		dir = "uploads"
	}
	s := &Store{dir: dir, fetcher: fetcher, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save copies the attachment into the uploads directory and returns its path.
// Names are prefixed with a random id so concurrent uploads never collide.
func (s *Store) Save(ctx context.Context, a domain.Attachment) (string, error) {
	if !a.Kind.Allowed() {
		return "", domain.ErrUnsupportedKind
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to ensure uploads directory: %w", err)
	}

	src, err := s.fetcher.Fetch(ctx, a.Ref)
	if err != nil {
		return "", fmt.Errorf("failed to fetch attachment: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(s.dir, uuid.NewString()+"_"+fileName(a))
	tmp, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	if n > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to fsync attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close attachment: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move attachment into place: %w", err)
	}
	return dest, nil
}

// fileName returns a safe base name with the canonical extension of the kind.
func fileName(a domain.Attachment) string {
	name := filepath.Base(strings.ReplaceAll(a.FileName, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = string(a.Kind)
	}
	if domain.KindFromFileName(name) != a.Kind {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + a.Kind.Ext()
	}
	return name
}
