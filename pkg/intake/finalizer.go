package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"
)

// DefaultRelayConcurrency bounds parallel deliveries of one record.
const DefaultRelayConcurrency = 4

// Recipients lists the administrators that receive new records.
type Recipients interface {
	Admins() []int64
}

// Receipt is the result of a successful finalization.
type Receipt struct {
	Record domain.Record
	// Failed holds one NotificationError per administrator the relay did
	// not reach. It never affects the submission itself.
	Failed []*domain.NotificationError
}

// Finalizer turns a completed draft into a stored record and relays it to
// administrators.
type Finalizer struct {
	records     ports.RecordStore
	notifier    ports.Notifier
	recipients  Recipients
	prompts     *prompts.Table
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	concurrency int
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithFinalizerLogger sets the logger used for relay failures.
func WithFinalizerLogger(logger *slog.Logger) FinalizerOption {
	return func(f *Finalizer) {
		f.logger = logger
	}
}

// WithFinalizerHooks registers OnSubmit and OnRelay observers.
func WithFinalizerHooks(hooks domain.LifecycleHooks) FinalizerOption {
	return func(f *Finalizer) {
		f.hooks = hooks
	}
}

// WithRelayConcurrency overrides DefaultRelayConcurrency.
func WithRelayConcurrency(n int) FinalizerOption {
	return func(f *Finalizer) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// NewFinalizer wires a finalizer to its collaborators.
func NewFinalizer(records ports.RecordStore, notifier ports.Notifier, recipients Recipients, table *prompts.Table, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{
		records:     records,
		notifier:    notifier,
		recipients:  recipients,
		prompts:     table,
		logger:      logging.NewNop(),
		concurrency: DefaultRelayConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize validates the draft of sess, creates the record and relays it.
// The session is never modified. Errors are IncompleteSubmissionError,
// GuardViolation or StorageError; relay failures are reported in the Receipt.
func (f *Finalizer) Finalize(ctx context.Context, sess *domain.Session) (*Receipt, error) {
	sub, err := decodeSubmission(sess.Data)
	if err == nil {
		err = sub.Validate()
	}
	if err != nil {
		f.submitted(ctx, sess.ID, domain.Record{UserID: sub.UserID, Type: sub.Type}, err)
		return nil, err
	}

	rec, err := f.records.Create(ctx, sub)
	if err != nil {
		serr := &domain.StorageError{Op: "create", Err: err}
		f.logger.Error("Failed to store submission",
			"session_id", sess.ID,
			"type", sub.Type,
			"err", err,
		)
		f.submitted(ctx, sess.ID, domain.Record{UserID: sub.UserID, Type: sub.Type}, serr)
		return nil, serr
	}

	f.logger.Info("Submission stored",
		"session_id", sess.ID,
		"record_id", rec.ID,
		"type", rec.Type,
		"anonymous", rec.Anonymous,
	)
	f.submitted(ctx, sess.ID, rec, nil)

	return &Receipt{Record: rec, Failed: f.relay(ctx, rec)}, nil
}

// relay delivers rec to every administrator except the submitter.
func (f *Finalizer) relay(ctx context.Context, rec domain.Record) []*domain.NotificationError {
	text := f.prompts.RelayText(rec)

	var (
		mu     sync.Mutex
		failed []*domain.NotificationError
	)
	var g errgroup.Group
	g.SetLimit(f.concurrency)

	seen := make(map[int64]struct{})
	for _, admin := range f.recipients.Admins() {
		if admin == rec.UserID {
			continue
		}
		if _, dup := seen[admin]; dup {
			continue
		}
		seen[admin] = struct{}{}

		g.Go(func() error {
			err := f.notifier.Send(ctx, admin, text, rec.FilePath)
			if err != nil {
				nerr := &domain.NotificationError{Recipient: admin, RecordID: rec.ID, Err: err}
				f.logger.Warn("Failed to relay record",
					"record_id", rec.ID,
					"recipient", admin,
					"err", err,
				)
				mu.Lock()
				failed = append(failed, nerr)
				mu.Unlock()
				err = nerr
			}
			if f.hooks.OnRelay != nil {
				f.hooks.OnRelay(ctx, &domain.RelayEvent{RecordID: rec.ID, Recipient: admin, Err: err})
			}
			// Each recipient is independent, so the group never fails.
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

func (f *Finalizer) submitted(ctx context.Context, sessionID string, rec domain.Record, err error) {
	if f.hooks.OnSubmit != nil {
		f.hooks.OnSubmit(ctx, &domain.SubmissionEvent{SessionID: sessionID, Record: rec, Err: err})
	}
}

// decodeSubmission maps the data bag onto a Submission. Numbers that went
// through a JSON store come back as float64 and are converted.
func decodeSubmission(data domain.Data) (domain.Submission, error) {
	var sub domain.Submission
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &sub,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return sub, err
	}
	if err := dec.Decode(map[string]any(data)); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			return sub, &domain.IncompleteSubmissionError{Missing: merr.Errors}
		}
		return sub, fmt.Errorf("failed to decode draft: %w", err)
	}
	return sub, nil
}
