package intake

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
)

// Engine applies input events to sessions.
type Engine struct {
	machine     *flow.Machine
	finalizer   *Finalizer
	records     ports.RecordStore
	attachments ports.AttachmentStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine.
func NewEngine(machine *flow.Machine, finalizer *Finalizer, records ports.RecordStore, attachments ports.AttachmentStore, opts ...Option) *Engine {
	e := &Engine{
		machine:     machine,
		finalizer:   finalizer,
		records:     records,
		attachments: attachments,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Advance applies ev to sess and returns the session to persist and the
// prompt to show. sess is not modified.
//
// The returned error describes why input was refused or an effect failed
// (ValidationRejection, GuardViolation, StaleHistoryError, AttachmentError,
// StorageError, IncompleteSubmissionError). The session and prompt are
// valid in every case and must be used as returned.
func (e *Engine) Advance(ctx context.Context, sess *domain.Session, ev domain.InputEvent) (*domain.Session, domain.Prompt, error) {
	from := domain.StateIdle
	if sess != nil {
		from = sess.State
	}

	out := e.machine.Step(sess, ev)
	next, prompt, err := out.Session, out.Prompt, out.Rejection
	if out.Stale != nil {
		err = out.Stale
		e.logger.Warn("Stale session reset", "session_id", next.ID, "err", out.Stale)
	}

	switch out.Effect {
	case flow.EffectListRequests:
		prompt = prompts.WithNotice(e.listRequests(ctx, ev.UserID), prompt)
	case flow.EffectStoreAndFinalize:
		path, serr := e.attachments.Save(ctx, *out.Attachment)
		if serr != nil {
			next, prompt, err = e.attachmentFailed(next, out.Attachment.Kind, serr)
			break
		}
		next.Data[domain.FieldFilePath] = path
		next, prompt, err = e.finalize(ctx, next)
	case flow.EffectFinalize:
		next, prompt, err = e.finalize(ctx, next)
	}

	e.observe(ctx, next.ID, from, next.State, ev.Kind, err)
	return next, prompt, err
}

func (e *Engine) listRequests(ctx context.Context, userID int64) string {
	table := e.machine.Prompts()
	recs, err := e.records.ListByUser(ctx, userID)
	if err != nil {
		e.logger.Error("Failed to list records", "user_id", userID, "err", err)
		return table.Text(prompts.MsgRequestsFailed)
	}
	return table.RequestsList(recs)
}

func (e *Engine) attachmentFailed(sess *domain.Session, kind domain.AttachmentKind, cause error) (*domain.Session, domain.Prompt, error) {
	aerr := &domain.AttachmentError{Kind: kind, Err: cause}
	notice := prompts.MsgUploadFailed
	if aerr.Unsupported() {
		notice = prompts.MsgUnsupportedFile
	} else {
		e.logger.Error("Failed to store attachment", "session_id", sess.ID, "kind", kind, "err", cause)
	}
	return sess, e.retry(sess, notice), aerr
}

// finalize submits the draft. On storage failure the draft is kept so the
// user can resubmit from the upload step.
func (e *Engine) finalize(ctx context.Context, sess *domain.Session) (*domain.Session, domain.Prompt, error) {
	table := e.machine.Prompts()
	if _, err := e.finalizer.Finalize(ctx, sess); err != nil {
		var serr *domain.StorageError
		if errors.As(err, &serr) {
			return sess, e.retry(sess, prompts.MsgSubmitFailed), err
		}
		e.logger.Warn("Draft could not be submitted", "session_id", sess.ID, "err", err)
		done := sess.Snapshot()
		done.Reset()
		return done, table.MainMenu(table.Text(prompts.MsgIncomplete)), err
	}

	done := sess.Snapshot()
	done.Reset()
	return done, table.MainMenu(table.Text(prompts.MsgSubmitted)), nil
}

// retry re-renders the current step under a notice.
func (e *Engine) retry(sess *domain.Session, notice prompts.Key) domain.Prompt {
	table := e.machine.Prompts()
	p, err := e.machine.Render(sess)
	if err != nil {
		return table.MainMenu(table.Text(notice))
	}
	return prompts.WithNotice(table.Text(notice), p)
}

func (e *Engine) observe(ctx context.Context, sessionID string, from, to domain.State, input domain.EventKind, err error) {
	if err != nil && e.hooks.OnReject != nil {
		var (
			rej   *domain.ValidationRejection
			guard *domain.GuardViolation
			stale *domain.StaleHistoryError
			att   *domain.AttachmentError
		)
		if errors.As(err, &rej) || errors.As(err, &guard) || errors.As(err, &stale) || errors.As(err, &att) {
			e.hooks.OnReject(ctx, &domain.RejectionEvent{SessionID: sessionID, State: from, Err: err})
		}
	}
	if from == to {
		return
	}
	e.logger.Debug("Transition", "session_id", sessionID, "from", from, "to", to, "input", input)
	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(ctx, &domain.TransitionEvent{SessionID: sessionID, From: from, To: to, Input: input})
	}
}
