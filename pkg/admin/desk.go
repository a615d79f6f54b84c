// Package admin implements the administrator reply desk: an independent
// state machine that lists stored records, lets an administrator pick one
// and relays the typed answer back to the submitter.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
)

// Rejection reasons.
const (
	ReasonBadFormat   = "bad_format"
	ReasonEmptyAnswer = "empty_answer"
	ReasonNotAdmin    = "not_admin"
)

// Authorizer decides who may use the desk.
type Authorizer interface {
	IsAdmin(userID int64) bool
}

// Desk is the reply state machine. Advance performs its own I/O; the desk
// holds no per-administrator state outside the AdminSession it is given.
type Desk struct {
	records  ports.RecordStore
	notifier ports.Notifier
	auth     Authorizer
	prompts  *prompts.Table
	logger   *slog.Logger
}

// Option configures a Desk.
type Option func(*Desk)

// WithLogger sets a custom structured logger for the desk.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Desk) {
		d.logger = logger
	}
}

// New creates a desk.
func New(records ports.RecordStore, notifier ports.Notifier, auth Authorizer, table *prompts.Table, opts ...Option) *Desk {
	d := &Desk{
		records:  records,
		notifier: notifier,
		auth:     auth,
		prompts:  table,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Advance applies ev to sess. sess is not modified. As with the intake
// engine, a non-nil error explains a refusal or failure and the returned
// session and prompt are still the ones to use.
func (d *Desk) Advance(ctx context.Context, sess *domain.AdminSession, ev domain.AdminEvent) (*domain.AdminSession, domain.Prompt, error) {
	next := sess.Snapshot()
	if next == nil {
		next = domain.NewAdminSession("")
	}

	if !d.auth.IsAdmin(ev.UserID) {
		next.Reset()
		return next, d.say(prompts.AdminForbidden), &domain.GuardViolation{State: domain.State(next.State), Rule: ReasonNotAdmin}
	}

	switch ev.Kind {
	case domain.AdminCancel:
		next.Reset()
		return next, d.say(prompts.AdminCancelled), nil
	case domain.AdminOpen:
		return d.open(ctx, next)
	case domain.AdminSelect:
		return d.choose(ctx, next, ev.RecordID)
	}

	switch next.State {
	case domain.AdminChoosingMessage:
		id, ok := prompts.ParseRecordLabel(ev.Text)
		if !ok {
			return next, d.say(prompts.AdminBadFormat), d.rejected(next, ReasonBadFormat)
		}
		return d.choose(ctx, next, id)
	case domain.AdminTypingResponse:
		return d.answer(ctx, next, ev.Text)
	}
	return next, d.say(prompts.AdminBadFormat), d.rejected(next, ReasonBadFormat)
}

func (d *Desk) open(ctx context.Context, sess *domain.AdminSession) (*domain.AdminSession, domain.Prompt, error) {
	sess.Reset()
	recs, err := d.records.List(ctx)
	if err != nil {
		d.logger.Error("Failed to list records", "admin_session", sess.ID, "err", err)
		return sess, d.say(prompts.AdminLoadFailed), &domain.StorageError{Op: "list", Err: err}
	}
	if len(recs) == 0 {
		return sess, d.say(prompts.AdminEmpty), nil
	}
	options := make([]string, 0, len(recs))
	for _, r := range recs {
		options = append(options, d.prompts.RecordLabel(r))
	}
	sess.State = domain.AdminChoosingMessage
	return sess, domain.Prompt{Text: d.prompts.Admin(prompts.AdminChoose), Options: options}, nil
}

func (d *Desk) choose(ctx context.Context, sess *domain.AdminSession, id int64) (*domain.AdminSession, domain.Prompt, error) {
	rec, err := d.records.Get(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return sess, d.say(prompts.AdminNotFound), err
	}
	if err != nil {
		d.logger.Error("Failed to load record", "record_id", id, "err", err)
		return sess, d.say(prompts.AdminLoadFailed), &domain.StorageError{Op: "get", Err: err}
	}
	sess.State = domain.AdminTypingResponse
	sess.RecordID = rec.ID
	sess.SubmitterID = rec.UserID
	sess.Anonymous = rec.Anonymous
	return sess, domain.Prompt{Text: d.prompts.Admin(prompts.AdminShow,
		"id", strconv.FormatInt(rec.ID, 10),
		"message", rec.Message,
	)}, nil
}

func (d *Desk) answer(ctx context.Context, sess *domain.AdminSession, text string) (*domain.AdminSession, domain.Prompt, error) {
	answer := strings.TrimSpace(text)
	if answer == "" {
		return sess, d.say(prompts.AdminEmptyAnswer), d.rejected(sess, ReasonEmptyAnswer)
	}

	rec, err := d.records.Answer(ctx, sess.RecordID, answer)
	if errors.Is(err, domain.ErrRecordNotFound) {
		sess.Reset()
		return sess, d.say(prompts.AdminNotFound), err
	}
	if err != nil {
		d.logger.Error("Failed to save answer", "record_id", sess.RecordID, "err", err)
		return sess, d.say(prompts.AdminSaveFailed), &domain.StorageError{Op: "answer", Err: err}
	}
	sess.Reset()

	// Anonymous submitters are never contacted.
	if rec.Anonymous {
		d.logger.Info("Answer stored for anonymous record", "record_id", rec.ID)
		return sess, d.say(prompts.AdminSent), nil
	}

	reply := d.prompts.Admin(prompts.AdminReply, "id", strconv.FormatInt(rec.ID, 10), "answer", answer)
	if err := d.notifier.Send(ctx, rec.UserID, reply, ""); err != nil {
		d.logger.Warn("Failed to deliver answer", "record_id", rec.ID, "recipient", rec.UserID, "err", err)
		return sess, d.say(prompts.AdminNotDelivered), &domain.NotificationError{Recipient: rec.UserID, RecordID: rec.ID, Err: err}
	}
	d.logger.Info("Answer delivered", "record_id", rec.ID, "recipient", rec.UserID)
	return sess, d.say(prompts.AdminSent), nil
}

func (d *Desk) say(k prompts.Key) domain.Prompt {
	return domain.Prompt{Text: d.prompts.Admin(k)}
}

func (d *Desk) rejected(sess *domain.AdminSession, reason string) error {
	return &domain.ValidationRejection{State: domain.State(sess.State), Reason: reason}
}
