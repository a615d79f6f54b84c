// Package flow implements the intake conversation as a pure state machine.
//
// Step never performs I/O and never mutates its input: it works on a
// snapshot of the session and reports side effects (finalize, store an
// attachment, list requests) in the returned Outcome for the caller to run.
package flow

import (
	"strings"
	"unicode/utf8"

	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

// MaxMessageLength is the longest accepted message, in code points.
const MaxMessageLength = 1000

// AnonymousName fills name and position of an anonymous draft.
const AnonymousName = "Аноним"

// Rejection reasons, also used as metric labels.
const (
	ReasonNotUnderstood  = "not_understood"
	ReasonUnknownManager = "unknown_manager"
	ReasonTooLong        = "too_long"
	ReasonUnsupported    = "unsupported_file"
	ReasonUploadOrSkip   = "upload_or_skip"
	RuleNoAnonymity      = "director_not_anonymous"
)

// Effect is work the caller must perform after a step.
type Effect int

const (
	EffectNone Effect = iota
	// EffectFinalize submits the draft as it is.
	EffectFinalize
	// EffectStoreAndFinalize stores Outcome.Attachment, records its path
	// in the draft, then submits.
	EffectStoreAndFinalize
	// EffectListRequests shows the user's own records.
	EffectListRequests
)

func (e Effect) String() string {
	switch e {
	case EffectFinalize:
		return "finalize"
	case EffectStoreAndFinalize:
		return "store_and_finalize"
	case EffectListRequests:
		return "list_requests"
	}
	return "none"
}

// Roster is the list of addressable managers.
type Roster interface {
	Managers() []string
	HasManager(name string) bool
}

// Outcome is the result of one step.
type Outcome struct {
	// Session is the next snapshot. For effects it is the session to keep
	// if the effect fails; the caller resets it on success.
	Session    *domain.Session
	Prompt     domain.Prompt
	Effect     Effect
	Attachment *domain.Attachment
	// Rejection is a ValidationRejection or GuardViolation when the input
	// was refused. The session is unchanged in that case.
	Rejection error
	// Stale is set when the session was reset because of an unknown state.
	Stale error
}

// Machine is the conversation transition table.
type Machine struct {
	prompts *prompts.Table
	roster  Roster
}

// New creates a machine over a prompt table and a manager roster.
func New(table *prompts.Table, roster Roster) *Machine {
	return &Machine{prompts: table, roster: roster}
}

// Prompts exposes the table the machine renders with.
func (m *Machine) Prompts() *prompts.Table { return m.prompts }

// Step computes the next session and prompt for one input event.
// Identical inputs always produce identical outcomes.
func (m *Machine) Step(current *domain.Session, ev domain.InputEvent) Outcome {
	sess := current.Snapshot()
	if sess == nil {
		sess = domain.NewSession("")
	}
	if sess.Data == nil {
		sess.Data = make(domain.Data)
	}

	switch ev.Kind {
	case domain.EventRestart:
		sess.Reset()
		return Outcome{Session: sess, Prompt: m.prompts.Welcome()}
	case domain.EventBack:
		return m.back(sess)
	}

	if ev.Kind == domain.EventCommand && ev.Command.IsMenu() {
		return m.menu(sess, ev)
	}

	if !sess.State.Valid() {
		return m.stale(sess, sess.State)
	}

	switch sess.State {
	case domain.StateIdle:
		return m.advance(sess, domain.StateIdle)
	case domain.StateChoosingManager:
		return m.chooseManager(sess, ev)
	case domain.StateEnteringName:
		return m.enterName(sess, ev)
	case domain.StateEnteringPosition:
		return m.enterPosition(sess, ev)
	case domain.StateAnonymousReason:
		return m.enterReason(sess, ev)
	case domain.StateTypingMessage:
		return m.typeMessage(sess, ev)
	case domain.StateUploadingFile:
		return m.upload(sess, ev)
	}
	return m.stale(sess, sess.State)
}

// Render returns the canonical prompt of the session's current state.
func (m *Machine) Render(sess *domain.Session) (domain.Prompt, error) {
	return m.prompts.Step(sess.State, sess.Data, m.roster.Managers())
}

func (m *Machine) back(sess *domain.Session) Outcome {
	prev, rest, ok := sess.History.Pop()
	if !ok {
		sess.Reset()
		return Outcome{Session: sess, Prompt: m.prompts.MainMenu(m.prompts.Text(prompts.MsgBackToMenu))}
	}
	if !prev.Valid() {
		return m.stale(sess, prev)
	}
	if prev == domain.StateIdle {
		sess.Reset()
		return Outcome{Session: sess, Prompt: m.prompts.MainMenu(m.prompts.Text(prompts.MsgBackToMenu))}
	}
	sess.State = prev
	sess.History = rest
	p, err := m.Render(sess)
	if err != nil {
		return m.stale(sess, prev)
	}
	return Outcome{Session: sess, Prompt: p}
}

func (m *Machine) menu(sess *domain.Session, ev domain.InputEvent) Outcome {
	if ev.Command == domain.CommandMyRequests {
		p, err := m.Render(sess)
		if err != nil {
			return m.stale(sess, sess.State)
		}
		return Outcome{Session: sess, Prompt: p, Effect: EffectListRequests}
	}

	// A new menu selection always starts a fresh draft, abandoning any
	// flow in progress.
	mt, _ := ev.Command.MessageType()
	sess.Reset()
	sess.Data[domain.FieldUserID] = ev.UserID
	sess.Data[domain.FieldType] = string(mt)

	if mt == domain.TypeManager {
		return m.advance(sess, domain.StateChoosingManager)
	}
	sess.Data[domain.FieldRecipient] = ""
	return m.advance(sess, domain.StateEnteringName)
}

func (m *Machine) chooseManager(sess *domain.Session, ev domain.InputEvent) Outcome {
	name, ok := m.text(ev)
	if !ok {
		return m.reject(sess, ReasonNotUnderstood, prompts.MsgNotUnderstood)
	}
	if !m.roster.HasManager(name) {
		return m.reject(sess, ReasonUnknownManager, prompts.MsgUnknownManager)
	}
	sess.Data[domain.FieldRecipient] = name
	return m.transition(sess, domain.StateEnteringName)
}

func (m *Machine) enterName(sess *domain.Session, ev domain.InputEvent) Outcome {
	if ev.Kind == domain.EventCommand && ev.Command == domain.CommandAnonymous {
		if !sess.Data.Type().AllowsAnonymity() {
			return m.guard(sess, RuleNoAnonymity, prompts.MsgAnonymityUnavailable)
		}
		sess.Data[domain.FieldAnonymous] = true
		sess.Data[domain.FieldName] = AnonymousName
		sess.Data[domain.FieldPosition] = AnonymousName
		return m.transition(sess, domain.StateAnonymousReason)
	}
	name, ok := m.text(ev)
	if !ok {
		return m.reject(sess, ReasonNotUnderstood, prompts.MsgNotUnderstood)
	}
	sess.Data[domain.FieldAnonymous] = false
	sess.Data[domain.FieldName] = name
	return m.transition(sess, domain.StateEnteringPosition)
}

func (m *Machine) enterPosition(sess *domain.Session, ev domain.InputEvent) Outcome {
	position, ok := m.text(ev)
	if !ok {
		return m.reject(sess, ReasonNotUnderstood, prompts.MsgNotUnderstood)
	}
	sess.Data[domain.FieldPosition] = position
	sess.Data[domain.FieldReason] = ""
	return m.transition(sess, domain.StateTypingMessage)
}

func (m *Machine) enterReason(sess *domain.Session, ev domain.InputEvent) Outcome {
	reason, ok := m.text(ev)
	if !ok {
		return m.reject(sess, ReasonNotUnderstood, prompts.MsgNotUnderstood)
	}
	sess.Data[domain.FieldReason] = reason
	return m.transition(sess, domain.StateTypingMessage)
}

func (m *Machine) typeMessage(sess *domain.Session, ev domain.InputEvent) Outcome {
	msg, ok := m.text(ev)
	if !ok {
		return m.reject(sess, ReasonNotUnderstood, prompts.MsgNotUnderstood)
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return m.reject(sess, ReasonTooLong, prompts.MsgTooLong)
	}
	sess.Data[domain.FieldMessage] = msg
	return m.transition(sess, domain.StateUploadingFile)
}

func (m *Machine) upload(sess *domain.Session, ev domain.InputEvent) Outcome {
	switch {
	case ev.Kind == domain.EventCommand && ev.Command == domain.CommandSkip:
		delete(sess.Data, domain.FieldFilePath)
		return Outcome{Session: sess, Effect: EffectFinalize}
	case ev.Kind == domain.EventAttachment && ev.Attachment != nil:
		if !ev.Attachment.Kind.Allowed() {
			return m.reject(sess, ReasonUnsupported, prompts.MsgUnsupportedFile)
		}
		a := *ev.Attachment
		return Outcome{Session: sess, Effect: EffectStoreAndFinalize, Attachment: &a}
	}
	return m.reject(sess, ReasonUploadOrSkip, prompts.MsgUploadOrSkip)
}

// text returns the trimmed free text of ev. A typed "skip" answer ("Нет")
// is ordinary text outside the upload step; other commands, attachments and
// blank replies do not count.
func (m *Machine) text(ev domain.InputEvent) (string, bool) {
	switch {
	case ev.Kind == domain.EventText:
	case ev.Kind == domain.EventCommand && ev.Command == domain.CommandSkip:
	default:
		return "", false
	}
	s := strings.TrimSpace(ev.Text)
	return s, s != ""
}

// transition moves forward from the current state, recording it for back.
func (m *Machine) transition(sess *domain.Session, to domain.State) Outcome {
	sess.History = sess.History.Push(sess.State)
	return m.advance(sess, to)
}

func (m *Machine) advance(sess *domain.Session, to domain.State) Outcome {
	sess.State = to
	p, err := m.Render(sess)
	if err != nil {
		return m.stale(sess, to)
	}
	return Outcome{Session: sess, Prompt: p}
}

func (m *Machine) reject(sess *domain.Session, reason string, notice prompts.Key) Outcome {
	return m.refuse(sess, &domain.ValidationRejection{State: sess.State, Reason: reason}, notice)
}

func (m *Machine) guard(sess *domain.Session, rule string, notice prompts.Key) Outcome {
	return m.refuse(sess, &domain.GuardViolation{State: sess.State, Rule: rule}, notice)
}

func (m *Machine) refuse(sess *domain.Session, err error, notice prompts.Key) Outcome {
	p, rerr := m.Render(sess)
	if rerr != nil {
		return m.stale(sess, sess.State)
	}
	return Outcome{Session: sess, Prompt: prompts.WithNotice(m.prompts.Text(notice), p), Rejection: err}
}

func (m *Machine) stale(sess *domain.Session, entry domain.State) Outcome {
	sess.Reset()
	return Outcome{
		Session: sess,
		Prompt:  m.prompts.MainMenu(m.prompts.Text(prompts.MsgStale)),
		Stale:   &domain.StaleHistoryError{Entry: entry},
	}
}
