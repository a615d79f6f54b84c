// Package prompts holds the step prompt table and every user-facing text of
// the bot. The table is loaded from YAML, by default the embedded prompts.yaml.
package prompts

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultYAML []byte

// Key names a message in the table.
type Key string

const (
	MsgWelcome              Key = "welcome"
	MsgBackToMenu           Key = "back_to_menu"
	MsgStale                Key = "stale"
	MsgNotUnderstood        Key = "not_understood"
	MsgUnknownManager       Key = "unknown_manager"
	MsgAnonymityUnavailable Key = "anonymity_unavailable"
	MsgTooLong              Key = "too_long"
	MsgUnsupportedFile      Key = "unsupported_file"
	MsgUploadOrSkip         Key = "upload_or_skip"
	MsgUploadFailed         Key = "upload_failed"
	MsgSubmitted            Key = "submitted"
	MsgSubmitFailed         Key = "submit_failed"
	MsgIncomplete           Key = "incomplete"
	MsgNoRequests           Key = "no_requests"
	MsgRequestsFailed       Key = "requests_failed"
)

// Admin desk keys.
const (
	AdminForbidden    Key = "forbidden"
	AdminEmpty        Key = "empty"
	AdminChoose       Key = "choose"
	AdminNotFound     Key = "not_found"
	AdminBadFormat    Key = "bad_format"
	AdminShow         Key = "show"
	AdminEmptyAnswer  Key = "empty_answer"
	AdminSent         Key = "sent"
	AdminNotDelivered Key = "not_delivered"
	AdminSaveFailed   Key = "save_failed"
	AdminLoadFailed   Key = "load_failed"
	AdminReply        Key = "reply"
	AdminCancelled    Key = "cancelled"
)

const stepDirectorName = "entering_name_director"

type menuEntry struct {
	Command domain.Command `yaml:"command"`
	Label   string         `yaml:"label"`
}

type file struct {
	Labels struct {
		Back      string   `yaml:"back"`
		Anonymous string   `yaml:"anonymous"`
		Skip      []string `yaml:"skip"`
	} `yaml:"labels"`
	Menu     []menuEntry                  `yaml:"menu"`
	Types    map[domain.MessageType]string `yaml:"types"`
	Statuses map[domain.Status]string     `yaml:"statuses"`
	Steps    map[string]string            `yaml:"steps"`
	Messages map[Key]string               `yaml:"messages"`
	Admin    map[Key]string               `yaml:"admin"`
}

// Table renders prompts for every state and composes notices.
// It is immutable after Load and safe for concurrent use.
type Table struct {
	f    file
	skip map[string]struct{}
}

// Load parses a prompt table and checks that every state has a prompt.
func Load(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prompt table: %w", err)
	}
	if f.Labels.Back == "" || f.Labels.Anonymous == "" {
		return nil, fmt.Errorf("prompt table: back and anonymous labels are required")
	}
	for _, s := range domain.States() {
		if f.Steps[string(s)] == "" {
			return nil, fmt.Errorf("prompt table: missing step text for %q", s)
		}
	}
	if f.Steps[stepDirectorName] == "" {
		return nil, fmt.Errorf("prompt table: missing step text for %q", stepDirectorName)
	}
	for _, m := range f.Menu {
		if !m.Command.IsMenu() {
			return nil, fmt.Errorf("prompt table: %q is not a menu command", m.Command)
		}
	}

	t := &Table{f: f, skip: make(map[string]struct{}, len(f.Labels.Skip))}
	for _, w := range f.Labels.Skip {
		t.skip[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the table built from the embedded prompts.yaml.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(defaultYAML)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// BackLabel is the text of the back button.
func (t *Table) BackLabel() string { return t.f.Labels.Back }

// AnonymousLabel is the text of the anonymity button.
func (t *Table) AnonymousLabel() string { return t.f.Labels.Anonymous }

// Text returns a user-side message.
func (t *Table) Text(k Key) string { return t.f.Messages[k] }

// Admin returns an admin desk message with {placeholders} filled from kv pairs.
func (t *Table) Admin(k Key, kv ...string) string {
	return fill(t.f.Admin[k], kv...)
}

// MenuLabels lists the main-menu buttons in display order.
func (t *Table) MenuLabels() []string {
	out := make([]string, 0, len(t.f.Menu))
	for _, m := range t.f.Menu {
		out = append(out, m.Label)
	}
	return out
}

// MainMenu returns text followed by the main-menu keyboard.
func (t *Table) MainMenu(text string) domain.Prompt {
	return domain.Prompt{Text: text, Options: t.MenuLabels()}
}

// Welcome is the greeting shown after a restart.
func (t *Table) Welcome() domain.Prompt {
	return t.MainMenu(t.Text(MsgWelcome))
}

// Step renders the canonical prompt of state for the given draft.
// The anonymity option is never offered to a director-addressed draft.
func (t *Table) Step(state domain.State, data domain.Data, managers []string) (domain.Prompt, error) {
	if !state.Valid() {
		return domain.Prompt{}, &domain.StaleHistoryError{Entry: state}
	}
	back := t.f.Labels.Back
	switch state {
	case domain.StateIdle:
		return t.MainMenu(t.f.Steps[string(state)]), nil
	case domain.StateChoosingManager:
		opts := make([]string, 0, len(managers)+1)
		opts = append(opts, managers...)
		return domain.Prompt{Text: t.f.Steps[string(state)], Options: append(opts, back)}, nil
	case domain.StateEnteringName:
		if !data.Type().AllowsAnonymity() {
			return domain.Prompt{Text: t.f.Steps[stepDirectorName], Options: []string{back}}, nil
		}
		return domain.Prompt{Text: t.f.Steps[string(state)], Options: []string{t.f.Labels.Anonymous, back}}, nil
	}
	return domain.Prompt{Text: t.f.Steps[string(state)], Options: []string{back}}, nil
}

// WithNotice prefixes a prompt with a one-line notice, keeping its options.
func WithNotice(notice string, p domain.Prompt) domain.Prompt {
	if notice == "" {
		return p
	}
	if p.Text != "" {
		notice += "\n" + p.Text
	}
	return domain.Prompt{Text: notice, Options: p.Options}
}

// Classify turns a raw text reply into an input event using the keyboard
// labels, so that label text never reaches the state machine.
func (t *Table) Classify(userID int64, text string) domain.InputEvent {
	trimmed := strings.TrimSpace(text)
	switch trimmed {
	case t.f.Labels.Back:
		return domain.BackInput(userID)
	case "/start":
		return domain.RestartInput(userID)
	case t.f.Labels.Anonymous:
		return domain.CommandInput(userID, domain.CommandAnonymous)
	}
	for _, m := range t.f.Menu {
		if trimmed == m.Label {
			return domain.CommandInput(userID, m.Command)
		}
	}
	if _, ok := t.skip[strings.ToLower(trimmed)]; ok {
		return domain.TypedCommandInput(userID, domain.CommandSkip, text)
	}
	return domain.TextInput(userID, text)
}

// TypeLabel is the display name of a message type.
func (t *Table) TypeLabel(mt domain.MessageType) string {
	if l, ok := t.f.Types[mt]; ok {
		return l
	}
	return string(mt)
}

// StatusLabel is the display name of a record status.
func (t *Table) StatusLabel(s domain.Status) string {
	if l, ok := t.f.Statuses[s]; ok {
		return l
	}
	return string(s)
}

// RelayText is the notification administrators receive for a new record.
func (t *Table) RelayText(rec domain.Record) string {
	var b strings.Builder
	if rec.Anonymous {
		fmt.Fprintf(&b, "📩 Анонимное обращение #%d\n", rec.ID)
		fmt.Fprintf(&b, "Кому: %s\n", rec.Recipient)
		fmt.Fprintf(&b, "Причина анонимности: %s\n", rec.Reason)
	} else {
		fmt.Fprintf(&b, "📩 Обращение #%d от %s (%s)\n", rec.ID, rec.Name, rec.Position)
		fmt.Fprintf(&b, "Кому: %s\n", rec.Recipient)
	}
	fmt.Fprintf(&b, "Тип: %s\n", t.TypeLabel(rec.Type))
	fmt.Fprintf(&b, "Сообщение:\n%s", rec.Message)
	return b.String()
}

// RequestsList renders a user's own records, newest first as given.
func (t *Table) RequestsList(records []domain.Record) string {
	if len(records) == 0 {
		return t.Text(MsgNoRequests)
	}
	entries := make([]string, 0, len(records))
	for _, r := range records {
		entry := fmt.Sprintf("🆔#%d | Тип: %s | Статус: %s\n📨 %s",
			r.ID, t.TypeLabel(r.Type), t.StatusLabel(r.Status), r.Message)
		if r.Answer != "" {
			entry += "\n📬 Ответ: " + r.Answer
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, "\n\n")
}

// RecordLabel is the admin keyboard button for a record.
func (t *Table) RecordLabel(r domain.Record) string {
	return fmt.Sprintf("🆔#%d | %s | %s", r.ID, t.TypeLabel(r.Type), t.StatusLabel(r.Status))
}

// ParseRecordLabel extracts the record id from a RecordLabel button.
// A bare number or "#<id>" is accepted as well.
func ParseRecordLabel(text string) (int64, bool) {
	s := strings.TrimSpace(text)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexAny(s, " |"); i >= 0 {
		s = s[:i]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func fill(text string, kv ...string) string {
	if len(kv) < 2 {
		return text
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
