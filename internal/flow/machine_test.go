package flow_test

import (
	"strings"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/internal/directory"
	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uid = int64(1001)

func newMachine() *flow.Machine {
	return flow.New(prompts.Default(), directory.New([]string{"Иванов", "Петров"}, nil))
}

// drive feeds events in order and returns the last outcome.
func drive(t *testing.T, m *flow.Machine, sess *domain.Session, events ...domain.InputEvent) flow.Outcome {
	t.Helper()
	var out flow.Outcome
	for _, ev := range events {
		out = m.Step(sess, ev)
		require.NotNil(t, out.Session)
		sess = out.Session
	}
	return out
}

func at(state domain.State, data domain.Data, history ...domain.State) *domain.Session {
	s := domain.NewSession("chat-1")
	s.State = state
	for k, v := range data {
		s.Data[k] = v
	}
	s.History = history
	return s
}

func TestStep_IsDeterministicAndPure(t *testing.T) {
	m := newMachine()
	cases := []struct {
		sess *domain.Session
		ev   domain.InputEvent
	}{
		{domain.NewSession("s"), domain.CommandInput(uid, domain.CommandGeneral)},
		{domain.NewSession("s"), domain.TextInput(uid, "hello")},
		{at(domain.StateChoosingManager, domain.Data{domain.FieldType: "manager"}), domain.TextInput(uid, "Иванов")},
		{at(domain.StateChoosingManager, domain.Data{domain.FieldType: "manager"}), domain.TextInput(uid, "Foo")},
		{at(domain.StateEnteringName, domain.Data{domain.FieldType: "director"}), domain.CommandInput(uid, domain.CommandAnonymous)},
		{at(domain.StateEnteringName, domain.Data{domain.FieldType: "idea"}, domain.StateIdle), domain.CommandInput(uid, domain.CommandAnonymous)},
		{at(domain.StateTypingMessage, nil, domain.StateEnteringName, domain.StateEnteringPosition), domain.BackInput(uid)},
		{at(domain.StateUploadingFile, nil), domain.CommandInput(uid, domain.CommandSkip)},
		{at(domain.StateUploadingFile, nil), domain.AttachmentInput(uid, domain.Attachment{Ref: "f1", Kind: domain.KindPDF})},
		{at(domain.StateEnteringPosition, nil), domain.RestartInput(uid)},
	}
	for _, c := range cases {
		before := c.sess.Snapshot()
		first := m.Step(c.sess, c.ev)
		second := m.Step(c.sess, c.ev)

		assert.Empty(t, cmp.Diff(first, second), "state %s, input %+v", c.sess.State, c.ev)
		assert.Empty(t, cmp.Diff(before, c.sess), "input session mutated at %s", c.sess.State)
	}
}

func TestScenarioA_GeneralQuestionReachesFinalize(t *testing.T) {
	m := newMachine()
	out := drive(t, m, domain.NewSession("chat-1"),
		domain.CommandInput(uid, domain.CommandGeneral),
		domain.TextInput(uid, "Иван Иванов"),
		domain.TextInput(uid, "Инженер"),
		domain.TextInput(uid, "Тестовое сообщение"),
		domain.CommandInput(uid, domain.CommandSkip),
	)

	assert.Equal(t, flow.EffectFinalize, out.Effect)
	assert.Nil(t, out.Rejection)
	d := out.Session.Data
	assert.Equal(t, "general", d.String(domain.FieldType))
	assert.Equal(t, "", d.String(domain.FieldRecipient))
	assert.False(t, d.Bool(domain.FieldAnonymous))
	assert.Equal(t, "Иван Иванов", d.String(domain.FieldName))
	assert.Equal(t, "Инженер", d.String(domain.FieldPosition))
	assert.Equal(t, "Тестовое сообщение", d.String(domain.FieldMessage))
	assert.Equal(t, uid, d[domain.FieldUserID])
	assert.False(t, d.Has(domain.FieldFilePath))
	assert.Equal(t, domain.StateUploadingFile, out.Session.State, "session is kept until the finalizer succeeds")
}

func TestScenarioB_UnknownManagerRepeatsList(t *testing.T) {
	m := newMachine()
	out := drive(t, m, domain.NewSession("chat-1"),
		domain.CommandInput(uid, domain.CommandAskManager),
		domain.TextInput(uid, "Foo"),
	)

	assert.Equal(t, domain.StateChoosingManager, out.Session.State)
	var rej *domain.ValidationRejection
	require.ErrorAs(t, out.Rejection, &rej)
	assert.Equal(t, flow.ReasonUnknownManager, rej.Reason)
	assert.Contains(t, out.Prompt.Options, "Иванов")
	assert.Contains(t, out.Prompt.Options, "Петров")
	assert.Contains(t, out.Prompt.Text, "Выберите руководителя:")
}

func TestScenarioC_DirectorCannotBeAnonymous(t *testing.T) {
	m := newMachine()
	out := drive(t, m, domain.NewSession("chat-1"),
		domain.CommandInput(uid, domain.CommandDirector),
		domain.CommandInput(uid, domain.CommandAnonymous),
	)

	assert.Equal(t, domain.StateEnteringName, out.Session.State)
	var guard *domain.GuardViolation
	require.ErrorAs(t, out.Rejection, &guard)
	assert.Equal(t, flow.RuleNoAnonymity, guard.Rule)
	assert.False(t, out.Session.Data.Has(domain.FieldAnonymous))
	assert.NotContains(t, out.Prompt.Options, prompts.Default().AnonymousLabel())
}

func TestScenarioD_BackKeepsCollectedRecipient(t *testing.T) {
	m := newMachine()
	out := drive(t, m, domain.NewSession("chat-1"),
		domain.CommandInput(uid, domain.CommandAskManager),
		domain.TextInput(uid, "Иванов"),
	)
	require.Equal(t, domain.StateEnteringName, out.Session.State)

	out = m.Step(out.Session, domain.BackInput(uid))
	assert.Equal(t, domain.StateChoosingManager, out.Session.State)
	assert.Equal(t, "Иванов", out.Session.Data.String(domain.FieldRecipient))
	assert.Equal(t, "Выберите руководителя:", out.Prompt.Text)
	assert.Empty(t, out.Session.History)
}

func TestScenarioE_LengthGuard(t *testing.T) {
	m := newMachine()
	sess := at(domain.StateTypingMessage, domain.Data{domain.FieldType: "general"}, domain.StateEnteringPosition)

	tooLong := m.Step(sess, domain.TextInput(uid, strings.Repeat("я", flow.MaxMessageLength+1)))
	assert.Equal(t, domain.StateTypingMessage, tooLong.Session.State)
	assert.False(t, tooLong.Session.Data.Has(domain.FieldMessage))
	assert.Contains(t, tooLong.Prompt.Text, prompts.Default().Text(prompts.MsgTooLong))
	var rej *domain.ValidationRejection
	require.ErrorAs(t, tooLong.Rejection, &rej)
	assert.Equal(t, flow.ReasonTooLong, rej.Reason)

	exact := m.Step(sess, domain.TextInput(uid, strings.Repeat("я", flow.MaxMessageLength)))
	assert.Equal(t, domain.StateUploadingFile, exact.Session.State)
	assert.Nil(t, exact.Rejection)
}

func TestHistorySymmetry(t *testing.T) {
	m := newMachine()
	forward := []domain.InputEvent{
		domain.TextInput(uid, "Иванов"),
		domain.TextInput(uid, "Иван"),
		domain.TextInput(uid, "Инженер"),
		domain.TextInput(uid, "Сообщение"),
	}
	start := at(domain.StateChoosingManager, domain.Data{domain.FieldType: "manager", domain.FieldUserID: uid})

	for n := 1; n <= len(forward); n++ {
		sess := start
		for _, ev := range forward[:n] {
			out := m.Step(sess, ev)
			require.Nil(t, out.Rejection)
			sess = out.Session
		}
		for i := 0; i < n; i++ {
			sess = m.Step(sess, domain.BackInput(uid)).Session
		}
		assert.Equal(t, start.State, sess.State, "after %d steps forward and back", n)
	}
}

func TestAnonymousPath(t *testing.T) {
	m := newMachine()
	out := drive(t, m, domain.NewSession("chat-1"),
		domain.CommandInput(uid, domain.CommandIdea),
		domain.CommandInput(uid, domain.CommandAnonymous),
		domain.TextInput(uid, "Боюсь"),
	)
	assert.Equal(t, domain.StateTypingMessage, out.Session.State)
	d := out.Session.Data
	assert.True(t, d.Bool(domain.FieldAnonymous))
	assert.Equal(t, flow.AnonymousName, d.String(domain.FieldName))
	assert.Equal(t, flow.AnonymousName, d.String(domain.FieldPosition))
	assert.Equal(t, "Боюсь", d.String(domain.FieldReason))
	assert.Equal(t, domain.History{domain.StateEnteringName, domain.StateAnonymousReason}, out.Session.History)
}

func TestAnonymityGuardHoldsAfterBack(t *testing.T) {
	m := newMachine()
	sess := drive(t, m, domain.NewSession("chat-1"),
		domain.CommandInput(uid, domain.CommandDirector),
		domain.TextInput(uid, "Иван"),
		domain.BackInput(uid),
	).Session
	require.Equal(t, domain.StateEnteringName, sess.State)

	out := m.Step(sess, domain.CommandInput(uid, domain.CommandAnonymous))
	assert.Error(t, out.Rejection)
	assert.False(t, out.Session.Data.Bool(domain.FieldAnonymous))
}

func TestRepeatedInvalidInputNeverGrowsHistory(t *testing.T) {
	m := newMachine()
	invalid := map[domain.State]domain.InputEvent{
		domain.StateChoosingManager:  domain.TextInput(uid, "Foo"),
		domain.StateEnteringName:     domain.TextInput(uid, "   "),
		domain.StateEnteringPosition: domain.CommandInput(uid, domain.CommandSkip),
		domain.StateAnonymousReason:  domain.AttachmentInput(uid, domain.Attachment{Kind: domain.KindPNG}),
		domain.StateTypingMessage:    domain.TextInput(uid, strings.Repeat("x", 1001)),
		domain.StateUploadingFile:    domain.TextInput(uid, "может быть"),
	}
	for state, ev := range invalid {
		sess := at(state, domain.Data{domain.FieldType: "director"}, domain.StateEnteringName)
		for i := 0; i < 3; i++ {
			out := m.Step(sess, ev)
			require.Error(t, out.Rejection, "state %s", state)
			sess = out.Session
		}
		assert.Equal(t, state, sess.State)
		assert.Equal(t, domain.History{domain.StateEnteringName}, sess.History, "state %s", state)
	}
}

func TestOffScriptInputPrefixesNotice(t *testing.T) {
	m := newMachine()
	out := m.Step(at(domain.StateEnteringPosition, nil), domain.TextInput(uid, ""))
	assert.Equal(t, "Не понял вас.\nУкажите вашу должность:", out.Prompt.Text)
}

func TestUploadingFile(t *testing.T) {
	m := newMachine()
	sess := at(domain.StateUploadingFile, domain.Data{domain.FieldFilePath: "stale.pdf"})

	skip := m.Step(sess, domain.CommandInput(uid, domain.CommandSkip))
	assert.Equal(t, flow.EffectFinalize, skip.Effect)
	assert.False(t, skip.Session.Data.Has(domain.FieldFilePath))

	att := domain.Attachment{Ref: "file-1", Kind: domain.KindDOCX, FileName: "a.docx"}
	store := m.Step(sess, domain.AttachmentInput(uid, att))
	assert.Equal(t, flow.EffectStoreAndFinalize, store.Effect)
	require.NotNil(t, store.Attachment)
	assert.Equal(t, att, *store.Attachment)

	bad := m.Step(sess, domain.AttachmentInput(uid, domain.Attachment{Ref: "zip", FileName: "a.zip"}))
	assert.Equal(t, flow.EffectNone, bad.Effect)
	assert.Contains(t, bad.Prompt.Text, "⛔ Неподдерживаемый тип файла.")

	other := m.Step(sess, domain.TextInput(uid, "позже"))
	var rej *domain.ValidationRejection
	require.ErrorAs(t, other.Rejection, &rej)
	assert.Equal(t, flow.ReasonUploadOrSkip, rej.Reason)
}

func TestTypedNoIsTextOnFreeTextSteps(t *testing.T) {
	m := newMachine()
	table := prompts.Default()

	tests := []struct {
		state domain.State
		data  domain.Data
		field string
		next  domain.State
	}{
		{domain.StateEnteringName, domain.Data{domain.FieldType: "general"}, domain.FieldName, domain.StateEnteringPosition},
		{domain.StateEnteringPosition, domain.Data{domain.FieldType: "general"}, domain.FieldPosition, domain.StateTypingMessage},
		{domain.StateAnonymousReason, domain.Data{domain.FieldType: "manager", domain.FieldAnonymous: true}, domain.FieldReason, domain.StateTypingMessage},
		{domain.StateTypingMessage, domain.Data{domain.FieldType: "general"}, domain.FieldMessage, domain.StateUploadingFile},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			out := m.Step(at(tt.state, tt.data), table.Classify(uid, "Нет"))
			require.NoError(t, out.Rejection)
			assert.Equal(t, tt.next, out.Session.State)
			assert.Equal(t, "Нет", out.Session.Data.String(tt.field))
		})
	}

	// At the upload step the same reply still means "no file".
	out := m.Step(at(domain.StateUploadingFile, nil), table.Classify(uid, "Нет"))
	assert.Equal(t, flow.EffectFinalize, out.Effect)
}

func TestBack_EmptyHistoryReturnsToMenu(t *testing.T) {
	m := newMachine()
	out := m.Step(at(domain.StateEnteringName, domain.Data{domain.FieldType: "idea"}), domain.BackInput(uid))
	assert.Equal(t, domain.StateIdle, out.Session.State)
	assert.Empty(t, out.Session.Data)
	assert.Equal(t, "Вы вернулись в главное меню.", out.Prompt.Text)
	assert.Equal(t, prompts.Default().MenuLabels(), out.Prompt.Options)
}

func TestBack_StaleEntryResets(t *testing.T) {
	m := newMachine()
	out := m.Step(at(domain.StateTypingMessage, domain.Data{domain.FieldName: "x"}, "Form:entering_position"), domain.BackInput(uid))

	var stale *domain.StaleHistoryError
	require.ErrorAs(t, out.Stale, &stale)
	assert.Equal(t, domain.State("Form:entering_position"), stale.Entry)
	assert.Equal(t, domain.StateIdle, out.Session.State)
	assert.Empty(t, out.Session.History)
	assert.Empty(t, out.Session.Data)
}

func TestStep_UnknownCurrentStateResets(t *testing.T) {
	m := newMachine()
	out := m.Step(at("retired_state", nil), domain.TextInput(uid, "hi"))
	assert.Error(t, out.Stale)
	assert.Equal(t, domain.StateIdle, out.Session.State)
}

func TestMenuCommandAbandonsDraft(t *testing.T) {
	m := newMachine()
	sess := at(domain.StateTypingMessage, domain.Data{domain.FieldName: "Иван", domain.FieldType: "general"},
		domain.StateEnteringName, domain.StateEnteringPosition)

	out := m.Step(sess, domain.CommandInput(uid, domain.CommandAskManager))
	assert.Equal(t, domain.StateChoosingManager, out.Session.State)
	assert.Empty(t, out.Session.History)
	assert.False(t, out.Session.Data.Has(domain.FieldName))
	assert.Equal(t, "manager", out.Session.Data.String(domain.FieldType))
}

func TestMyRequestsKeepsSession(t *testing.T) {
	m := newMachine()
	sess := at(domain.StateEnteringPosition, domain.Data{domain.FieldName: "Иван"}, domain.StateEnteringName)

	out := m.Step(sess, domain.CommandInput(uid, domain.CommandMyRequests))
	assert.Equal(t, flow.EffectListRequests, out.Effect)
	assert.Empty(t, cmp.Diff(sess, out.Session))
	assert.Equal(t, "Укажите вашу должность:", out.Prompt.Text)
}

func TestIdleUnrecognizedShowsMenu(t *testing.T) {
	m := newMachine()
	out := m.Step(domain.NewSession("chat-1"), domain.TextInput(uid, "привет"))
	assert.Equal(t, domain.StateIdle, out.Session.State)
	assert.Equal(t, prompts.Default().MenuLabels(), out.Prompt.Options)
	assert.Nil(t, out.Rejection)
}

func TestRestartClearsEverything(t *testing.T) {
	m := newMachine()
	out := m.Step(at(domain.StateUploadingFile, domain.Data{domain.FieldMessage: "m"}, domain.StateTypingMessage), domain.RestartInput(uid))
	assert.Equal(t, domain.StateIdle, out.Session.State)
	assert.Empty(t, out.Session.History)
	assert.Empty(t, out.Session.Data)
	assert.Contains(t, out.Prompt.Text, "👋 Привет!")
}
