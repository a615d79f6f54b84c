package intake_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/internal/directory"
	"github.com/Doe880/telegram-feedback-bot1/internal/flow"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/memory"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/intake"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
	"github.com/Doe880/telegram-feedback-bot1/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const user = int64(500)

type sent struct {
	to         int64
	text       string
	attachment string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail map[int64]error
}

func (n *fakeNotifier) Send(_ context.Context, to int64, text, attachment string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[to]; err != nil {
		return err
	}
	n.sent = append(n.sent, sent{to: to, text: text, attachment: attachment})
	return nil
}

func (n *fakeNotifier) recipients() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int64, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.to)
	}
	return out
}

type fakeAttachments struct {
	path string
	err  error
}

func (a *fakeAttachments) Save(_ context.Context, att domain.Attachment) (string, error) {
	if !att.Kind.Allowed() {
		return "", domain.ErrUnsupportedKind
	}
	return a.path, a.err
}

// brokenRecords fails every write.
type brokenRecords struct {
	*memory.Records
}

func (brokenRecords) Create(context.Context, domain.Submission) (domain.Record, error) {
	return domain.Record{}, errors.New("disk full")
}

type fixture struct {
	engine   *intake.Engine
	records  *memory.Records
	notifier *fakeNotifier
	files    *fakeAttachments
	hooks    *hookLog
}

type hookLog struct {
	mu          sync.Mutex
	transitions []domain.TransitionEvent
	rejections  []domain.RejectionEvent
	submissions []domain.SubmissionEvent
	relays      []domain.RelayEvent
}

func (h *hookLog) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.transitions = append(h.transitions, *ev)
		},
		OnReject: func(_ context.Context, ev *domain.RejectionEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.rejections = append(h.rejections, *ev)
		},
		OnSubmit: func(_ context.Context, ev *domain.SubmissionEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.submissions = append(h.submissions, *ev)
		},
		OnRelay: func(_ context.Context, ev *domain.RelayEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.relays = append(h.relays, *ev)
		},
	}
}

func newFixture(t *testing.T, admins []int64, records ports.RecordStore) *fixture {
	t.Helper()
	f := &fixture{
		notifier: &fakeNotifier{fail: map[int64]error{}},
		files:    &fakeAttachments{path: "uploads/abc_report.pdf"},
		hooks:    &hookLog{},
	}
	mem, _ := records.(*memory.Records)
	f.records = mem
	dir := directory.New([]string{"Иванов", "Петров"}, admins)
	table := prompts.Default()
	fin := intake.NewFinalizer(records, f.notifier, dir, table, intake.WithFinalizerHooks(f.hooks.hooks()))
	f.engine = intake.NewEngine(flow.New(table, dir), fin, records, f.files, intake.WithLifecycleHooks(f.hooks.hooks()))
	return f
}

// advance feeds events and returns the final session, prompt and error.
func (f *fixture) advance(t *testing.T, sess *domain.Session, events ...domain.InputEvent) (*domain.Session, domain.Prompt, error) {
	t.Helper()
	var (
		prompt domain.Prompt
		err    error
	)
	for _, ev := range events {
		sess, prompt, err = f.engine.Advance(context.Background(), sess, ev)
		require.NotNil(t, sess)
	}
	return sess, prompt, err
}

var generalFlow = []domain.InputEvent{
	domain.CommandInput(user, domain.CommandGeneral),
	domain.TextInput(user, "Иван Иванов"),
	domain.TextInput(user, "Инженер"),
	domain.TextInput(user, "Тестовое сообщение"),
}

func TestEngine_GeneralQuestionIsStoredAndRelayed(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, []int64{10, 20}, memory.NewRecords())
	sess, _, err := f.advance(t, domain.NewSession("chat"), generalFlow...)
	require.NoError(t, err)
	require.Equal(t, domain.StateUploadingFile, sess.State)

	sess, prompt, err := f.advance(t, sess, domain.CommandInput(user, domain.CommandSkip))
	require.NoError(t, err)

	assert.Equal(t, domain.StateIdle, sess.State)
	assert.Empty(t, sess.Data)
	assert.Empty(t, sess.History)
	assert.Equal(t, prompts.Default().Text(prompts.MsgSubmitted), prompt.Text)
	assert.Equal(t, prompts.Default().MenuLabels(), prompt.Options)

	recs, err := f.records.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, domain.TypeGeneral, rec.Type)
	assert.False(t, rec.Anonymous)
	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.Equal(t, "Иван Иванов", rec.Name)
	assert.Equal(t, "Инженер", rec.Position)
	assert.Equal(t, "Тестовое сообщение", rec.Message)
	assert.Equal(t, user, rec.UserID)
	assert.Empty(t, rec.FilePath)

	assert.ElementsMatch(t, []int64{10, 20}, f.notifier.recipients())
	require.Len(t, f.hooks.submissions, 1)
	assert.NoError(t, f.hooks.submissions[0].Err)
	assert.Len(t, f.hooks.relays, 2)
}

func TestEngine_AttachmentPathIsRecordedAndRelayed(t *testing.T) {
	f := newFixture(t, []int64{10}, memory.NewRecords())
	sess, _, err := f.advance(t, domain.NewSession("chat"), generalFlow...)
	require.NoError(t, err)

	sess, _, err = f.advance(t, sess, domain.AttachmentInput(user, domain.Attachment{Ref: "tg-file", Kind: domain.KindPDF, FileName: "report.pdf"}))
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, sess.State)

	recs, _ := f.records.List(context.Background())
	require.Len(t, recs, 1)
	assert.Equal(t, "uploads/abc_report.pdf", recs[0].FilePath)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "uploads/abc_report.pdf", f.notifier.sent[0].attachment)
}

func TestEngine_AttachmentStoreFailureKeepsUploadStep(t *testing.T) {
	f := newFixture(t, []int64{10}, memory.NewRecords())
	f.files.err = errors.New("connection reset")
	sess, _, err := f.advance(t, domain.NewSession("chat"), generalFlow...)
	require.NoError(t, err)

	next, prompt, err := f.advance(t, sess, domain.AttachmentInput(user, domain.Attachment{Ref: "tg-file", Kind: domain.KindPNG}))

	var aerr *domain.AttachmentError
	require.ErrorAs(t, err, &aerr)
	assert.False(t, aerr.Unsupported())
	assert.Equal(t, domain.StateUploadingFile, next.State)
	assert.Equal(t, sess.History, next.History)
	assert.Contains(t, prompt.Text, prompts.Default().Text(prompts.MsgUploadFailed))

	recs, _ := f.records.List(context.Background())
	assert.Empty(t, recs)
	assert.Empty(t, f.notifier.sent)
}

func TestEngine_StorageFailureRetainsSession(t *testing.T) {
	f := newFixture(t, []int64{10}, brokenRecords{memory.NewRecords()})
	sess, _, err := f.advance(t, domain.NewSession("chat"), generalFlow...)
	require.NoError(t, err)

	next, prompt, err := f.advance(t, sess, domain.CommandInput(user, domain.CommandSkip))

	var serr *domain.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "create", serr.Op)
	assert.Equal(t, domain.StateUploadingFile, next.State)
	assert.Equal(t, "Тестовое сообщение", next.Data.String(domain.FieldMessage))
	assert.Equal(t, sess.History, next.History)
	assert.Contains(t, prompt.Text, prompts.Default().Text(prompts.MsgSubmitFailed))
	assert.Empty(t, f.notifier.sent)

	require.Len(t, f.hooks.submissions, 1)
	assert.ErrorAs(t, f.hooks.submissions[0].Err, &serr)
}

func TestEngine_IncompleteDraftResets(t *testing.T) {
	f := newFixture(t, []int64{10}, memory.NewRecords())
	sess := domain.NewSession("chat")
	sess.State = domain.StateUploadingFile
	sess.Data[domain.FieldType] = "general"

	next, prompt, err := f.advance(t, sess, domain.CommandInput(user, domain.CommandSkip))

	var ierr *domain.IncompleteSubmissionError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Missing, domain.FieldName)
	assert.Equal(t, domain.StateIdle, next.State)
	assert.Equal(t, prompts.Default().Text(prompts.MsgIncomplete), prompt.Text)
}

func TestEngine_RejectionsAreReported(t *testing.T) {
	f := newFixture(t, nil, memory.NewRecords())
	sess, _, err := f.advance(t, domain.NewSession("chat"), domain.CommandInput(user, domain.CommandDirector))
	require.NoError(t, err)

	next, _, err := f.advance(t, sess, domain.CommandInput(user, domain.CommandAnonymous))

	var guard *domain.GuardViolation
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, domain.StateEnteringName, next.State)
	assert.False(t, next.Data.Has(domain.FieldAnonymous))
	require.Len(t, f.hooks.rejections, 1)
	assert.Equal(t, domain.StateEnteringName, f.hooks.rejections[0].State)
	require.Len(t, f.hooks.transitions, 1)
	assert.Equal(t, domain.StateIdle, f.hooks.transitions[0].From)
	assert.Equal(t, domain.StateEnteringName, f.hooks.transitions[0].To)
}

func TestEngine_MyRequests(t *testing.T) {
	f := newFixture(t, nil, memory.NewRecords())
	sess, prompt, err := f.advance(t, domain.NewSession("chat"), domain.CommandInput(user, domain.CommandMyRequests))
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, sess.State)
	assert.Contains(t, prompt.Text, prompts.Default().Text(prompts.MsgNoRequests))

	sess, _, _ = f.advance(t, sess, generalFlow...)
	_, _, err = f.advance(t, sess, domain.CommandInput(user, domain.CommandSkip))
	require.NoError(t, err)

	_, prompt, err = f.advance(t, domain.NewSession("chat"), domain.CommandInput(user, domain.CommandMyRequests))
	require.NoError(t, err)
	assert.Contains(t, prompt.Text, "Тестовое сообщение")
	assert.Contains(t, prompt.Text, "Ожидает ответа")
}

func TestFinalizer_SkipsSubmitterAndSurvivesRelayFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	records := memory.NewRecords()
	notifier := &fakeNotifier{fail: map[int64]error{20: errors.New("bot was blocked by the user")}}
	dir := directory.New(nil, []int64{10, 20, 30, user, 10})
	fin := intake.NewFinalizer(records, notifier, dir, prompts.Default(), intake.WithRelayConcurrency(2))

	sess := domain.NewSession("chat")
	sess.State = domain.StateUploadingFile
	sess.Data = domain.Data{
		domain.FieldUserID:    float64(user),
		domain.FieldType:      "idea",
		domain.FieldRecipient: "",
		domain.FieldAnonymous: true,
		domain.FieldName:      flow.AnonymousName,
		domain.FieldPosition:  flow.AnonymousName,
		domain.FieldReason:    "не хочу светиться",
		domain.FieldMessage:   "Купить кофемашину",
	}
	before := sess.Snapshot()

	receipt, err := fin.Finalize(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, before, sess, "finalize must not touch the session")
	assert.Equal(t, user, receipt.Record.UserID)
	assert.True(t, receipt.Record.Anonymous)
	assert.ElementsMatch(t, []int64{10, 30}, notifier.recipients())
	require.Len(t, receipt.Failed, 1)
	assert.Equal(t, int64(20), receipt.Failed[0].Recipient)
	assert.Equal(t, receipt.Record.ID, receipt.Failed[0].RecordID)

	for _, s := range notifier.sent {
		assert.Contains(t, s.text, "Анонимное обращение")
		assert.NotContains(t, s.text, "Иван")
	}
}

func TestConversations_PersistsActiveSessionsOnly(t *testing.T) {
	f := newFixture(t, []int64{10}, memory.NewRecords())
	store := memory.NewStore[domain.Session]()
	conv := intake.NewConversations(f.engine, session.NewManager[domain.Session](store))
	ctx := context.Background()

	reply, err := conv.Handle(ctx, "chat", domain.CommandInput(user, domain.CommandGeneral))
	require.NoError(t, err)
	assert.Equal(t, domain.StateEnteringName, reply.State)

	saved, err := store.Load(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, domain.StateEnteringName, saved.State)

	reply, err = conv.Handle(ctx, "chat", domain.BackInput(user))
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, reply.State)

	_, err = store.Load(ctx, "chat")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	current, err := conv.Current(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, current.State)
}
