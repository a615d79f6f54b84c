package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a session store
// implementation adheres to the SessionStore contract.
func RunSessionStoreContract(t *testing.T, store SessionStore[domain.Session]) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405.000")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(sessionID)
		sess.State = domain.StateTypingMessage
		sess.Data[domain.FieldName] = "Иван Иванов"
		sess.Data[domain.FieldAnonymous] = false
		sess.Data[domain.FieldUserID] = int64(42)
		sess.History = domain.History{domain.StateEnteringName, domain.StateEnteringPosition}

		require.NoError(t, store.Save(ctx, sessionID, sess), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sess.State, loaded.State)
		assert.Equal(t, sess.History, loaded.History)
		assert.Equal(t, "Иван Иванов", loaded.Data.String(domain.FieldName))
		assert.False(t, loaded.Data.Bool(domain.FieldAnonymous))
		// JSON backends widen integers to float64; only presence is guaranteed.
		assert.NotNil(t, loaded.Data[domain.FieldUserID])
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		sess := domain.NewSession(sessionID + "-copy")
		sess.Data[domain.FieldName] = "original"
		require.NoError(t, store.Save(ctx, sess.ID, sess))
		defer func() { _ = store.Delete(ctx, sess.ID) }()

		sess.Data[domain.FieldName] = "mutated after save"

		loaded, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", loaded.Data.String(domain.FieldName))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewSession(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete of a missing session should succeed")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunRecordStoreContract verifies a RecordStore implementation. The store
// must be empty when the suite starts.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()

	submission := func(user int64, msg string) domain.Submission {
		return domain.Submission{
			UserID:   user,
			Type:     domain.TypeGeneral,
			Name:     "Иван",
			Position: "Инженер",
			Message:  msg,
		}
	}

	t.Run("Create assigns increasing ids", func(t *testing.T) {
		first, err := store.Create(ctx, submission(100, "first"))
		require.NoError(t, err)
		second, err := store.Create(ctx, submission(100, "second"))
		require.NoError(t, err)

		assert.Positive(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
		assert.Equal(t, domain.StatusPending, first.Status)
		assert.Empty(t, first.Answer)
		assert.False(t, first.CreatedAt.IsZero())
	})

	t.Run("Get round-trips every field", func(t *testing.T) {
		in := domain.Submission{
			UserID:    200,
			Type:      domain.TypeManager,
			Recipient: "Немов Павел",
			Anonymous: true,
			Name:      "Аноним",
			Position:  "Аноним",
			Reason:    "не хочу",
			Message:   "текст обращения",
			FilePath:  "uploads/abc_report.pdf",
		}
		created, err := store.Create(ctx, in)
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, in.UserID, got.UserID)
		assert.Equal(t, in.Type, got.Type)
		assert.Equal(t, in.Recipient, got.Recipient)
		assert.True(t, got.Anonymous)
		assert.Equal(t, in.Reason, got.Reason)
		assert.Equal(t, in.Message, got.Message)
		assert.Equal(t, in.FilePath, got.FilePath)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Nil(t, got.AnsweredAt)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, 987654)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("ListByUser newest first", func(t *testing.T) {
		var ids []int64
		for i := 0; i < 3; i++ {
			rec, err := store.Create(ctx, submission(300, fmt.Sprintf("m%d", i)))
			require.NoError(t, err)
			ids = append(ids, rec.ID)
		}
		_, err := store.Create(ctx, submission(301, "someone else"))
		require.NoError(t, err)

		recs, err := store.ListByUser(ctx, 300)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{recs[0].ID, recs[1].ID, recs[2].ID})

		none, err := store.ListByUser(ctx, 999)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("List newest first", func(t *testing.T) {
		recs, err := store.List(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, recs)
		for i := 1; i < len(recs); i++ {
			assert.Greater(t, recs[i-1].ID, recs[i].ID)
		}
	})

	t.Run("Answer", func(t *testing.T) {
		rec, err := store.Create(ctx, submission(400, "question"))
		require.NoError(t, err)

		answered, err := store.Answer(ctx, rec.ID, "answer")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAnswered, answered.Status)
		assert.Equal(t, "answer", answered.Answer)
		require.NotNil(t, answered.AnsweredAt)

		got, err := store.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAnswered, got.Status)
		assert.Equal(t, "answer", got.Answer)

		_, err = store.Answer(ctx, 987654, "nobody")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}
