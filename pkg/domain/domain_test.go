package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState(t *testing.T) {
	s, err := domain.ParseState("")
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, s)

	s, err = domain.ParseState("uploading_file")
	require.NoError(t, err)
	assert.Equal(t, domain.StateUploadingFile, s)

	_, err = domain.ParseState("Form:uploading_file")
	var stale *domain.StaleHistoryError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, domain.State("Form:uploading_file"), stale.Entry)
}

func TestMessageType_AllowsAnonymity(t *testing.T) {
	assert.True(t, domain.TypeManager.AllowsAnonymity())
	assert.True(t, domain.TypeGeneral.AllowsAnonymity())
	assert.True(t, domain.TypeIdea.AllowsAnonymity())
	assert.False(t, domain.TypeDirector.AllowsAnonymity())
}

func TestData_Bool(t *testing.T) {
	d := domain.Data{"a": true, "b": 1, "c": float64(0), "d": "true", "e": "nope"}
	assert.True(t, d.Bool("a"))
	assert.True(t, d.Bool("b"))
	assert.False(t, d.Bool("c"))
	assert.True(t, d.Bool("d"))
	assert.False(t, d.Bool("e"))
	assert.False(t, d.Bool("missing"))
}

func TestSession_SnapshotIsDeep(t *testing.T) {
	s := domain.NewSession("u1")
	s.State = domain.StateTypingMessage
	s.Data[domain.FieldName] = "Иван"
	s.History = domain.History{domain.StateEnteringName}

	snap := s.Snapshot()
	snap.Data[domain.FieldName] = "Пётр"
	snap.History[0] = domain.StateChoosingManager
	snap.Reset()

	assert.Equal(t, domain.StateTypingMessage, s.State)
	assert.Equal(t, "Иван", s.Data.String(domain.FieldName))
	assert.Equal(t, domain.History{domain.StateEnteringName}, s.History)
	assert.True(t, s.Active())
	assert.False(t, snap.Active())
}

func TestAttachmentKinds(t *testing.T) {
	assert.Equal(t, domain.KindPDF, domain.KindFromMIME("application/pdf"))
	assert.Equal(t, domain.KindPNG, domain.KindFromMIME("IMAGE/PNG; charset=binary"))
	assert.Equal(t, domain.KindUnknown, domain.KindFromMIME("application/zip"))
	assert.Equal(t, domain.KindJPEG, domain.KindFromFileName("photo.JPEG"))
	assert.Equal(t, domain.KindXLSX, domain.KindFromFileName("report.xlsx"))
	assert.False(t, domain.KindUnknown.Allowed())
	assert.Equal(t, ".jpg", domain.KindJPEG.Ext())
	assert.Equal(t, ".docx", domain.KindDOCX.Ext())
}

func TestSubmission_Validate(t *testing.T) {
	valid := domain.Submission{
		UserID: 1, Type: domain.TypeGeneral, Name: "Иван", Position: "Инженер", Message: "hi",
	}
	require.NoError(t, valid.Validate())

	missing := domain.Submission{UserID: 1, Type: domain.TypeManager, Anonymous: true, Name: "Аноним", Position: "Аноним"}
	var incomplete *domain.IncompleteSubmissionError
	require.ErrorAs(t, missing.Validate(), &incomplete)
	assert.Equal(t, []string{domain.FieldRecipient, domain.FieldMessage, domain.FieldReason}, incomplete.Missing)

	director := domain.Submission{
		UserID: 1, Type: domain.TypeDirector, Anonymous: true, Name: "Аноним", Position: "Аноним",
		Reason: "r", Message: "m",
	}
	var guard *domain.GuardViolation
	require.ErrorAs(t, director.Validate(), &guard)
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.NewRecord(domain.Submission{UserID: 5, Type: domain.TypeIdea, Message: "m", FilePath: "uploads/x.pdf"}, now)
	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.Equal(t, now, rec.CreatedAt)
	assert.True(t, rec.HasAttachment())
	assert.Nil(t, rec.AnsweredAt)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	assert.ErrorIs(t, &domain.StorageError{Op: "create", Err: cause}, cause)
	assert.ErrorIs(t, &domain.NotificationError{Recipient: 1, Err: cause}, cause)

	unsupported := &domain.AttachmentError{Kind: domain.KindUnknown, Err: domain.ErrUnsupportedKind}
	assert.True(t, unsupported.Unsupported())
	assert.False(t, (&domain.AttachmentError{Err: cause}).Unsupported())
}
