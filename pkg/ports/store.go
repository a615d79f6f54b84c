package ports

import (
	"context"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

// SessionStore persists conversation snapshots of type T
// (domain.Session or domain.AdminSession).
type SessionStore[T any] interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, v *T) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*T, error)

	// Delete removes the snapshot. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// RecordStore is the durable home of submission records.
type RecordStore interface {
	// Create persists a new pending record and assigns its ID.
	// IDs are unique and increase monotonically across all sessions.
	Create(ctx context.Context, s domain.Submission) (domain.Record, error)

	// Get returns domain.ErrRecordNotFound for unknown IDs.
	Get(ctx context.Context, id int64) (domain.Record, error)

	// ListByUser returns the records of one submitter, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Record, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]domain.Record, error)

	// Answer stores the administrator's answer and marks the record answered.
	Answer(ctx context.Context, id int64, answer string) (domain.Record, error)
}

// AttachmentStore keeps files attached to submissions.
type AttachmentStore interface {
	// Save stores the referenced file and returns its path.
	// Fails with domain.ErrUnsupportedKind for kinds outside the allowed set.
	Save(ctx context.Context, a domain.Attachment) (string, error)
}

// Notifier delivers a message to one chat. attachmentPath is optional.
type Notifier interface {
	Send(ctx context.Context, recipient int64, text string, attachmentPath string) error
}
