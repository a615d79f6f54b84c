package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrRecordNotFound is returned when a record ID does not exist.
var ErrRecordNotFound = errors.New("record not found")

// ErrUnsupportedKind is returned for attachments outside the allowed formats.
var ErrUnsupportedKind = errors.New("unsupported attachment kind")

// ValidationRejection is bad input at a step. The session does not change.
type ValidationRejection struct {
	State  State
	Reason string
}

func (e *ValidationRejection) Error() string {
	return fmt.Sprintf("input rejected at %s: %s", e.State, e.Reason)
}

// GuardViolation is input blocked by a business rule. The session does not change.
type GuardViolation struct {
	State State
	Rule  string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("guard violated at %s: %s", e.State, e.Rule)
}

// StorageError means the record could not be created or updated.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AttachmentError is an unsupported kind or an I/O failure while storing a file.
type AttachmentError struct {
	Kind AttachmentKind
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment (%s): %v", e.Kind, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// Unsupported reports whether the failure is a rejected kind rather than I/O.
func (e *AttachmentError) Unsupported() bool {
	return errors.Is(e.Err, ErrUnsupportedKind)
}

// NotificationError is a failed relay to a single recipient.
type NotificationError struct {
	Recipient int64
	RecordID  int64
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %d about record %d: %v", e.Recipient, e.RecordID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// StaleHistoryError is a back-navigation target that no longer maps to a step.
type StaleHistoryError struct {
	Entry State
}

func (e *StaleHistoryError) Error() string {
	return fmt.Sprintf("stale history entry %q", string(e.Entry))
}

// IncompleteSubmissionError is a finalization attempt with missing fields.
type IncompleteSubmissionError struct {
	Missing []string
}

func (e *IncompleteSubmissionError) Error() string {
	return "incomplete submission, missing: " + strings.Join(e.Missing, ", ")
}
