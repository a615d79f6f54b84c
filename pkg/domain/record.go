package domain

import (
	"fmt"
	"time"
)

// Status is the answer state of a Record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnswered Status = "answered"
)

// Submission holds the fields a finished draft contributes to a Record.
// The mapstructure tags match the Data field names.
type Submission struct {
	UserID    int64       `mapstructure:"user_id" json:"user_id"`
	Type      MessageType `mapstructure:"type" json:"type"`
	Recipient string      `mapstructure:"recipient" json:"recipient,omitempty"`
	Anonymous bool        `mapstructure:"is_anonymous" json:"is_anonymous"`
	Name      string      `mapstructure:"name" json:"name"`
	Position  string      `mapstructure:"position" json:"position"`
	Reason    string      `mapstructure:"reason" json:"reason,omitempty"`
	Message   string      `mapstructure:"message" json:"message"`
	FilePath  string      `mapstructure:"file_path" json:"file_path,omitempty"`
}

// Validate checks that every field required by the path taken is present.
func (s Submission) Validate() error {
	var missing []string
	if s.UserID == 0 {
		missing = append(missing, FieldUserID)
	}
	if !s.Type.Valid() {
		missing = append(missing, FieldType)
	}
	if s.Type == TypeManager && s.Recipient == "" {
		missing = append(missing, FieldRecipient)
	}
	if s.Name == "" {
		missing = append(missing, FieldName)
	}
	if s.Position == "" {
		missing = append(missing, FieldPosition)
	}
	if s.Message == "" {
		missing = append(missing, FieldMessage)
	}
	if s.Anonymous && s.Reason == "" {
		missing = append(missing, FieldReason)
	}
	if len(missing) > 0 {
		return &IncompleteSubmissionError{Missing: missing}
	}
	if s.Anonymous && !s.Type.AllowsAnonymity() {
		return &GuardViolation{State: StateEnteringName, Rule: "anonymity is not allowed for " + string(s.Type)}
	}
	return nil
}

// Record is a persisted submission.
type Record struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	Type       MessageType `json:"type"`
	Recipient  string      `json:"recipient,omitempty"`
	Message    string      `json:"message"`
	Name       string      `json:"name"`
	Position   string      `json:"position"`
	Anonymous  bool        `json:"is_anonymous"`
	Reason     string      `json:"reason,omitempty"`
	FilePath   string      `json:"file_path,omitempty"`
	Status     Status      `json:"status"`
	Answer     string      `json:"answer,omitempty"` // empty until answered
	CreatedAt  time.Time   `json:"created_at"`
	AnsweredAt *time.Time  `json:"answered_at,omitempty"`
}

// NewRecord builds a pending record from a submission. ID is assigned by storage.
func NewRecord(s Submission, now time.Time) Record {
	return Record{
		UserID:    s.UserID,
		Type:      s.Type,
		Recipient: s.Recipient,
		Message:   s.Message,
		Name:      s.Name,
		Position:  s.Position,
		Anonymous: s.Anonymous,
		Reason:    s.Reason,
		FilePath:  s.FilePath,
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// HasAttachment reports whether a file was stored with the record.
func (r Record) HasAttachment() bool {
	return r.FilePath != ""
}

func (r Record) String() string {
	return fmt.Sprintf("record#%d(%s, %s)", r.ID, r.Type, r.Status)
}
