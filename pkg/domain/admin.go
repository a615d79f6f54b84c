package domain

// AdminState is a step of the administrator reply desk.
type AdminState string

const (
	AdminIdle            AdminState = "idle"
	AdminChoosingMessage AdminState = "choosing_message"
	AdminTypingResponse  AdminState = "typing_response"
)

// AdminSession is the reply-desk state of one administrator. It shares
// nothing with the user-side Session except the record identity.
type AdminSession struct {
	ID          string     `json:"id"`
	State       AdminState `json:"state"`
	RecordID    int64      `json:"record_id,omitempty"`
	SubmitterID int64      `json:"submitter_id,omitempty"`
	Anonymous   bool       `json:"anonymous,omitempty"`
}

// NewAdminSession creates an idle desk session.
func NewAdminSession(id string) *AdminSession {
	return &AdminSession{ID: id, State: AdminIdle}
}

// Snapshot returns a copy safe for mutation.
func (s *AdminSession) Snapshot() *AdminSession {
	if s == nil {
		return nil
	}
	next := *s
	if next.State == "" {
		next.State = AdminIdle
	}
	return &next
}

// Reset returns the desk to idle.
func (s *AdminSession) Reset() {
	s.State = AdminIdle
	s.RecordID = 0
	s.SubmitterID = 0
	s.Anonymous = false
}

// Active reports whether a reply is in progress.
func (s *AdminSession) Active() bool {
	return s.State != AdminIdle && s.State != ""
}

// AdminEventKind classifies desk input.
type AdminEventKind string

const (
	AdminOpen   AdminEventKind = "open"   // list records
	AdminSelect AdminEventKind = "select" // pick a record by id
	AdminText   AdminEventKind = "text"   // free text (the answer)
	AdminCancel AdminEventKind = "cancel"
)

// AdminEvent is one administrator turn.
type AdminEvent struct {
	Kind     AdminEventKind `json:"kind"`
	UserID   int64          `json:"user_id"`
	RecordID int64          `json:"record_id,omitempty"`
	Text     string         `json:"text,omitempty"`
}
