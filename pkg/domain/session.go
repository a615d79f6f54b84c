package domain

// Session is one user's conversation snapshot.
// The engine never mutates a Session in place: every step works on a Snapshot.
type Session struct {
	ID      string  `json:"id"`
	State   State   `json:"state"`
	Data    Data    `json:"data,omitempty"`
	History History `json:"history,omitempty"`
}

// NewSession creates an idle session.
func NewSession(id string) *Session {
	return &Session{
		ID:    id,
		State: StateIdle,
		Data:  make(Data),
	}
}

// Snapshot returns a deep copy safe for independent mutation.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	next := *s
	if next.State == "" {
		next.State = StateIdle
	}
	next.Data = s.Data.Clone()
	next.History = s.History.clone()
	return &next
}

// Reset clears the draft and returns to the main menu.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Data = make(Data)
	s.History = nil
}

// Active reports whether a draft is in progress.
func (s *Session) Active() bool {
	return s.State != StateIdle && s.State != ""
}
