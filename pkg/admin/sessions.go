package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/session"
)

// Reply is what a shell shows after one desk input.
type Reply struct {
	State  domain.AdminState
	Prompt domain.Prompt
	Err    error
}

// Sessions runs the desk against persisted admin sessions.
type Sessions struct {
	desk     *Desk
	sessions *session.Manager[domain.AdminSession]
}

// NewSessions binds a desk to a session manager.
func NewSessions(desk *Desk, sessions *session.Manager[domain.AdminSession]) *Sessions {
	return &Sessions{desk: desk, sessions: sessions}
}

// Handle applies ev to the admin session with the given id. Idle sessions
// are deleted.
func (s *Sessions) Handle(ctx context.Context, sessionID string, ev domain.AdminEvent) (*Reply, error) {
	var reply Reply
	_, err := s.sessions.Update(ctx, sessionID,
		func() *domain.AdminSession { return domain.NewAdminSession(sessionID) },
		func(ctx context.Context, current *domain.AdminSession) (*domain.AdminSession, error) {
			next, prompt, stepErr := s.desk.Advance(ctx, current, ev)
			reply = Reply{State: next.State, Prompt: prompt, Err: stepErr}
			if !next.Active() {
				return nil, nil
			}
			return next, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to advance admin session %s: %w", sessionID, err)
	}
	return &reply, nil
}

// Active reports whether the administrator is in the middle of a reply,
// so shells can route free text to the desk.
func (s *Sessions) Active(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sess.Active(), nil
}
