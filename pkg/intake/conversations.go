package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/session"
)

// Reply is what a shell shows after one input.
type Reply struct {
	State  domain.State
	Prompt domain.Prompt
	// Err is the refusal or effect failure reported by Advance, if any.
	// It has already been turned into Prompt and is informational only.
	Err error
}

// Conversations runs the engine against persisted sessions, one step at a
// time per session.
type Conversations struct {
	engine   *Engine
	sessions *session.Manager[domain.Session]
}

// NewConversations binds an engine to a session manager.
func NewConversations(engine *Engine, sessions *session.Manager[domain.Session]) *Conversations {
	return &Conversations{engine: engine, sessions: sessions}
}

// Handle applies ev to the session with the given id and persists the
// result. Sessions back at Idle are deleted. The error is non-nil only when
// the session itself could not be loaded or saved.
func (c *Conversations) Handle(ctx context.Context, sessionID string, ev domain.InputEvent) (*Reply, error) {
	var reply Reply
	_, err := c.sessions.Update(ctx, sessionID,
		func() *domain.Session { return domain.NewSession(sessionID) },
		func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
			next, prompt, stepErr := c.engine.Advance(ctx, current, ev)
			reply = Reply{State: next.State, Prompt: prompt, Err: stepErr}
			if !next.Active() {
				return nil, nil
			}
			return next, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to advance session %s: %w", sessionID, err)
	}
	return &reply, nil
}

// Current returns the persisted session, or a fresh idle one.
func (c *Conversations) Current(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := c.sessions.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(sessionID), nil
	}
	return sess, err
}
