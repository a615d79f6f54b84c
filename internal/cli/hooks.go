package cli

import (
	"context"
	"log/slog"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

// DebugHooks logs every lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Transition", "session_id", e.SessionID, "from", e.From, "to", e.To, "input", e.Input)
		},
		OnReject: func(ctx context.Context, e *domain.RejectionEvent) {
			logger.Debug("Input rejected", "session_id", e.SessionID, "state", e.State, "err", e.Err)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmissionEvent) {
			if e.Err != nil {
				logger.Debug("Submission failed", "session_id", e.SessionID, "err", e.Err)
				return
			}
			logger.Debug("Submission stored", "session_id", e.SessionID, "record_id", e.Record.ID)
		},
		OnRelay: func(ctx context.Context, e *domain.RelayEvent) {
			logger.Debug("Relay", "record_id", e.RecordID, "recipient", e.Recipient, "err", e.Err)
		},
	}
}

// CombineHooks fans each event out to every set of hooks, in order.
func CombineHooks(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var combined domain.LifecycleHooks
	for _, h := range all {
		if h.OnTransition != nil {
			combined.OnTransition = chain(combined.OnTransition, h.OnTransition)
		}
		if h.OnReject != nil {
			combined.OnReject = chain(combined.OnReject, h.OnReject)
		}
		if h.OnSubmit != nil {
			combined.OnSubmit = chain(combined.OnSubmit, h.OnSubmit)
		}
		if h.OnRelay != nil {
			combined.OnRelay = chain(combined.OnRelay, h.OnRelay)
		}
	}
	return combined
}

func chain[E any](first, next func(context.Context, *E)) func(context.Context, *E) {
	if first == nil {
		return next
	}
	return func(ctx context.Context, e *E) {
		first(ctx, e)
		next(ctx, e)
	}
}
