package domain

import "context"

// TransitionEvent reports a successful move between states.
type TransitionEvent struct {
	SessionID string
	From      State
	To        State
	Input     EventKind
}

// RejectionEvent reports input that left the session unchanged.
type RejectionEvent struct {
	SessionID string
	State     State
	Err       error
}

// SubmissionEvent reports a finalization attempt. Err is nil on success.
type SubmissionEvent struct {
	SessionID string
	Record    Record
	Err       error
}

// RelayEvent reports delivery of a record to one recipient. Err is nil on success.
type RelayEvent struct {
	RecordID  int64
	Recipient int64
	Err       error
}

// LifecycleHooks defines callbacks for engine observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnReject     func(context.Context, *RejectionEvent)
	OnSubmit     func(context.Context, *SubmissionEvent)
	OnRelay      func(context.Context, *RelayEvent)
}
