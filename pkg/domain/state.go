package domain

import "fmt"

// State is a step of the intake conversation.
type State string

const (
	StateIdle             State = "idle" // Main menu, no draft in progress
	StateChoosingManager  State = "choosing_manager"
	StateEnteringName     State = "entering_name"
	StateEnteringPosition State = "entering_position"
	StateAnonymousReason  State = "anonymous_reason"
	StateTypingMessage    State = "typing_message"
	StateUploadingFile    State = "uploading_file"
)

var knownStates = map[State]struct{}{
	StateIdle:             {},
	StateChoosingManager:  {},
	StateEnteringName:     {},
	StateEnteringPosition: {},
	StateAnonymousReason:  {},
	StateTypingMessage:    {},
	StateUploadingFile:    {},
}

// States lists every state in flow order.
func States() []State {
	return []State{
		StateIdle,
		StateChoosingManager,
		StateEnteringName,
		StateEnteringPosition,
		StateAnonymousReason,
		StateTypingMessage,
		StateUploadingFile,
	}
}

// Valid reports whether s belongs to the closed set of states.
func (s State) Valid() bool {
	_, ok := knownStates[s]
	return ok
}

// ParseState resolves a persisted state name. The empty string is Idle.
func ParseState(name string) (State, error) {
	if name == "" {
		return StateIdle, nil
	}
	s := State(name)
	if !s.Valid() {
		return "", &StaleHistoryError{Entry: s}
	}
	return s, nil
}

func (s State) String() string {
	return string(s)
}

// MessageType is the addressee category chosen from the main menu.
type MessageType string

const (
	TypeManager  MessageType = "manager"
	TypeGeneral  MessageType = "general"
	TypeDirector MessageType = "director"
	TypeIdea     MessageType = "idea"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeManager, TypeGeneral, TypeDirector, TypeIdea:
		return true
	}
	return false
}

// AllowsAnonymity is false for director-addressed submissions, which must be attributable.
func (t MessageType) AllowsAnonymity() bool {
	return t != TypeDirector
}

// ParseMessageType validates a stored message type.
func ParseMessageType(v string) (MessageType, error) {
	t := MessageType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown message type %q", v)
	}
	return t, nil
}
