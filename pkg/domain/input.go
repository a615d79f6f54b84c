package domain

// EventKind classifies a normalized inbound event.
type EventKind string

const (
	EventCommand    EventKind = "command"
	EventText       EventKind = "text"
	EventAttachment EventKind = "attachment"
	EventBack       EventKind = "back"
	EventRestart    EventKind = "restart"
)

// Command is an explicit selection issued by the presentation layer
// (a menu button, the anonymity button or the "skip file" answer).
type Command string

const (
	CommandAskManager Command = "ask_manager"
	CommandGeneral    Command = "general"
	CommandDirector   Command = "director"
	CommandIdea       Command = "idea"
	CommandMyRequests Command = "my_requests"
	CommandAnonymous  Command = "anonymous"
	CommandSkip       Command = "skip"
)

// MessageType returns the draft type a main-menu command starts, if any.
func (c Command) MessageType() (MessageType, bool) {
	switch c {
	case CommandAskManager:
		return TypeManager, true
	case CommandGeneral:
		return TypeGeneral, true
	case CommandDirector:
		return TypeDirector, true
	case CommandIdea:
		return TypeIdea, true
	}
	return "", false
}

// IsMenu reports whether c is one of the main-menu entries.
func (c Command) IsMenu() bool {
	if _, ok := c.MessageType(); ok {
		return true
	}
	return c == CommandMyRequests
}

// InputEvent is what a shell hands to the engine for one user turn.
type InputEvent struct {
	Kind       EventKind   `json:"kind"`
	UserID     int64       `json:"user_id,omitempty"`
	Command    Command     `json:"command,omitempty"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// CommandInput builds a command event.
func CommandInput(userID int64, c Command) InputEvent {
	return InputEvent{Kind: EventCommand, UserID: userID, Command: c}
}

// TypedCommandInput builds a command the user typed rather than tapped.
// The text is kept so steps that expect free text can take it literally.
func TypedCommandInput(userID int64, c Command, text string) InputEvent {
	return InputEvent{Kind: EventCommand, UserID: userID, Command: c, Text: text}
}

// TextInput builds a free-text event.
func TextInput(userID int64, text string) InputEvent {
	return InputEvent{Kind: EventText, UserID: userID, Text: text}
}

// AttachmentInput builds an attachment event.
func AttachmentInput(userID int64, a Attachment) InputEvent {
	return InputEvent{Kind: EventAttachment, UserID: userID, Attachment: &a}
}

// BackInput builds a back-signal event.
func BackInput(userID int64) InputEvent {
	return InputEvent{Kind: EventBack, UserID: userID}
}

// RestartInput builds a restart-signal event.
func RestartInput(userID int64) InputEvent {
	return InputEvent{Kind: EventRestart, UserID: userID}
}

// Prompt is the outbound message: text plus suggested quick replies.
type Prompt struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}
