package domain

import "strings"

// Field names of the session data bag. They double as persistence keys.
const (
	FieldUserID    = "user_id"
	FieldType      = "type"
	FieldRecipient = "recipient"
	FieldAnonymous = "is_anonymous"
	FieldName      = "name"
	FieldPosition  = "position"
	FieldReason    = "reason"
	FieldMessage   = "message"
	FieldFilePath  = "file_path"
)

// Data accumulates the fields of an in-progress submission.
// Values are plain JSON-compatible types (string, bool, int64/float64).
type Data map[string]any

// Clone returns a shallow copy; values are immutable scalars.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Has reports whether key was collected.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the string stored under key, or "".
func (d Data) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Bool returns the boolean stored under key. Integer flags (0/1) written by
// older sessions are accepted as well.
func (d Data) Bool(key string) bool {
	switch v := d[key].(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		s := strings.ToLower(v)
		return s == "1" || s == "true"
	}
	return false
}

// Type returns the message type of the draft, or "" if none was chosen.
func (d Data) Type() MessageType {
	return MessageType(d.String(FieldType))
}
