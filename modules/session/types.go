package session

import "errors"

// Validation errors. Callers log and drop the offending frame; nothing is
// surfaced to the sender (fire-and-forget relay semantics).
var (
	ErrRoomIDEmpty   = errors.New("room id cannot be empty")
	ErrUsernameEmpty = errors.New("username cannot be empty")
	ErrMessageEmpty  = errors.New("message content cannot be empty")
)

// ValidateUsername validates a display name supplied at join time. Names are
// arbitrary non-unique text; non-emptiness is the only requirement.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	return nil
}

// ValidateMessage validates chat message content. Any non-empty text is
// accepted.
func ValidateMessage(content string) error {
	if content == "" {
		return ErrMessageEmpty
	}
	return nil
}
