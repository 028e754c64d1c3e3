package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no registry entry exists for the session.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidState means the operation is not allowed in the current state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrCreationTimeout means client creation exceeded QR plus auth timeouts.
	ErrCreationTimeout = errors.New("session creation timed out")
	// ErrNotificationFailure wraps failed backend notifications. It is
	// logged and counted, never returned to callers.
	ErrNotificationFailure = errors.New("notification failed")
)

// StateError reports the state that blocked an operation.
type StateError struct {
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot cancel session in state: %s", e.State)
}

// Is makes StateError match ErrInvalidState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
