package helpers

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout = errors.New("operation timed out")
	ErrNetwork = errors.New("network error")
	ErrAuth    = errors.New("authentication error")
	// ErrNotInteractive is returned when a command needs a terminal.
	ErrNotInteractive = errors.New("this command requires an interactive terminal")
)

// TimeoutError represents a timeout error with additional context
type TimeoutError struct {
	Operation string
	Duration  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s timed out after %s", e.Operation, e.Duration)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func NewTimeoutError(operation, duration string) error {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
	}
}

// AuthError reports a missing or rejected API key.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

func NewAuthError(reason string) error {
	return &AuthError{Reason: reason}
}
