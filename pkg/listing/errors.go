package listing

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrActionPending is returned when the same action is already running for a row.
	ErrActionPending = errors.New("action already in progress for this row")
	// ErrActionCanceled is returned when the user declines a confirmation.
	ErrActionCanceled = errors.New("action canceled")
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownRow     = errors.New("row not found in current page")
	// ErrNoSubtypeSelected is returned when a creation form is opened
	// before a subtype was chosen.
	ErrNoSubtypeSelected = errors.New("no subtype selected")
)

const (
	GenericErrorMessage   = "Something went wrong, please try again later"
	TransportErrorMessage = "Unable to reach the server, please retry"
)

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError reports a non-2xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server error: %d: %s", e.StatusCode, e.Message)
}

// ValidationError reports bad local input. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsConflict reports whether err is an HTTP 409 from the server.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsTransport reports whether err is a network failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err failed local validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage maps err to text suitable for a toast. conflict is used for
// HTTP 409 when non-empty.
func UserMessage(err error, conflict string) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case IsConflict(err) && conflict != "":
		return conflict
	case IsTransport(err):
		return TransportErrorMessage
	default:
		return GenericErrorMessage
	}
}
