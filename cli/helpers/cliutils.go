package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/spf13/cobra"
)

// CliError represents a CLI-specific error with enhanced context
type CliError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.cause
}

// NewCliError creates a new CLI error with context
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WithContext adds context to the error
func (e *CliError) WithContext(key string, value any) *CliError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause keeps the original error reachable through errors.Is/As.
func (e *CliError) WithCause(err error) *CliError {
	e.cause = err
	return e
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNetworkError checks if an error is a network-related error
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNetwork) || listing.IsTransport(err)
}

// IsAuthError checks if an error is authentication-related
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) {
		return true
	}
	code := listing.StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// CategorizeError converts errors into structured CLI errors. Unknown
// errors are returned as nil so callers can print them unchanged.
func CategorizeError(err error) *CliError {
	var cliErr *CliError
	var ve *listing.ValidationError
	var se *listing.ServerError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cliErr):
		return cliErr
	case errors.Is(err, context.Canceled), errors.Is(err, listing.ErrActionCanceled):
		return NewCliError("OPERATION_CANCELED", "Operation was canceled by user").WithCause(err)
	case IsTimeoutError(err):
		return NewCliError("OPERATION_TIMEOUT", "Operation timed out").WithCause(err)
	case errors.As(err, &ve):
		return NewCliError("INVALID_INPUT", ve.Error()).WithContext("field", ve.Field).WithCause(err)
	case IsNetworkError(err):
		return NewCliError("NETWORK_ERROR", listing.TransportErrorMessage, err.Error()).WithCause(err)
	case IsAuthError(err):
		return NewCliError("AUTH_ERROR", "Authentication failed", err.Error()).WithCause(err)
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return NewCliError("NOT_FOUND", "Resource not found", se.Message).WithCause(err)
	case errors.As(err, &se) && se.StatusCode == http.StatusConflict:
		return NewCliError("CONFLICT", nonEmpty(se.Message, "Resource already exists")).WithCause(err)
	case errors.As(err, &se):
		return NewCliError("SERVER_ERROR", listing.GenericErrorMessage, se.Error()).
			WithContext("status", se.StatusCode).
			WithCause(err)
	default:
		return nil
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// FormatError formats errors based on output mode
func FormatError(err error, mode models.Mode) string {
	if err == nil {
		return ""
	}
	switch mode {
	case models.ModeJSON:
		return formatErrorJSON(err)
	case models.ModeTUI:
		return formatErrorTUI(err)
	default:
		return err.Error()
	}
}

// formatErrorJSON renders {"error", "code", "details"}.
func formatErrorJSON(err error) string {
	response := map[string]any{
		"error":   err.Error(),
		"details": "",
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		response = map[string]any{
			"error":   cliErr.Message,
			"code":    cliErr.Code,
			"details": cliErr.Details,
		}
	}
	jsonBytes, mErr := json.MarshalIndent(response, "", "  ")
	if mErr != nil {
		return `{"error": "JSON marshaling failed", "details": ""}`
	}
	return string(jsonBytes)
}

// formatErrorTUI formats errors for TUI output with colors and icons
func formatErrorTUI(err error) string {
	message, details := extractErrorInfo(err)
	result := formatErrorMessage(getErrorIcon(err), message)
	if details != "" {
		result += formatErrorDetails(details)
	}
	return result
}

func extractErrorInfo(err error) (message, details string) {
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr.Message, cliErr.Details
	}
	return err.Error(), ""
}

func getErrorIcon(err error) string {
	switch {
	case IsNetworkError(err):
		return "🌐"
	case IsAuthError(err):
		return "🔐"
	case IsTimeoutError(err):
		return "⏰"
	default:
		return "❌"
	}
}

func formatErrorMessage(icon, message string) string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true)
	return fmt.Sprintf("%s %s", icon, style.Render(message))
}

func formatErrorDetails(details string) string {
	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true)
	return "\n" + detailStyle.Render(fmt.Sprintf("Details: %s", details))
}

// WriteError prints err to w in the format of mode.
func WriteError(w io.Writer, err error, mode models.Mode) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, mode))
}

// ValidateRequired validates that a required string value is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewCliError("REQUIRED_FIELD", fmt.Sprintf("%s is required", fieldName))
	}
	return nil
}

// ValidateEnum validates that a value is in a set of allowed values
func ValidateEnum(value string, allowed []string, fieldName string) error {
	if value == "" {
		return nil
	}
	if slices.Contains(allowed, value) {
		return nil
	}
	return NewCliError("INVALID_ENUM",
		fmt.Sprintf("%s must be one of: %s", fieldName, strings.Join(allowed, ", ")),
		fmt.Sprintf("provided: %s", value))
}

// Contains reports whether substr is within s using a case-insensitive comparison.
// An empty substr returns true.
func Contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Truncate returns s truncated to at most maxLength runes.
// If s is longer than maxLength and maxLength > 3, the result ends with "...".
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// FormatDate renders t as DateFormat, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateFormat)
}

// GetFlagStringWithDefault gets a string flag with a default value
func GetFlagStringWithDefault(cmd *cobra.Command, flagName, defaultValue string) string {
	if value, err := cmd.Flags().GetString(flagName); err == nil && value != "" {
		return value
	}
	return defaultValue
}

// LogOperation logs the start and completion of an operation. Failures
// are logged at debug level; the command reports them to the user.
func LogOperation(ctx context.Context, operation string, fn func() error) error {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Debug("starting operation", "operation", operation)
	err := fn()
	duration := time.Since(start)
	if err != nil {
		log.Debug("operation failed", "operation", operation, "duration", duration, "error", err)
	} else {
		log.Debug("operation completed", "operation", operation, "duration", duration)
	}
	return err
}
