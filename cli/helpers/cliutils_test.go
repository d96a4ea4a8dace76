package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/compozy/flowctl/cli/tui/models"
	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCliError(t *testing.T) {
	t.Run("Should create error with code and message", func(t *testing.T) {
		err := NewCliError("TEST_ERROR", "Test message")
		assert.Equal(t, "TEST_ERROR", err.Code)
		assert.Equal(t, "Test message", err.Message)
		assert.Empty(t, err.Details)
		assert.NotNil(t, err.Context)
	})

	t.Run("Should implement error interface", func(t *testing.T) {
		assert.Equal(t, "TEST_ERROR: Test message", NewCliError("TEST_ERROR", "Test message").Error())
		assert.Equal(t, "TEST_ERROR: Test message (Details)", NewCliError("TEST_ERROR", "Test message", "Details").Error())
	})

	t.Run("Should keep the cause reachable", func(t *testing.T) {
		cause := &listing.ServerError{StatusCode: http.StatusConflict}
		err := NewCliError("CONFLICT", "exists").WithCause(cause)
		assert.True(t, listing.IsConflict(err))
	})
}

func TestCategorizeError(t *testing.T) {
	t.Run("Should map the listing taxonomy to CLI codes", func(t *testing.T) {
		cases := []struct {
			err  error
			code string
		}{
			{context.Canceled, "OPERATION_CANCELED"},
			{listing.ErrActionCanceled, "OPERATION_CANCELED"},
			{context.DeadlineExceeded, "OPERATION_TIMEOUT"},
			{listing.NewValidationError("name", "is required"), "INVALID_INPUT"},
			{&listing.TransportError{Op: "list flows", Err: errors.New("dial tcp: refused")}, "NETWORK_ERROR"},
			{&listing.ServerError{StatusCode: http.StatusUnauthorized}, "AUTH_ERROR"},
			{&listing.ServerError{StatusCode: http.StatusNotFound}, "NOT_FOUND"},
			{&listing.ServerError{StatusCode: http.StatusConflict, Message: "taken"}, "CONFLICT"},
			{&listing.ServerError{StatusCode: http.StatusInternalServerError}, "SERVER_ERROR"},
		}
		for _, tc := range cases {
			cliErr := CategorizeError(fmt.Errorf("wrapped: %w", tc.err))
			require.NotNil(t, cliErr, tc.err.Error())
			assert.Equal(t, tc.code, cliErr.Code, tc.err.Error())
		}
	})

	t.Run("Should use the platform message for conflicts", func(t *testing.T) {
		cliErr := CategorizeError(&listing.ServerError{StatusCode: http.StatusConflict, Message: "Piece already installed."})
		require.NotNil(t, cliErr)
		assert.Equal(t, "Piece already installed.", cliErr.Message)
	})

	t.Run("Should return nil for unknown errors", func(t *testing.T) {
		assert.Nil(t, CategorizeError(errors.New("boom")))
		assert.Nil(t, CategorizeError(nil))
	})
}

func TestErrorPredicates(t *testing.T) {
	t.Run("Should detect timeouts", func(t *testing.T) {
		assert.True(t, IsTimeoutError(context.DeadlineExceeded))
		assert.True(t, IsTimeoutError(NewTimeoutError("list", "1s")))
		assert.False(t, IsTimeoutError(errors.New("other")))
	})

	t.Run("Should detect network errors", func(t *testing.T) {
		assert.True(t, IsNetworkError(&listing.TransportError{Err: errors.New("eof")}))
		assert.True(t, IsNetworkError(ErrNetwork))
		assert.False(t, IsNetworkError(&listing.ServerError{StatusCode: 500}))
	})

	t.Run("Should detect auth errors", func(t *testing.T) {
		assert.True(t, IsAuthError(NewAuthError("missing key")))
		assert.True(t, IsAuthError(&listing.ServerError{StatusCode: http.StatusForbidden}))
		assert.False(t, IsAuthError(&listing.ServerError{StatusCode: http.StatusBadRequest}))
	})
}

func TestFormatError(t *testing.T) {
	t.Run("Should render JSON with code and details", func(t *testing.T) {
		out := FormatError(NewCliError("NOT_FOUND", "Resource not found", "flow abc"), models.ModeJSON)
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "Resource not found", got["error"])
		assert.Equal(t, "NOT_FOUND", got["code"])
		assert.Equal(t, "flow abc", got["details"])
	})

	t.Run("Should render plain errors in TUI mode", func(t *testing.T) {
		out := FormatError(errors.New("boom"), models.ModeTUI)
		assert.Contains(t, out, "boom")
	})

	t.Run("Should write nothing for nil", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, nil, models.ModeJSON)
		assert.Empty(t, buf.String())
	})
}

func TestValidateEnum(t *testing.T) {
	t.Run("Should accept allowed and empty values", func(t *testing.T) {
		assert.NoError(t, ValidateEnum("asc", []string{"asc", "desc"}, "order"))
		assert.NoError(t, ValidateEnum("", []string{"asc"}, "order"))
	})

	t.Run("Should reject unknown values", func(t *testing.T) {
		err := ValidateEnum("up", []string{"asc", "desc"}, "order")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "order must be one of: asc, desc")
	})
}

func TestTruncate(t *testing.T) {
	t.Run("Should truncate with an ellipsis", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello", 10))
		assert.Equal(t, "hello w...", Truncate("hello world!", 10))
		assert.Equal(t, "he", Truncate("hello", 2))
	})

	t.Run("Should count runes rather than bytes", func(t *testing.T) {
		assert.Equal(t, "héllo", Truncate("héllo", 5))
	})
}

func TestLogOperation(t *testing.T) {
	t.Run("Should log start and failure with the error", func(t *testing.T) {
		var logs bytes.Buffer
		ctx := logger.ContextWithLogger(t.Context(), logger.SetupLogger("debug", false, false, &logs))
		boom := errors.New("boom")

		err := LogOperation(ctx, "load flows page", func() error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, logs.String(), "starting operation")
		assert.Contains(t, logs.String(), "operation failed")
		assert.Contains(t, logs.String(), "boom")
	})

	t.Run("Should stay quiet above debug level", func(t *testing.T) {
		var logs bytes.Buffer
		ctx := logger.ContextWithLogger(t.Context(), logger.SetupLogger("info", false, false, &logs))

		require.NoError(t, LogOperation(ctx, "load flows page", func() error { return nil }))
		assert.Empty(t, logs.String())
	})
}

func TestContains(t *testing.T) {
	t.Run("Should match case-insensitively", func(t *testing.T) {
		assert.True(t, Contains("Slack Notifier", "slack"))
		assert.True(t, Contains("anything", ""))
		assert.False(t, Contains("Slack", "gmail"))
	})
}

func TestPluralize(t *testing.T) {
	t.Run("Should pick the form by count", func(t *testing.T) {
		assert.Equal(t, "flow", Pluralize(1, "flow", "flows"))
		assert.Equal(t, "flows", Pluralize(0, "flow", "flows"))
	})
}
