package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[SFDS1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[SFDS1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("account", "xy12345").
				WithContext("port", 443),
			expected: "[SFDS1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, ErrCodeConnectionFailed, tt.err.Code)
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("database connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to Snowflake")

	assert.Equal(t, baseErr, appErr.Cause)
	assert.Equal(t, ErrCodeConnectionFailed, appErr.Code)
	assert.Contains(t, appErr.Error(), "Caused by: database connection refused")
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeMalformedVersionTag, "bad tag").WithContext("tag", "V_a")
	outer := Wrap(fmt.Errorf("lookup: %w", inner), ErrCodeRegistryLookup, "allocation failed")

	assert.Equal(t, "V_a", outer.Context["tag"])
}

func TestSentinelComparison(t *testing.T) {
	notFound := Sentinel(ErrCodeEntityNotFound, "entity not found")

	err := fmt.Errorf("resolving MODEL_A: %w", New(ErrCodeEntityNotFound, "model MODEL_A does not exist"))
	assert.True(t, Is(err, notFound))
	assert.False(t, Is(err, Sentinel(ErrCodeMalformedVersionTag, "malformed")))
	assert.Empty(t, notFound.Stack)
}

func TestSQLErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		code  ErrorCode
	}{
		{"syntax", fmt.Errorf("001003 (42000): SQL compilation error: syntax error line 1"), ErrCodeSQLSyntax},
		{"privileges", fmt.Errorf("003001 (42501): Insufficient privileges to operate on schema"), ErrCodeSQLPermission},
		{"timeout", fmt.Errorf("statement reached its statement or warehouse timeout"), ErrCodeSQLTimeout},
		{"other", fmt.Errorf("something else"), ErrCodeSQLExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SQLError("Failed to execute statement", "SELECT 1", tt.cause)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, "SELECT 1", err.Context["query"])
		})
	}
}

func TestIsRecoverableAndCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrCodeConnectionTimeout, "Timeout").AsRecoverable())

	assert.True(t, IsRecoverable(err))
	assert.Equal(t, ErrCodeConnectionTimeout, GetErrorCode(err))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain")))
}

func TestAs(t *testing.T) {
	var appErr *AppError
	require.True(t, As(fmt.Errorf("x: %w", ConfigError("bad account", "account")), &appErr))
	assert.Equal(t, ErrCodeConfigInvalid, appErr.Code)
	assert.Equal(t, "account", appErr.Context["field"])
}

func TestValidationErrorSeverity(t *testing.T) {
	err := ValidationError("warehouse_size", "HUGE", "unknown size")

	assert.Equal(t, SeverityWarning, err.Severity)
	assert.Contains(t, err.Message, "warehouse_size")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
}
