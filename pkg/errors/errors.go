package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "SFDS1001"
	ErrCodeConnectionTimeout    ErrorCode = "SFDS1002"
	ErrCodeAuthenticationFailed ErrorCode = "SFDS1003"

	// Configuration errors (2xxx)
	ErrCodeConfigInvalid ErrorCode = "SFDS2002"
	ErrCodeConfigMissing ErrorCode = "SFDS2003"

	// Registry errors (3xxx)
	ErrCodeEntityNotFound       ErrorCode = "SFDS3001"
	ErrCodeMalformedVersionTag  ErrorCode = "SFDS3002"
	ErrCodeRegistryLookup       ErrorCode = "SFDS3003"
	ErrCodeProvisioningFailed   ErrorCode = "SFDS3004"
	ErrCodeUnsupportedByAccount ErrorCode = "SFDS3005"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "SFDS4001"
	ErrCodeSQLPermission     ErrorCode = "SFDS4002"
	ErrCodeSQLTimeout        ErrorCode = "SFDS4003"
	ErrCodeSQLObjectNotFound ErrorCode = "SFDS4005"
	ErrCodeSQLExecution      ErrorCode = "SFDS4006"
	ErrCodeResultParsing     ErrorCode = "SFDS4007"

	// File system errors (5xxx)
	ErrCodeFileNotFound   ErrorCode = "SFDS5001"
	ErrCodeFilePermission ErrorCode = "SFDS5002"
	ErrCodeFileOperation  ErrorCode = "SFDS5005"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "SFDS6001"
	ErrCodeInvalidInput     ErrorCode = "SFDS6002"
	ErrCodeRequiredField    ErrorCode = "SFDS6003"
	ErrCodeUserInput        ErrorCode = "SFDS6004"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "SFDS9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Sentinel creates an AppError meant for comparison with errors.Is.
// It carries no stack because it is built once at package init.
func Sentinel(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Severity: SeverityError,
		Context:  make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the account identifier in connection.json",
			"Check firewall and network policy settings",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'sfds init' to write a fresh connection file",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	lower := strings.ToLower(message + " " + errString(cause))
	switch {
	case strings.Contains(lower, "syntax error"):
		err.Code = ErrCodeSQLSyntax
		_ = err.WithSuggestions(
			"Check SQL syntax near the error location",
			"Run the statement through 'sfds format' to spot unbalanced clauses",
		)
	case strings.Contains(lower, "insufficient privileges") || strings.Contains(lower, "access denied"):
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Verify the role has required privileges",
			"Switch role with 'USE ROLE' before retrying",
		)
	case strings.Contains(lower, "timeout"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions(
			"Increase the statement timeout in settings.yaml",
			"Check the warehouse size",
		)
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is forwards to the standard library so callers need only this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library so callers need only this package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
