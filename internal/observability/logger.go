package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel = logrus.Level

const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
)

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level   LogLevel
	Format  string // "json" or "text"
	Output  io.Writer
	Service string
	Version string
}

// Logger wraps a logrus entry so fields accumulate immutably.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger instance
func NewLogger(config LoggerConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	base := logrus.New()
	base.SetOutput(config.Output)
	base.SetLevel(config.Level)
	if strings.EqualFold(config.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	fields := logrus.Fields{}
	if config.Service != "" {
		fields["service"] = config.Service
	}
	if config.Version != "" {
		fields["version"] = config.Version
	}

	return &Logger{entry: base.WithFields(fields)}
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a new logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithError returns a new logger carrying err under the "error" key.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithContext returns a new logger tagged with the session id in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := SessionID(ctx); id != "" {
		return l.WithField("session_id", id)
	}
	return l
}

func (l *Logger) Debug(msg string)                          { l.entry.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(msg string)                           { l.entry.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(msg string)                           { l.entry.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.entry.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.entry.Logger.SetLevel(level)
}

// Level returns the minimum log level
func (l *Logger) Level() LogLevel {
	return l.entry.Logger.GetLevel()
}

// LogLevelFromString converts a string to LogLevel, defaulting to info.
func LogLevelFromString(level string) LogLevel {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return InfoLevel
	}
	return parsed
}

type sessionKey struct{}

// ContextWithSessionID stores the Snowflake query tag of a session in ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the id stored by ContextWithSessionID.
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Global logger instance
var defaultLogger = NewLogger(LoggerConfig{
	Level:   InfoLevel,
	Service: "sfds",
})

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the global default logger
func GetDefaultLogger() *Logger {
	return defaultLogger
}

// Package-level convenience functions

func Debugf(format string, args ...interface{}) { defaultLogger.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { defaultLogger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { defaultLogger.Warnf(format, args...) }
