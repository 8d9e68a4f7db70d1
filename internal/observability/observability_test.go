package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:   DebugLevel,
		Format:  "json",
		Output:  &buf,
		Service: "test-service",
		Version: "1.0.0",
	})

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected log output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, "test-service") {
		t.Errorf("Expected log output to contain service name, got: %s", output)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a single JSON entry, got error: %v", err)
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %v", entry["level"])
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:  InfoLevel,
		Format: "json",
		Output: &buf,
	})

	logger.WithFields(map[string]interface{}{
		"statement": "USE ROLE FS_QS_ROLE",
		"rows":      0,
	}).Info("statement executed")

	output := buf.String()
	if !strings.Contains(output, "USE ROLE FS_QS_ROLE") {
		t.Errorf("Expected log output to contain the statement, got: %s", output)
	}
	if !strings.Contains(output, `"rows":0`) {
		t.Errorf("Expected log output to contain rows field, got: %s", output)
	}
}

func TestLoggerFieldsDoNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(LoggerConfig{Level: InfoLevel, Format: "json", Output: &buf})

	_ = base.WithField("model", "CHURN")
	base.Info("plain")

	if strings.Contains(buf.String(), "CHURN") {
		t.Errorf("WithField must not mutate the parent logger, got: %s", buf.String())
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: WarnLevel, Output: &buf})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warning")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Expected debug/info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "visible warning") {
		t.Errorf("Expected warning in output, got: %s", output)
	}

	logger.SetLevel(DebugLevel)
	if logger.Level() != DebugLevel {
		t.Errorf("Expected level to change to debug, got %v", logger.Level())
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: InfoLevel, Format: "json", Output: &buf})

	ctx := ContextWithSessionID(context.Background(), "sfds-1234")
	logger.WithContext(ctx).Info("bootstrapped")

	if !strings.Contains(buf.String(), `"session_id":"sfds-1234"`) {
		t.Errorf("Expected session id in output, got: %s", buf.String())
	}
	if SessionID(context.Background()) != "" {
		t.Error("Expected empty session id for bare context")
	}
}

func TestLogLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"info", InfoLevel},
		{"WARN", WarnLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"error", ErrorLevel},
		{"FATAL", FatalLevel},
		{"fatal", FatalLevel},
		{"UNKNOWN", InfoLevel}, // Default
	}

	for _, test := range tests {
		result := LogLevelFromString(test.input)
		if result != test.expected {
			t.Errorf("LogLevelFromString(%s) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	original := GetDefaultLogger()
	defer SetDefaultLogger(original)

	var buf bytes.Buffer
	SetDefaultLogger(NewLogger(LoggerConfig{Level: InfoLevel, Output: &buf}))
	Infof("registry %s ready", "MODEL_1")

	if !strings.Contains(buf.String(), "registry MODEL_1 ready") {
		t.Errorf("Expected package-level Infof to use default logger, got: %s", buf.String())
	}
}
