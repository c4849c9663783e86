package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabprep/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "test.log")

	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}

	logger.Info("test message", "key", "value")

	// Close log file to allow reading on Windows
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(content, &logEntry); err != nil {
		t.Errorf("Log output is not valid JSON: %v", err)
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", logEntry["key"])
	}
	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", logEntry["level"])
	}
}

func TestInitializeLogger_ReturnsSameInstance(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: filepath.Join(t.TempDir(), "test.log"),
	}

	first, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	// A second call must not reconfigure the global logger
	second, err := InitializeLogger(config.LoggingConfig{Level: "error", Output: "stdout"})
	if err != nil {
		t.Fatalf("Second initialize returned error: %v", err)
	}

	if first != second {
		t.Error("Expected the same logger instance from repeated initialization")
	}
}

func TestTraceIDInjection(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "test.log")

	cfg := config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.InfoContext(ctx, "test with trace")

	// Close log file to allow reading on Windows
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var logEntry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	lastLine := lines[len(lines)-1]

	if err := json.Unmarshal([]byte(lastLine), &logEntry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}

	if logEntry["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", logEntry["trace_id"])
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			ResetLoggerForTesting()
			defer ResetLoggerForTesting()

			tempDir := t.TempDir()
			logFile := filepath.Join(tempDir, "test.log")

			cfg := config.LoggingConfig{
				Level:    tt.level,
				Format:   "json",
				Output:   "file",
				FilePath: logFile,
			}

			logger, err := InitializeLogger(cfg)
			if err != nil {
				t.Fatalf("Failed to initialize logger: %v", err)
			}

			switch tt.level {
			case "debug":
				logger.Debug("test debug")
			case "info":
				logger.Info("test info")
			case "warn":
				logger.Warn("test warn")
			case "error":
				logger.Error("test error")
			}

			// Close log file to allow reading on Windows
			CloseLogFile()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("Failed to read log file: %v", err)
			}

			var logEntry map[string]interface{}
			if err := json.Unmarshal(content, &logEntry); err != nil {
				t.Fatalf("Failed to parse log JSON: %v", err)
			}

			if logEntry["level"] != tt.expected {
				t.Errorf("Expected level=%s, got %v", tt.expected, logEntry["level"])
			}
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "test.log")

	cfg := config.LoggingConfig{
		Level:    "error",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("should be filtered")

	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if len(strings.TrimSpace(string(content))) != 0 {
		t.Errorf("Expected no output below error level, got %q", content)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := context.Background()

	if got := GetTraceID(ctx); got != "" {
		t.Errorf("Expected empty trace ID on fresh context, got %q", got)
	}

	ctx = WithTraceID(ctx, "trace-42")
	if got := GetTraceID(ctx); got != "trace-42" {
		t.Errorf("Expected trace-42, got %q", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	// Without initialization the default logger is used and no panic occurs
	logger := LoggerFromContext(context.Background())
	if logger == nil {
		t.Fatal("LoggerFromContext returned nil")
	}

	withTrace := LoggerFromContext(WithTraceID(context.Background(), "trace-7"))
	if withTrace == nil {
		t.Fatal("LoggerFromContext with trace returned nil")
	}
}

func TestGetLoggerUninitialized(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	if GetLogger() == nil {
		t.Fatal("GetLogger returned nil before initialization")
	}
}

func TestCloseLogFileWithoutFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	if err := CloseLogFile(); err != nil {
		t.Errorf("CloseLogFile without open file returned error: %v", err)
	}
}
