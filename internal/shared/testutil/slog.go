// Package testutil provides shared test helpers, chiefly a buffering slog
// handler for asserting on structured log output.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log record.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogBuffer is a slog.Handler that captures every record it receives.
// Safe for concurrent use.
type LogBuffer struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewTestLogger returns a logger whose output is captured in the returned
// buffer. All levels are enabled.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogBuffer) {
	t.Helper()
	buf := &LogBuffer{}
	return slog.New(buf), buf
}

// Handle implements slog.Handler.
func (b *LogBuffer) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler. Tests capture every level.
func (b *LogBuffer) Enabled(_ context.Context, _ slog.Level) bool { return true }

// WithAttrs implements slog.Handler. Attribute scoping is not needed for
// assertions, so the same buffer is returned.
func (b *LogBuffer) WithAttrs(_ []slog.Attr) slog.Handler { return b }

// WithGroup implements slog.Handler.
func (b *LogBuffer) WithGroup(_ string) slog.Handler { return b }

// Records returns a copy of everything captured so far.
func (b *LogBuffer) Records() []LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LogRecord, len(b.records))
	copy(out, b.records)
	return out
}

// ByLevel returns the captured records at exactly the given level.
func (b *LogBuffer) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range b.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ContainsMessage reports whether any captured record's message contains
// the given substring.
func (b *LogBuffer) ContainsMessage(message string) bool {
	for _, r := range b.Records() {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any captured record carries the attribute.
func (b *LogBuffer) ContainsAttr(key string, value any) bool {
	for _, r := range b.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}
