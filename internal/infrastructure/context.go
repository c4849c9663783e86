package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// GenerateTraceID mints a fresh UUID v4 trace identifier. Middleware uses
// it for incoming requests; CLI runs get one through EnsureTraceID.
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID returns a context that is guaranteed to carry a trace ID.
// Contexts that already have one pass through unchanged, so a CLI entry
// point can call this unconditionally before starting a pipeline run.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateTraceID())
}
