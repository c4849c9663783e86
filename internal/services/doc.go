// Package services implements the business logic layer between the HTTP
// handlers and the preprocessing core. It keeps handlers thin: a handler
// decodes and validates a request, calls one service method, and renders
// the result.
//
// PipelineService owns the full fit and transform flows: loading a dataset
// file, running the preprocessing pipeline, persisting the fitted tables as
// an artifact and optionally exporting the resulting matrix. HealthService
// reports liveness, readiness and version information.
//
// Services receive their dependencies through constructors and log with
// *slog.Logger using context-aware methods so trace IDs propagate.
package services
