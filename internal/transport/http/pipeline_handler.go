package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "tabprep/internal/errors"
	"tabprep/internal/infrastructure"
	"tabprep/internal/middleware"
	v1 "tabprep/pkg/contracts/api/v1"
)

// PipelineHandler handles fit and transform HTTP requests with RFC 7807 compliance
type PipelineHandler struct {
	service      PipelineServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPipelineHandler creates a new pipeline handler with RFC 7807 error handling
func NewPipelineHandler(service PipelineServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PipelineHandler {
	return &PipelineHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "pipeline_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the pipeline routes with proper Chi patterns
func (h *PipelineHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	// Fit and transform read whole datasets, so they get a longer window
	// than the rest of the API
	r.Use(middleware.Timeout(120*time.Second, h.logger))

	r.Post("/fit", h.Fit)
	r.Post("/transform", h.Transform)

	return r
}

// Fit handles POST /api/v1/pipeline/fit
func (h *PipelineHandler) Fit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("pipeline-handler")

	ctx, span := tracer.Start(ctx, "pipeline_handler.fit",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/pipeline/fit"),
			attribute.String("request_id", reqID),
			attribute.String("component", "pipeline_handler"),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "fit request received",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
	)

	var req v1.FitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request decoding failed")

		h.logger.ErrorContext(ctx, "failed to decode fit request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request validation failed")

		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("pipeline.input_path", req.InputPath),
		attribute.String("pipeline.target", req.Target),
	)

	result, err := h.service.Fit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fit failed")

		h.logger.ErrorContext(ctx, "fit failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("artifact.id", result.Artifact.ID),
		attribute.Int("pipeline.rows", result.Rows),
		attribute.Int("pipeline.features", len(result.FeatureNames)),
	)

	h.logger.InfoContext(ctx, "fit request completed",
		slog.String("request_id", reqID),
		slog.String("artifact_id", result.Artifact.ID),
		slog.Int("rows", result.Rows))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// Transform handles POST /api/v1/pipeline/transform
func (h *PipelineHandler) Transform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("pipeline-handler")

	ctx, span := tracer.Start(ctx, "pipeline_handler.transform",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/pipeline/transform"),
			attribute.String("request_id", reqID),
			attribute.String("component", "pipeline_handler"),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "transform request received",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
	)

	var req v1.TransformRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request decoding failed")

		h.logger.ErrorContext(ctx, "failed to decode transform request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request validation failed")

		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("pipeline.input_path", req.InputPath),
		attribute.String("artifact.id", req.ArtifactID),
	)

	result, err := h.service.Transform(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transform failed")

		h.logger.ErrorContext(ctx, "transform failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("artifact_id", req.ArtifactID))

		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.Int("pipeline.rows", result.Rows),
		attribute.Int("pipeline.fallbacks", len(result.Fallbacks)),
	)

	h.logger.InfoContext(ctx, "transform request completed",
		slog.String("request_id", reqID),
		slog.String("artifact_id", result.ArtifactID),
		slog.Int("rows", result.Rows),
		slog.Int("fallbacks", len(result.Fallbacks)))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}
