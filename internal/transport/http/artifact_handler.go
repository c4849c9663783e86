package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apierrors "tabprep/internal/errors"
	"tabprep/internal/infrastructure"
	"tabprep/internal/middleware"
)

// ArtifactHandler handles artifact management HTTP requests with RFC 7807 compliance
type ArtifactHandler struct {
	store          ArtifactStoreInterface
	queryValidator *middleware.QueryParamValidator
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewArtifactHandler creates a new artifact handler with RFC 7807 error handling
func NewArtifactHandler(store ArtifactStoreInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ArtifactHandler {
	return &ArtifactHandler{
		store:          store,
		queryValidator: middleware.NewQueryParamValidator(logger, errorHandler),
		logger:         logger.With(slog.String("component", "artifact_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the artifact routes with proper Chi patterns
func (h *ArtifactHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListArtifacts)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.ArtifactCtx)
		r.Get("/", h.GetArtifact)
		r.Delete("/", h.DeleteArtifact)
	})

	return r
}

// ArtifactCtx middleware validates the artifact ID parameter
func (h *ArtifactHandler) ArtifactCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Artifact ID must be a valid UUID"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ListArtifacts handles GET /api/v1/artifacts
func (h *ArtifactHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "listing artifacts",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	page, ok := h.queryValidator.ValidateInt(w, r, "page", 1, 10000, 1)
	if !ok {
		return
	}
	pageSize, ok := h.queryValidator.ValidateInt(w, r, "page_size", 1, 500, 50)
	if !ok {
		return
	}

	summaries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list artifacts",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		middleware.RecordSystemError(r.Context(), "list_failed", "artifact_store")
		h.errorHandler.HandleError(w, r, err)
		return
	}

	start := (page - 1) * pageSize
	if start > len(summaries) {
		start = len(summaries)
	}
	end := start + pageSize
	if end > len(summaries) {
		end = len(summaries)
	}
	pageItems := summaries[start:end]

	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      pageItems,
		"count":     len(pageItems),
		"total":     len(summaries),
		"page":      page,
		"page_size": pageSize,
	})
}

// GetArtifact handles GET /api/v1/artifacts/{id}
func (h *ArtifactHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")

	h.logger.InfoContext(r.Context(), "fetching artifact",
		slog.String("request_id", reqID),
		slog.String("artifact_id", id),
	)

	artifact, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load artifact",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("artifact_id", id),
		)
		if !apierrors.IsType(err, apierrors.ErrTypeNotFound) {
			middleware.RecordSystemError(r.Context(), "load_failed", "artifact_store")
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	infrastructure.RecordArtifactLoaded(r.Context(), middleware.GetPipelineMetricsFromContext(r.Context()))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   artifact,
	})
}

// DeleteArtifact handles DELETE /api/v1/artifacts/{id}
func (h *ArtifactHandler) DeleteArtifact(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")

	h.logger.InfoContext(r.Context(), "deleting artifact",
		slog.String("request_id", reqID),
		slog.String("artifact_id", id),
	)

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete artifact",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("artifact_id", id),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.NoContent(w, r)
}
