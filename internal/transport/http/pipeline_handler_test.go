package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "tabprep/internal/errors"
	"tabprep/internal/middleware"
	"tabprep/internal/preprocess"
	"tabprep/internal/services"
	"tabprep/internal/shared/testutil"
	v1 "tabprep/pkg/contracts/api/v1"
	"tabprep/pkg/contracts/domain"
)

type mockPipelineService struct {
	mock.Mock
}

func (m *mockPipelineService) Fit(ctx context.Context, req v1.FitRequest) (*services.FitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FitResult), args.Error(1)
}

func (m *mockPipelineService) Transform(ctx context.Context, req v1.TransformRequest) (*services.TransformResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TransformResult), args.Error(1)
}

func setupPipelineRouter(t *testing.T, svc PipelineServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(logger, errorHandler)
	handler := NewPipelineHandler(svc, validator, logger, errorHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/v1/pipeline", handler.Routes())
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPipelineHandler_Fit(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	expected := &services.FitResult{
		Artifact: domain.ArtifactSummary{
			ID:          "0b06ba12-973d-4d4e-9fc1-5a4b7c8d9e0f",
			Target:      "price",
			SourceFile:  "train.csv",
			RowCount:    4,
			ColumnCount: 3,
			Mapped:      1,
			Imputed:     1,
		},
		FeatureNames: []string{"fuel", "mileage", "mileage_na"},
		Rows:         4,
	}
	svc.On("Fit", mock.Anything, v1.FitRequest{
		InputPath: "/data/train.csv",
		Target:    "price",
	}).Return(expected, nil)

	w := postJSON(t, router, "/api/v1/pipeline/fit",
		`{"input_path": "/data/train.csv", "target": "price"}`)

	assert.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["rows"])
	assert.Len(t, data["feature_names"], 3)

	artifact := data["artifact"].(map[string]interface{})
	assert.Equal(t, expected.Artifact.ID, artifact["id"])
	assert.Equal(t, "price", artifact["target"])

	svc.AssertExpectations(t)
}

func TestPipelineHandler_Fit_InvalidJSON(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	w := postJSON(t, router, "/api/v1/pipeline/fit", `{"input_path": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "/errors/validation", body["type"])
	assert.Equal(t, "INVALID_REQUEST", body["error_code"])

	svc.AssertNotCalled(t, "Fit")
}

func TestPipelineHandler_Fit_MissingInputPath(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	w := postJSON(t, router, "/api/v1/pipeline/fit", `{"target": "price"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Contains(t, w.Body.String(), "input_path")

	svc.AssertNotCalled(t, "Fit")
}

func TestPipelineHandler_Fit_ColumnNotFound(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	svc.On("Fit", mock.Anything, mock.Anything).
		Return(nil, apierrors.NewColumnNotFoundError("horsepower"))

	w := postJSON(t, router, "/api/v1/pipeline/fit",
		`{"input_path": "/data/train.csv", "target": "horsepower"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "/errors/column-not-found", body["type"])
	assert.Equal(t, "Column Not Found", body["title"])
	assert.Equal(t, "horsepower", body["column"])
}

func TestPipelineHandler_Transform(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	artifactID := "0b06ba12-973d-4d4e-9fc1-5a4b7c8d9e0f"
	expected := &services.TransformResult{
		ArtifactID:   artifactID,
		FeatureNames: []string{"fuel", "mileage", "mileage_na"},
		Rows:         2,
		Fallbacks: []preprocess.Fallback{
			{Column: "price", Median: 4000, Rows: 1},
		},
	}
	svc.On("Transform", mock.Anything, v1.TransformRequest{
		InputPath:  "/data/new.csv",
		ArtifactID: artifactID,
	}).Return(expected, nil)

	w := postJSON(t, router, "/api/v1/pipeline/transform",
		`{"input_path": "/data/new.csv", "artifact_id": "`+artifactID+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, artifactID, data["artifact_id"])
	assert.Equal(t, float64(2), data["rows"])

	fallbacks := data["fallbacks"].([]interface{})
	require.Len(t, fallbacks, 1)
	fallback := fallbacks[0].(map[string]interface{})
	assert.Equal(t, "price", fallback["column"])
	assert.Equal(t, float64(4000), fallback["median"])

	svc.AssertExpectations(t)
}

func TestPipelineHandler_Transform_InvalidArtifactID(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	w := postJSON(t, router, "/api/v1/pipeline/transform",
		`{"input_path": "/data/new.csv", "artifact_id": "not-a-uuid"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "artifact_id")

	svc.AssertNotCalled(t, "Transform")
}

func TestPipelineHandler_Transform_ArtifactNotFound(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	artifactID := "11111111-2222-3333-4444-555555555555"
	svc.On("Transform", mock.Anything, mock.Anything).
		Return(nil, apierrors.NewNotFoundError("artifact "+artifactID))

	w := postJSON(t, router, "/api/v1/pipeline/transform",
		`{"input_path": "/data/new.csv", "artifact_id": "`+artifactID+`"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "/errors/not-found", body["type"])
}

func TestPipelineHandler_Transform_CorruptedArtifact(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	artifactID := "11111111-2222-3333-4444-555555555555"
	svc.On("Transform", mock.Anything, mock.Anything).
		Return(nil, apierrors.NewArtifactCorruptedError(artifactID, nil))

	w := postJSON(t, router, "/api/v1/pipeline/transform",
		`{"input_path": "/data/new.csv", "artifact_id": "`+artifactID+`"}`)

	assert.Equal(t, http.StatusConflict, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "/errors/artifact/corrupted", body["type"])
	assert.Equal(t, artifactID, body["artifact_id"])
}

func TestPipelineHandler_RequestIDPropagated(t *testing.T) {
	svc := new(mockPipelineService)
	router := setupPipelineRouter(t, svc)

	svc.On("Fit", mock.Anything, mock.Anything).
		Return(&services.FitResult{Rows: 1}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/fit",
		strings.NewReader(`{"input_path": "/data/train.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "fit-req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fit-req-42", w.Header().Get("X-Request-ID"))
}
