// Package api contains API contract definitions for the tabular
// preprocessing service. Version v1 represents the current stable API
// version.
package api

// Common request parameters

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int    `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
	Sort     string `json:"sort" query:"sort" validate:"omitempty,oneof=asc desc"`
}

// Pipeline API Requests

// FitRequest represents a request to fit the preprocessing pipeline on a
// training file. The fitted mapping and imputation tables are persisted as
// an artifact; when OutputPath is set the resulting matrix is exported too.
type FitRequest struct {
	InputPath       string `json:"input_path" validate:"required"`
	Target          string `json:"target,omitempty" validate:"omitempty,column"`
	OutputPath      string `json:"output_path,omitempty"`
	Sentinel        string `json:"sentinel,omitempty"`
	IndicatorSuffix string `json:"indicator_suffix,omitempty"`
	SkipImpute      bool   `json:"skip_impute,omitempty"`
}

// TransformRequest represents a request to replay a fitted artifact against
// a new data file.
type TransformRequest struct {
	InputPath  string `json:"input_path" validate:"required"`
	ArtifactID string `json:"artifact_id" validate:"required,uuid"`
	OutputPath string `json:"output_path,omitempty"`
	Target     string `json:"target,omitempty" validate:"omitempty,column"`
}

// Artifact API Requests

// ArtifactListRequest represents a request to list stored artifacts
type ArtifactListRequest struct {
	PaginationRequest
	Target string `json:"target" query:"target"`
}

// ArtifactGetRequest represents a request for a single artifact
type ArtifactGetRequest struct {
	ArtifactID string `json:"artifact_id" param:"id" validate:"required"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
