package http

import (
	"context"

	"tabprep/internal/services"
	v1 "tabprep/pkg/contracts/api/v1"
)

// PipelineServiceInterface defines the interface for fit and transform operations
type PipelineServiceInterface interface {
	Fit(ctx context.Context, req v1.FitRequest) (*services.FitResult, error)
	Transform(ctx context.Context, req v1.TransformRequest) (*services.TransformResult, error)
}
