package http

import (
	"context"

	"tabprep/pkg/contracts/domain"
)

// ArtifactStoreInterface defines the interface for artifact persistence
type ArtifactStoreInterface interface {
	List(ctx context.Context) ([]domain.ArtifactSummary, error)
	Load(ctx context.Context, id string) (*domain.PipelineArtifact, error)
	Delete(ctx context.Context, id string) error
}
