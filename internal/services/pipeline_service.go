package services

import (
	"context"
	"log/slog"
	"path/filepath"

	"tabprep/internal/artifacts"
	"tabprep/internal/config"
	"tabprep/internal/exporter"
	"tabprep/internal/infrastructure"
	"tabprep/internal/loader"
	"tabprep/internal/preprocess"
	v1 "tabprep/pkg/contracts/api/v1"
	"tabprep/pkg/contracts/domain"
)

// PipelineService ties the preprocessing pipeline to its storage and export
// boundaries: it loads datasets, runs fits and transforms, persists fitted
// artifacts and optionally exports the resulting matrices.
type PipelineService struct {
	loader   *loader.Loader
	store    *artifacts.Store
	exporter *exporter.MatrixExporter
	defaults config.PipelineConfig
	tracer   *preprocess.PipelineTracer
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
}

// FitResult is the outcome of a fit run.
type FitResult struct {
	Artifact     domain.ArtifactSummary `json:"artifact"`
	FeatureNames []string               `json:"feature_names"`
	Rows         int                    `json:"rows"`
	OutputPath   string                 `json:"output_path,omitempty"`
}

// TransformResult is the outcome of a transform run. Fallbacks lists the
// columns whose recorded imputation value was missing and had to be derived
// from the incoming data.
type TransformResult struct {
	ArtifactID   string                `json:"artifact_id"`
	FeatureNames []string              `json:"feature_names"`
	Rows         int                   `json:"rows"`
	Fallbacks    []preprocess.Fallback `json:"fallbacks,omitempty"`
	OutputPath   string                `json:"output_path,omitempty"`
}

// NewPipelineService creates a pipeline service.
func NewPipelineService(ld *loader.Loader, store *artifacts.Store, exp *exporter.MatrixExporter, defaults config.PipelineConfig, logger *slog.Logger) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{
		loader:   ld,
		store:    store,
		exporter: exp,
		defaults: defaults,
		logger:   logger.With(slog.String("service", "pipeline")),
	}
}

// SetTracer attaches OpenTelemetry instrumentation to pipeline runs.
func (s *PipelineService) SetTracer(tracer *preprocess.PipelineTracer) {
	s.tracer = tracer
}

// SetMetrics sets the metrics instruments used for artifact accounting.
func (s *PipelineService) SetMetrics(metrics *infrastructure.PipelineMetrics) {
	s.metrics = metrics
}

// Fit loads the training file, fits the pipeline on it and persists the
// fitted tables as a new artifact. When the request names an output path the
// processed matrix is exported there as CSV.
func (s *PipelineService) Fit(ctx context.Context, req v1.FitRequest) (*FitResult, error) {
	ds, err := s.loader.Load(ctx, req.InputPath)
	if err != nil {
		return nil, err
	}
	columnCount := ds.NumColumns()

	sentinel, suffix := s.effectiveConfig(req.Sentinel, req.IndicatorSuffix)
	pipe := s.newPipeline(sentinel, suffix)

	res, err := pipe.Process(ctx, ds, preprocess.Options{
		Target:     req.Target,
		SkipImpute: req.SkipImpute,
	})
	if err != nil {
		return nil, err
	}

	artifact := &domain.PipelineArtifact{
		Target:          req.Target,
		SourceFile:      filepath.Base(req.InputPath),
		RowCount:        res.Rows,
		ColumnCount:     columnCount,
		Sentinel:        sentinel,
		IndicatorSuffix: suffix,
		Mappings:        res.Mappings,
		Imputations:     res.Imputations,
	}
	if err := s.store.Save(ctx, artifact); err != nil {
		return nil, err
	}
	infrastructure.RecordArtifactSaved(ctx, s.metrics)

	out := &FitResult{
		Artifact:     artifact.Summary(),
		FeatureNames: res.FeatureNames,
		Rows:         res.Rows,
	}

	if req.OutputPath != "" {
		if err := s.export(ctx, req.OutputPath, req.Target, res); err != nil {
			return nil, err
		}
		out.OutputPath = req.OutputPath
	}

	s.logger.InfoContext(ctx, "fit completed",
		slog.String("artifact_id", artifact.ID),
		slog.String("source", artifact.SourceFile),
		slog.Int("rows", res.Rows),
		slog.Int("features", len(res.FeatureNames)))
	return out, nil
}

// Transform loads the stored artifact and replays its tables on a new data
// file. The split only runs when the request names a target column; batch
// scoring data usually has none.
func (s *PipelineService) Transform(ctx context.Context, req v1.TransformRequest) (*TransformResult, error) {
	artifact, err := s.store.Load(ctx, req.ArtifactID)
	if err != nil {
		return nil, err
	}
	infrastructure.RecordArtifactLoaded(ctx, s.metrics)

	ds, err := s.loader.Load(ctx, req.InputPath)
	if err != nil {
		return nil, err
	}

	sentinel, suffix := s.effectiveConfig(artifact.Sentinel, artifact.IndicatorSuffix)
	pipe := s.newPipeline(sentinel, suffix)

	res, err := pipe.Process(ctx, ds, preprocess.Options{
		Target:      req.Target,
		Mappings:    artifact.Mappings,
		Imputations: artifact.Imputations,
	})
	if err != nil {
		return nil, err
	}

	out := &TransformResult{
		ArtifactID:   artifact.ID,
		FeatureNames: res.FeatureNames,
		Rows:         res.Rows,
		Fallbacks:    res.Fallbacks,
	}

	if req.OutputPath != "" {
		if err := s.export(ctx, req.OutputPath, req.Target, res); err != nil {
			return nil, err
		}
		out.OutputPath = req.OutputPath
	}

	s.logger.InfoContext(ctx, "transform completed",
		slog.String("artifact_id", artifact.ID),
		slog.Int("rows", res.Rows),
		slog.Int("fallbacks", len(res.Fallbacks)))
	return out, nil
}

func (s *PipelineService) newPipeline(sentinel, suffix string) *preprocess.Pipeline {
	pipe := preprocess.New(s.logger, preprocess.Config{
		Sentinel:        sentinel,
		IndicatorSuffix: suffix,
	})
	if s.tracer != nil {
		pipe.WithTracer(s.tracer)
	}
	return pipe
}

// effectiveConfig resolves per-run overrides against the configured
// defaults.
func (s *PipelineService) effectiveConfig(sentinel, suffix string) (string, string) {
	if sentinel == "" {
		sentinel = s.defaults.Sentinel
	}
	if suffix == "" {
		suffix = s.defaults.IndicatorSuffix
	}
	return sentinel, suffix
}

func (s *PipelineService) export(ctx context.Context, path, targetName string, res *preprocess.Result) error {
	return s.exporter.Export(ctx, path, exporter.MatrixExport{
		Features:     res.Features,
		FeatureNames: res.FeatureNames,
		Target:       res.Target,
		TargetName:   targetName,
	})
}
