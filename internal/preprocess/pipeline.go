package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"tabprep/internal/dataset"
	"tabprep/pkg/contracts/domain"
)

// Config holds configuration options for a Pipeline.
type Config struct {
	// Sentinel is the reserved category for values unseen during fitting.
	Sentinel string
	// IndicatorSuffix names missingness indicator columns.
	IndicatorSuffix string
}

// Pipeline chains the preprocessing stages into one consistent run:
// normalize, reconcile (transform mode only), encode, impute, split. The
// same Pipeline value serves both fitting and transforming; the presence of
// fitted tables in Options selects the mode per stage.
type Pipeline struct {
	logger     *slog.Logger
	normalizer *Normalizer
	encoder    *Encoder
	imputer    *Imputer
	tracer     *PipelineTracer
}

// New creates a pipeline with the given configuration.
func New(logger *slog.Logger, config Config) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Sentinel == "" {
		config.Sentinel = domain.DefaultSentinel
	}
	if config.IndicatorSuffix == "" {
		config.IndicatorSuffix = domain.DefaultIndicatorSuffix
	}
	return &Pipeline{
		logger:     logger,
		normalizer: NewNormalizer(logger),
		encoder:    NewEncoder(logger, EncoderConfig{Sentinel: config.Sentinel}),
		imputer:    NewImputer(logger, ImputerConfig{IndicatorSuffix: config.IndicatorSuffix}),
	}
}

// WithTracer attaches OpenTelemetry instrumentation to the pipeline and
// returns it for chaining. A pipeline without a tracer works identically
// but records nothing.
func (p *Pipeline) WithTracer(tracer *PipelineTracer) *Pipeline {
	p.tracer = tracer
	return p
}

// Options selects what a Process run does. Nil tables mean fit mode for the
// corresponding stage; fitted tables mean transform mode and are reused
// verbatim. An empty Target skips the split, returning the whole dataset as
// the feature matrix.
type Options struct {
	Target      string
	Mappings    domain.MappingTable
	Imputations domain.ImputationTable

	// SkipImpute leaves missing numeric values in place. Encoding still
	// runs; indicator columns are not added.
	SkipImpute bool
}

// Result carries everything a pipeline run produces. Mappings and
// Imputations are the tables the run used: newly built in fit mode, the
// caller's own in transform mode.
type Result struct {
	Features     *mat.Dense
	FeatureNames []string
	Target       *mat.VecDense
	Mappings     domain.MappingTable
	Imputations  domain.ImputationTable
	Fallbacks    []Fallback
	Rows         int
}

// Fit learns mappings and imputation statistics from ds and returns the
// processed matrices together with the fitted tables.
func (p *Pipeline) Fit(ctx context.Context, ds *dataset.Dataset, target string) (*Result, error) {
	return p.Process(ctx, ds, Options{Target: target})
}

// Transform replays previously fitted tables on ds. Unseen categories are
// absorbed by the sentinel; fresh missing columns fall back to their own
// medians and are reported in the result.
func (p *Pipeline) Transform(ctx context.Context, ds *dataset.Dataset, target string, mappings domain.MappingTable, imputations domain.ImputationTable) (*Result, error) {
	return p.Process(ctx, ds, Options{Target: target, Mappings: mappings, Imputations: imputations})
}

// Process runs the full stage chain over ds, mutating it in place. A failed
// stage returns immediately and leaves the dataset partially transformed;
// callers that need to retry should keep a Clone of the input.
func (p *Pipeline) Process(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	mode := runMode(opts)
	start := time.Now()
	ctx, span := p.tracer.StartRun(ctx, mode, ds.Rows(), ds.NumColumns())
	defer span.End()

	p.logger.InfoContext(ctx, "pipeline run started",
		slog.String("mode", mode),
		slog.String("target", opts.Target),
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", ds.NumColumns()))

	res, err := p.run(ctx, ds, opts, mode)
	p.tracer.EndRun(ctx, span, mode, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "pipeline run failed",
			slog.String("mode", mode),
			slog.String("error", err.Error()))
		return nil, err
	}

	p.logger.InfoContext(ctx, "pipeline run completed",
		slog.String("mode", mode),
		slog.Int("rows", res.Rows),
		slog.Int("features", len(res.FeatureNames)),
		slog.Int("mapped_columns", len(res.Mappings)),
		slog.Int("imputed_columns", len(res.Imputations)),
		slog.Int("fallbacks", len(res.Fallbacks)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, ds *dataset.Dataset, opts Options, mode string) (*Result, error) {
	_ = p.stage(ctx, mode, "normalize", func() error {
		p.normalizer.Normalize(ctx, ds)
		return nil
	})

	if opts.Mappings != nil {
		_ = p.stage(ctx, mode, "reconcile", func() error {
			p.encoder.Reconcile(ctx, ds, opts.Mappings)
			return nil
		})
	}

	var mappings domain.MappingTable
	if err := p.stage(ctx, mode, "encode", func() error {
		var err error
		mappings, err = p.encoder.Encode(ctx, ds, opts.Mappings)
		return err
	}); err != nil {
		return nil, fmt.Errorf("encode stage: %w", err)
	}

	imputations := opts.Imputations
	var fallbacks []Fallback
	if !opts.SkipImpute {
		if err := p.stage(ctx, mode, "impute", func() error {
			var err error
			imputations, fallbacks, err = p.imputer.Impute(ctx, ds, opts.Imputations)
			return err
		}); err != nil {
			return nil, fmt.Errorf("impute stage: %w", err)
		}
		for _, fb := range fallbacks {
			p.tracer.RecordFallback(ctx, fb.Column)
		}
	}

	res := &Result{
		Mappings:    mappings,
		Imputations: imputations,
		Fallbacks:   fallbacks,
		Rows:        ds.Rows(),
	}

	if err := p.stage(ctx, mode, "split", func() error {
		var err error
		if opts.Target == "" {
			res.Features, res.FeatureNames, err = dataset.Matrix(ds)
			return err
		}
		res.Features, res.FeatureNames, res.Target, err = dataset.Split(ds, opts.Target)
		return err
	}); err != nil {
		return nil, fmt.Errorf("split stage: %w", err)
	}

	return res, nil
}

// stage wraps one pipeline stage in a span and duration metric.
func (p *Pipeline) stage(ctx context.Context, mode, name string, fn func() error) error {
	start := time.Now()
	ctx, span := p.tracer.StartStage(ctx, mode, name)
	err := fn()
	p.tracer.EndStage(ctx, span, mode, name, time.Since(start), err)
	return err
}

func runMode(opts Options) string {
	if opts.Mappings != nil || opts.Imputations != nil {
		return "transform"
	}
	return "fit"
}
