package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tabprep/internal/artifacts"
	"tabprep/internal/config"
	"tabprep/internal/exporter"
	"tabprep/internal/infrastructure"
	"tabprep/internal/loader"
	"tabprep/internal/services"
	"tabprep/internal/validation"
	v1 "tabprep/pkg/contracts/api/v1"
)

func main() {
	input := flag.String("input", "", "training dataset to fit on (csv or xlsx)")
	target := flag.String("target", "", "target column excluded from the feature matrix")
	output := flag.String("output", "processed.csv", "processed matrix path (relative paths land in the output directory)")
	artifactsDir := flag.String("artifacts", "", "artifact directory (defaults to the configured artifacts dir)")
	sentinel := flag.String("sentinel", "", "category reserved for unseen values (defaults to configuration)")
	indicatorSuffix := flag.String("indicator-suffix", "", "suffix for missingness indicator columns (defaults to configuration)")
	skipImpute := flag.Bool("skip-impute", false, "skip median imputation and keep rows as loaded")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing required -input flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *artifactsDir == "" {
		*artifactsDir = cfg.Paths.ArtifactsDir
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("Failed to create required directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting pipeline fit",
		slog.String("input", *input),
		slog.String("target", *target),
		slog.String("output", *output),
		slog.String("artifacts_dir", *artifactsDir))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateDatasetFile(*input); err != nil {
		logger.Error("Input validation failed", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(cfg.Paths.OutputDir); err != nil {
		logger.Error("Output directory validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := artifacts.NewStore(*artifactsDir, logger)
	if err != nil {
		logger.Error("Failed to open artifact store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	service := services.NewPipelineService(
		loader.New(logger, loader.Config{MissingMarkers: cfg.Pipeline.MissingMarkers}),
		store,
		exporter.NewMatrixExporter(exporter.NewCSVWriter(cfg.Paths.OutputDir, logger), logger),
		cfg.Pipeline,
		logger,
	)

	// Tag the run so every log line carries the same trace_id
	ctx := infrastructure.EnsureTraceID(context.Background())

	res, err := service.Fit(ctx, v1.FitRequest{
		InputPath:       *input,
		Target:          *target,
		OutputPath:      *output,
		Sentinel:        *sentinel,
		IndicatorSuffix: *indicatorSuffix,
		SkipImpute:      *skipImpute,
	})
	if err != nil {
		logger.Error("Fit failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Fit completed",
		slog.String("artifact_id", res.Artifact.ID),
		slog.Int("rows", res.Rows),
		slog.Int("features", len(res.FeatureNames)),
		slog.Int("mapped_columns", res.Artifact.Mapped),
		slog.Int("imputed_columns", res.Artifact.Imputed))

	fmt.Printf("Fitted %d rows into %d features\n", res.Rows, len(res.FeatureNames))
	fmt.Printf("Features: %s\n", strings.Join(res.FeatureNames, ", "))
	if res.OutputPath != "" {
		fmt.Printf("Processed matrix written to %s\n", res.OutputPath)
	}
	fmt.Printf("Artifact ID: %s\n", res.Artifact.ID)
}
