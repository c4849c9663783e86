package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

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
	input := flag.String("input", "", "dataset to transform (csv or xlsx)")
	artifactID := flag.String("artifact", "", "artifact ID produced by a previous fit")
	output := flag.String("output", "transformed.csv", "transformed matrix path (relative paths land in the output directory)")
	target := flag.String("target", "", "target column to exclude if present in the input")
	artifactsDir := flag.String("artifacts", "", "artifact directory (defaults to the configured artifacts dir)")
	flag.Parse()

	if *input == "" || *artifactID == "" {
		fmt.Fprintln(os.Stderr, "missing required -input or -artifact flag")
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

	logger.Info("Starting pipeline transform",
		slog.String("input", *input),
		slog.String("artifact_id", *artifactID),
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

	res, err := service.Transform(ctx, v1.TransformRequest{
		InputPath:  *input,
		ArtifactID: *artifactID,
		OutputPath: *output,
		Target:     *target,
	})
	if err != nil {
		logger.Error("Transform failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Transform completed",
		slog.String("artifact_id", res.ArtifactID),
		slog.Int("rows", res.Rows),
		slog.Int("features", len(res.FeatureNames)),
		slog.Int("fallback_columns", len(res.Fallbacks)))

	fmt.Printf("Transformed %d rows into %d features\n", res.Rows, len(res.FeatureNames))
	for _, fb := range res.Fallbacks {
		fmt.Printf("warning: no stored median for column %q, filled %d rows with its own median %g\n",
			fb.Column, fb.Rows, fb.Median)
	}
	if res.OutputPath != "" {
		fmt.Printf("Transformed matrix written to %s\n", res.OutputPath)
	}
}
