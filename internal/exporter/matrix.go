package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	apperrors "tabprep/internal/errors"
)

// MatrixExport describes one processed dataset to write out.
type MatrixExport struct {
	Features     *mat.Dense
	FeatureNames []string
	Target       *mat.VecDense
	TargetName   string
}

// MatrixExporter writes a feature matrix and optional target vector as a
// single CSV file, one row per observation with the target last.
type MatrixExporter struct {
	writer *CSVWriter
	logger *slog.Logger
}

// NewMatrixExporter creates a matrix exporter on top of a CSV writer.
func NewMatrixExporter(writer *CSVWriter, logger *slog.Logger) *MatrixExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixExporter{writer: writer, logger: logger}
}

// Export streams the matrix to filePath. The header row holds the feature
// names followed by the target name when a target vector is present.
func (e *MatrixExporter) Export(ctx context.Context, filePath string, export MatrixExport) error {
	if export.Features == nil {
		return apperrors.NewAppValidationError("export requires a feature matrix")
	}

	rows, cols := export.Features.Dims()
	if len(export.FeatureNames) != cols {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("feature names (%d) do not match matrix columns (%d)", len(export.FeatureNames), cols))
	}

	headers := make([]string, 0, cols+1)
	headers = append(headers, export.FeatureNames...)

	hasTarget := export.Target != nil
	if hasTarget {
		if export.Target.Len() != rows {
			return apperrors.NewAppValidationError(
				fmt.Sprintf("target length (%d) does not match matrix rows (%d)", export.Target.Len(), rows))
		}
		name := export.TargetName
		if name == "" {
			name = "target"
		}
		headers = append(headers, name)
	}

	stream, err := e.writer.CreateStreamWriter(filePath, headers)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	record := make([]string, len(headers))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = formatFloat(export.Features.At(i, j))
		}
		if hasTarget {
			record[cols] = formatFloat(export.Target.AtVec(i))
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to finalize output file: %w", err)
	}

	e.logger.InfoContext(ctx, "matrix exported",
		slog.String("file_path", filePath),
		slog.Int("rows", rows),
		slog.Int("features", cols),
		slog.Bool("with_target", hasTarget))

	return nil
}
