// Package exporter writes processed pipeline output to CSV files.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility.
//
// MatrixExporter: Writes a feature matrix and optional target vector as a
// single CSV file, one row per observation with the target in the last
// column.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter("/path/to/output", logger)
//	matrix := exporter.NewMatrixExporter(writer, logger)
//
//	err := matrix.Export(ctx, "train_processed.csv", exporter.MatrixExport{
//	    Features:     result.Features,
//	    FeatureNames: result.FeatureNames,
//	    Target:       result.Target,
//	    TargetName:   "price",
//	})
package exporter
