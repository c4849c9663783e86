package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tabprep/internal/dataset"
	apperrors "tabprep/internal/errors"
)

// Loader reads tabular files into datasets. The first row of every file is
// the header; each subsequent row is one observation. Column types are
// inferred from the cell values: a column is numeric when every observed
// cell parses as a float, boolean when every cell is true/false and none
// are missing, and string-backed otherwise.
type Loader struct {
	logger  *slog.Logger
	missing map[string]struct{}
}

// Config controls loading behavior.
type Config struct {
	// MissingMarkers lists cell values treated as missing in addition to
	// the empty string.
	MissingMarkers []string
}

// New creates a loader. A nil logger falls back to slog.Default().
func New(logger *slog.Logger, cfg Config) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	missing := make(map[string]struct{}, len(cfg.MissingMarkers))
	for _, marker := range cfg.MissingMarkers {
		missing[marker] = struct{}{}
	}

	return &Loader{logger: logger, missing: missing}
}

// Load reads a dataset from path, dispatching on the file extension.
// Supported formats are CSV (.csv) and Excel (.xlsx, .xlsm, .xls).
func (l *Loader) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return l.LoadCSV(ctx, path)
	case ".xlsx", ".xlsm", ".xls":
		return l.LoadExcel(ctx, path)
	default:
		return nil, apperrors.NewParsingError(fmt.Sprintf("unsupported file format: %s", filepath.Ext(path)), nil)
	}
}

// LoadCSV reads a CSV file into a dataset.
func (l *Loader) LoadCSV(ctx context.Context, path string) (*dataset.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("dataset file " + path)
		}
		return nil, apperrors.NewStorageError("failed to open CSV file", err)
	}
	defer file.Close()

	return l.ReadCSV(ctx, file, filepath.Base(path))
}

// ReadCSV reads CSV data from r into a dataset. name is used for logging
// and error reporting only.
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader, name string) (*dataset.Dataset, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read CSV records from %s", name), err)
	}

	return l.fromRows(ctx, name, rows)
}

// LoadExcel reads the active sheet of an Excel workbook into a dataset.
func (l *Loader) LoadExcel(ctx context.Context, path string) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("dataset file " + path)
		}
		return nil, apperrors.NewParsingError("failed to open Excel file", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook contains no sheets", nil)
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}

	l.logger.DebugContext(ctx, "reading Excel sheet",
		slog.String("file", filepath.Base(path)),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	return l.fromRows(ctx, filepath.Base(path), rows)
}

// fromRows builds a dataset from raw string rows. The first row is the
// header. Excel rows can be ragged, so short rows are padded with empty
// cells before inference.
func (l *Loader) fromRows(ctx context.Context, name string, rows [][]string) (*dataset.Dataset, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s is empty", name), nil)
	}
	if len(rows) == 1 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s has a header but no data rows", name), nil)
	}

	header := rows[0]
	if len(header) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s has an empty header row", name), nil)
	}

	seen := make(map[string]struct{}, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s: header cell %d is empty", name, i+1), nil)
		}
		if _, dup := seen[h]; dup {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s: duplicate column %q", name, h), nil)
		}
		seen[h] = struct{}{}
		names[i] = h
	}

	data := rows[1:]
	cols := make([]*dataset.Column, len(names))
	for j, colName := range names {
		cells := make([]string, len(data))
		missing := make([]bool, len(data))
		for i, row := range data {
			var cell string
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			cells[i] = cell
			missing[i] = l.isMissing(cell)
		}
		cols[j] = inferColumn(colName, cells, missing)
	}

	ds, err := dataset.New(cols...)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: invalid dataset", name), err)
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("file", name),
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", ds.NumColumns()))

	return ds, nil
}

// isMissing reports whether a trimmed cell value denotes a missing entry.
func (l *Loader) isMissing(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := l.missing[cell]
	return ok
}

// inferColumn picks the narrowest type that fits every observed cell.
func inferColumn(name string, cells []string, missing []bool) *dataset.Column {
	if isNumeric(cells, missing) {
		values := make([]float64, len(cells))
		for i, cell := range cells {
			if missing[i] {
				values[i] = math.NaN()
				continue
			}
			values[i], _ = strconv.ParseFloat(cell, 64)
		}
		return dataset.NewNumericColumn(name, values)
	}

	if isBool(cells, missing) {
		values := make([]bool, len(cells))
		for i, cell := range cells {
			values[i] = strings.EqualFold(cell, "true")
		}
		return dataset.NewBoolColumn(name, values)
	}

	return dataset.NewStringColumn(name, cells, missing)
}

// isNumeric reports whether every observed cell parses as a float. A column
// with no observed cells is not numeric.
func isNumeric(cells []string, missing []bool) bool {
	observed := false
	for i, cell := range cells {
		if missing[i] {
			continue
		}
		observed = true
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
	}
	return observed
}

// isBool reports whether every cell is a true/false literal with none
// missing. Booleans have no missing representation, so a gappy flag column
// stays string-backed and is encoded like any other categorical.
func isBool(cells []string, missing []bool) bool {
	if len(cells) == 0 {
		return false
	}
	for i, cell := range cells {
		if missing[i] {
			return false
		}
		if !strings.EqualFold(cell, "true") && !strings.EqualFold(cell, "false") {
			return false
		}
	}
	return true
}
