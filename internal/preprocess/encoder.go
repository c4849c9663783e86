package preprocess

import (
	"context"
	"log/slog"

	"tabprep/internal/dataset"
	apperrors "tabprep/internal/errors"
	"tabprep/pkg/contracts/domain"
)

// Encoder replaces categorical values with integer codes. In fit mode it
// builds a fresh CategoryMapping per column; in transform mode it reuses a
// fitted MappingTable verbatim and never invents codes. Encoded columns
// become numeric, with domain.MissingCode standing in for missing cells.
type Encoder struct {
	logger   *slog.Logger
	sentinel string
}

// EncoderConfig holds configuration options for the Encoder.
type EncoderConfig struct {
	// Sentinel is the reserved category absorbing values unseen during
	// fitting. Defaults to domain.DefaultSentinel.
	Sentinel string
}

// NewEncoder creates an encoder with the given configuration.
func NewEncoder(logger *slog.Logger, config EncoderConfig) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Sentinel == "" {
		config.Sentinel = domain.DefaultSentinel
	}
	return &Encoder{logger: logger, sentinel: config.Sentinel}
}

// Encode converts the string-backed columns of ds to integer codes in
// place. A nil table selects fit mode: every categorical column gets a new
// mapping with dense codes following its level order, the sentinel category
// takes the next free code, and the built table is returned. A non-nil
// table selects transform mode: only columns named in the table are
// encoded, using exactly the fitted codes, and the same table is returned.
// A transform-mode value absent from its mapping is an error; run Reconcile
// first.
func (e *Encoder) Encode(ctx context.Context, ds *dataset.Dataset, table domain.MappingTable) (domain.MappingTable, error) {
	if table == nil {
		return e.fit(ctx, ds)
	}
	return table, e.transform(ctx, ds, table)
}

func (e *Encoder) fit(ctx context.Context, ds *dataset.Dataset) (domain.MappingTable, error) {
	table := make(domain.MappingTable)
	for _, col := range ds.Columns() {
		if !stringBacked(col) {
			continue
		}
		table[col.Name] = e.fitColumn(col)
	}

	e.logger.InfoContext(ctx, "fitted category mappings",
		slog.Int("columns", len(table)),
		slog.String("sentinel", e.sentinel))
	return table, nil
}

// fitColumn assigns codes 1..K in level order, reserves the next code for
// the sentinel unless the sentinel is itself a training category, and
// rewrites the column as numeric codes.
func (e *Encoder) fitColumn(col *dataset.Column) domain.CategoryMapping {
	levels := col.Levels
	if levels == nil {
		levels = distinctLevels(col)
	}

	mapping := make(domain.CategoryMapping, len(levels)+1)
	for i, level := range levels {
		mapping[level] = i + 1
	}
	if _, ok := mapping[e.sentinel]; !ok {
		mapping[e.sentinel] = len(levels) + 1
	}

	codes := make([]float64, col.Len())
	for i, v := range col.Strings {
		if col.IsMissing(i) {
			codes[i] = domain.MissingCode
			continue
		}
		codes[i] = float64(mapping[v])
	}
	toNumericCodes(col, codes)
	return mapping
}

func (e *Encoder) transform(ctx context.Context, ds *dataset.Dataset, table domain.MappingTable) error {
	encoded := 0
	for _, name := range table.Columns() {
		col, ok := ds.Column(name)
		if !ok || !stringBacked(col) {
			continue
		}

		mapping := table[name]
		codes := make([]float64, col.Len())
		for i, v := range col.Strings {
			if col.IsMissing(i) {
				codes[i] = domain.MissingCode
				continue
			}
			code, found := mapping.Code(v)
			if !found {
				return apperrors.NewUnmappedCategoryError(name, v)
			}
			codes[i] = float64(code)
		}
		toNumericCodes(col, codes)
		encoded++
	}

	e.logger.InfoContext(ctx, "encoded columns with fitted mappings",
		slog.Int("columns", encoded),
		slog.Int("table_columns", len(table)))
	return nil
}

// Reconcile relabels every cell whose value has no entry in its column's
// fitted mapping to the sentinel category, so a later transform-mode Encode
// can assign the sentinel's code. Only columns present in both the dataset
// and the table are touched; missing cells stay missing. Returns the number
// of relabeled cells.
func (e *Encoder) Reconcile(ctx context.Context, ds *dataset.Dataset, table domain.MappingTable) int {
	relabeled := 0
	for _, name := range table.Columns() {
		col, ok := ds.Column(name)
		if !ok || !stringBacked(col) {
			continue
		}

		mapping := table[name]
		changed := false
		for i, v := range col.Strings {
			if col.IsMissing(i) {
				continue
			}
			if _, found := mapping.Code(v); !found {
				col.Strings[i] = e.sentinel
				relabeled++
				changed = true
			}
		}
		if changed && col.Kind == dataset.KindCategorical {
			col.Levels = distinctLevels(col)
		}
	}

	if relabeled > 0 {
		e.logger.InfoContext(ctx, "relabeled unseen categories to sentinel",
			slog.Int("cells", relabeled),
			slog.String("sentinel", e.sentinel))
	}
	return relabeled
}

func stringBacked(col *dataset.Column) bool {
	return col.Kind == dataset.KindString || col.Kind == dataset.KindCategorical
}

// toNumericCodes swaps a string-backed column's storage for code values.
func toNumericCodes(col *dataset.Column, codes []float64) {
	col.Kind = dataset.KindNumeric
	col.Floats = codes
	col.Strings = nil
	col.Missing = nil
	col.Levels = nil
}
