package preprocess

import (
	"context"
	"log/slog"
	"sort"

	"tabprep/internal/dataset"
)

// Normalizer converts raw text columns to categorical columns. The level
// order is the lexicographic sort of the distinct non-missing values, so
// two runs over the same data always agree on it. Numeric, bool and
// already-categorical columns pass through untouched.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize rewrites every string column of ds as a categorical column in
// place. It never fails: a column with only missing values simply gets an
// empty level set.
func (n *Normalizer) Normalize(ctx context.Context, ds *dataset.Dataset) {
	converted := 0
	for _, col := range ds.Columns() {
		if col.Kind != dataset.KindString {
			continue
		}
		col.Levels = distinctLevels(col)
		col.Kind = dataset.KindCategorical
		converted++
	}

	n.logger.DebugContext(ctx, "normalized string columns",
		slog.Int("converted", converted),
		slog.Int("columns", ds.NumColumns()))
}

// distinctLevels collects the distinct non-missing values of a string
// column in sorted order.
func distinctLevels(col *dataset.Column) []string {
	seen := make(map[string]struct{})
	for i, v := range col.Strings {
		if col.IsMissing(i) {
			continue
		}
		seen[v] = struct{}{}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels
}
