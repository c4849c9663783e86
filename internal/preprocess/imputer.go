package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"tabprep/internal/dataset"
	"tabprep/pkg/contracts/domain"
)

// Imputer fills missing numeric values with medians. Fit mode records the
// median of every column that has missing entries; transform mode replays
// recorded medians without recomputing them. Every filled column gains a
// boolean companion column flagging which rows were originally missing, so
// downstream models can tell imputed values from observed ones.
type Imputer struct {
	logger *slog.Logger
	suffix string
}

// ImputerConfig holds configuration options for the Imputer.
type ImputerConfig struct {
	// IndicatorSuffix is appended to a column name to form its missingness
	// indicator's name. Defaults to domain.DefaultIndicatorSuffix.
	IndicatorSuffix string
}

// NewImputer creates an imputer with the given configuration.
func NewImputer(logger *slog.Logger, config ImputerConfig) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.IndicatorSuffix == "" {
		config.IndicatorSuffix = domain.DefaultIndicatorSuffix
	}
	return &Imputer{logger: logger, suffix: config.IndicatorSuffix}
}

// Fallback records a transform-time deviation: a column had missing values
// but no fitted statistic, so its own median was used instead. Fallbacks
// are reported, logged and counted, never silently absorbed.
type Fallback struct {
	Column string  `json:"column"`
	Median float64 `json:"median"`
	Rows   int     `json:"rows"`
}

// Impute fills missing numeric cells in place. A nil table selects fit
// mode: each numeric column with missing entries has its median computed,
// recorded in a new table and filled in, and gains an indicator column. A
// non-nil table selects transform mode: columns named in the table are
// filled with their recorded medians and always gain the indicator, even
// when nothing is missing, keeping the output schema identical to the fit
// run. A transform-time column with missing values but no recorded median
// falls back to its own median; the deviation is returned, not raised.
//
// Indicator columns are appended in dataset column order in both modes, so
// feature positions stay aligned between fit and transform. Columns whose
// values are all missing have no defined median: they are left unfilled,
// logged, and excluded from the table.
func (im *Imputer) Impute(ctx context.Context, ds *dataset.Dataset, table domain.ImputationTable) (domain.ImputationTable, []Fallback, error) {
	fitMode := table == nil
	if fitMode {
		table = make(domain.ImputationTable)
	}

	var fallbacks []Fallback
	var indicators []*dataset.Column

	for _, col := range ds.Columns() {
		if col.Kind != dataset.KindNumeric {
			continue
		}

		missing := missingMask(col.Floats)
		count := countTrue(missing)
		recorded, inTable := table[col.Name]

		var filler float64
		switch {
		case fitMode && count > 0:
			med, ok := median(col.Floats)
			if !ok {
				im.logger.WarnContext(ctx, "column has no observed values, median undefined",
					slog.String("column", col.Name))
				indicators = append(indicators, indicatorColumn(col.Name+im.suffix, missing))
				continue
			}
			filler = med
			table[col.Name] = med

		case !fitMode && inTable:
			filler = recorded

		case !fitMode && count > 0:
			med, ok := median(col.Floats)
			if !ok {
				im.logger.WarnContext(ctx, "column has no observed values, median undefined",
					slog.String("column", col.Name))
				indicators = append(indicators, indicatorColumn(col.Name+im.suffix, missing))
				continue
			}
			filler = med
			fallbacks = append(fallbacks, Fallback{Column: col.Name, Median: med, Rows: count})
			im.logger.WarnContext(ctx, "no fitted statistic for column, falling back to its own median",
				slog.String("column", col.Name),
				slog.Float64("median", med),
				slog.Int("missing_rows", count))

		default:
			// Complete column that fitting never saw missing: nothing to do.
			continue
		}

		for i, m := range missing {
			if m {
				col.Floats[i] = filler
			}
		}
		indicators = append(indicators, indicatorColumn(col.Name+im.suffix, missing))
	}

	for _, ind := range indicators {
		if err := ds.Append(ind); err != nil {
			return nil, nil, fmt.Errorf("appending indicator column: %w", err)
		}
	}

	im.logger.InfoContext(ctx, "imputed missing values",
		slog.Bool("fit", fitMode),
		slog.Int("indicator_columns", len(indicators)),
		slog.Int("fallbacks", len(fallbacks)))
	return table, fallbacks, nil
}

func indicatorColumn(name string, missing []bool) *dataset.Column {
	return dataset.NewBoolColumn(name, missing)
}

func missingMask(values []float64) []bool {
	mask := make([]bool, len(values))
	for i, v := range values {
		mask[i] = math.IsNaN(v)
	}
	return mask
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}

// median returns the middle of the sorted observed values, averaging the
// two middles for even counts. The second return is false when the column
// has no observed values at all.
func median(values []float64) (float64, bool) {
	obs := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}
	if len(obs) == 0 {
		return 0, false
	}
	sort.Float64s(obs)
	mid := len(obs) / 2
	if len(obs)%2 == 1 {
		return obs[mid], true
	}
	return (obs[mid-1] + obs[mid]) / 2, true
}
