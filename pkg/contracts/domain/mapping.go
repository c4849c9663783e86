package domain

import (
	"sort"
)

const (
	// MissingCode is the integer code reserved for missing categorical
	// values. Fitted codes start at 1 so 0 never collides with a category.
	MissingCode = 0

	// DefaultSentinel is the reserved category that values unseen during
	// fitting are relabeled to before transform-mode encoding.
	DefaultSentinel = "other"

	// DefaultIndicatorSuffix is appended to a column name to form the name
	// of the missingness indicator column added during imputation.
	DefaultIndicatorSuffix = "_na"
)

// CategoryMapping is the fitted category-to-code assignment for a single
// column. Codes are dense, start at 1 and follow the lexicographic order of
// the training categories; the sentinel category receives the next free
// code. MissingCode is never a value of the mapping.
type CategoryMapping map[string]int

// Code returns the code recorded for value and whether the value is mapped.
func (m CategoryMapping) Code(value string) (int, bool) {
	code, ok := m[value]
	return code, ok
}

// Categories returns the mapped categories ordered by their codes.
func (m CategoryMapping) Categories() []string {
	cats := make([]string, 0, len(m))
	for cat := range m {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return m[cats[i]] < m[cats[j]] })
	return cats
}

// MaxCode returns the highest code in the mapping, or MissingCode when the
// mapping is empty.
func (m CategoryMapping) MaxCode() int {
	max := MissingCode
	for _, code := range m {
		if code > max {
			max = code
		}
	}
	return max
}

// Clone returns an independent copy of the mapping.
func (m CategoryMapping) Clone() CategoryMapping {
	if m == nil {
		return nil
	}
	out := make(CategoryMapping, len(m))
	for cat, code := range m {
		out[cat] = code
	}
	return out
}

// MappingTable holds the fitted CategoryMapping of every encoded column,
// keyed by column name. A table is built exactly once during fitting and is
// read-only afterwards; transforms never add, remove or renumber entries.
type MappingTable map[string]CategoryMapping

// Columns returns the mapped column names in sorted order.
func (t MappingTable) Columns() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent deep copy of the table.
func (t MappingTable) Clone() MappingTable {
	if t == nil {
		return nil
	}
	out := make(MappingTable, len(t))
	for name, m := range t {
		out[name] = m.Clone()
	}
	return out
}

// ImputationTable holds the fill statistic recorded for every imputed
// column, keyed by column name. Columns without missing values during
// fitting are absent. Like MappingTable, it is immutable after fitting.
type ImputationTable map[string]float64

// Columns returns the imputed column names in sorted order.
func (t ImputationTable) Columns() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the table.
func (t ImputationTable) Clone() ImputationTable {
	if t == nil {
		return nil
	}
	out := make(ImputationTable, len(t))
	for name, v := range t {
		out[name] = v
	}
	return out
}
