// Package dataset provides the in-memory column table that preprocessing
// stages operate on. A Dataset is an ordered collection of named, typed
// columns sharing one row count. Stages mutate columns in place; the
// container itself only grows when indicator columns are appended.
package dataset

import (
	"fmt"
	"math"
)

// Kind identifies the value representation of a Column.
type Kind uint8

const (
	// KindString holds raw text values.
	KindString Kind = iota
	// KindCategorical holds text values with a recorded level order.
	KindCategorical
	// KindNumeric holds float64 values; NaN marks a missing entry.
	KindNumeric
	// KindBool holds boolean values, used for missingness indicators.
	KindBool
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindCategorical:
		return "categorical"
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is one named column of a Dataset. Exactly one value slice is
// active, selected by Kind: Strings for KindString and KindCategorical,
// Floats for KindNumeric, Bools for KindBool. Missing entries are NaN in
// Floats; the string-backed kinds track them in the Missing mask (nil when
// the column is complete). Levels is populated for KindCategorical and
// lists the distinct non-missing values in their recorded order.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Floats  []float64
	Bools   []bool
	Missing []bool
	Levels  []string
}

// NewStringColumn builds a text column. missing may be nil when every value
// is present; otherwise it must have the same length as values.
func NewStringColumn(name string, values []string, missing []bool) *Column {
	return &Column{Name: name, Kind: KindString, Strings: values, Missing: missing}
}

// NewNumericColumn builds a float column. Missing entries are NaN.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: KindNumeric, Floats: values}
}

// NewBoolColumn builds a boolean column.
func NewBoolColumn(name string, values []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Bools: values}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindNumeric:
		return len(c.Floats)
	case KindBool:
		return len(c.Bools)
	default:
		return len(c.Strings)
	}
}

// IsMissing reports whether row i holds a missing value.
func (c *Column) IsMissing(i int) bool {
	switch c.Kind {
	case KindNumeric:
		return math.IsNaN(c.Floats[i])
	case KindBool:
		return false
	default:
		return c.Missing != nil && c.Missing[i]
	}
}

// HasMissing reports whether any row of the column is missing.
func (c *Column) HasMissing() bool {
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Bools != nil {
		out.Bools = append([]bool(nil), c.Bools...)
	}
	if c.Missing != nil {
		out.Missing = append([]bool(nil), c.Missing...)
	}
	if c.Levels != nil {
		out.Levels = append([]string(nil), c.Levels...)
	}
	return out
}

// Dataset is an ordered table of uniquely named columns with equal row
// counts. Column order is insertion order and is preserved through every
// stage, so feature positions are stable between fit and transform runs.
type Dataset struct {
	cols  []*Column
	index map[string]int
}

// New builds a dataset from the given columns, validating that names are
// unique and row counts agree.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{index: make(map[string]int, len(cols))}
	for _, col := range cols {
		if err := d.Append(col); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Rows returns the number of rows, 0 for an empty dataset.
func (d *Dataset) Rows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].Len()
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	return len(d.cols)
}

// Columns returns the columns in order. The slice is shared with the
// dataset; callers mutate cells through it but must not reorder it.
func (d *Dataset) Columns() []*Column {
	return d.cols
}

// Column returns the named column, or false when absent.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.cols))
	for i, col := range d.cols {
		names[i] = col.Name
	}
	return names
}

// Append adds a column at the end of the table.
func (d *Dataset) Append(col *Column) error {
	if col.Name == "" {
		return fmt.Errorf("dataset: column name must not be empty")
	}
	if _, exists := d.index[col.Name]; exists {
		return fmt.Errorf("dataset: duplicate column %q", col.Name)
	}
	if len(d.cols) > 0 && col.Len() != d.Rows() {
		return fmt.Errorf("dataset: column %q has %d rows, dataset has %d",
			col.Name, col.Len(), d.Rows())
	}
	d.index[col.Name] = len(d.cols)
	d.cols = append(d.cols, col)
	return nil
}

// Clone returns a deep copy of the dataset. Useful before a transform that
// may fail partway, since stages mutate in place and do not roll back.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		cols:  make([]*Column, len(d.cols)),
		index: make(map[string]int, len(d.index)),
	}
	for i, col := range d.cols {
		out.cols[i] = col.Clone()
		out.index[col.Name] = i
	}
	return out
}
