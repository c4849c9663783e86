package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	apperrors "tabprep/internal/errors"
)

// Matrix flattens every column of the dataset into a dense row-major
// matrix, preserving row and column order. Numeric columns contribute their
// float values (including any codes written by encoding), bool columns
// contribute 0/1. A string-backed column cannot be represented and is an
// error; run the encoding stages first.
func Matrix(d *Dataset) (*mat.Dense, []string, error) {
	rows, cols := d.Rows(), d.NumColumns()
	if cols == 0 {
		return nil, nil, apperrors.NewAppValidationError("dataset has no columns")
	}
	if rows == 0 {
		return nil, nil, apperrors.NewAppValidationError("dataset has no rows")
	}
	data := make([]float64, rows*cols)
	names := make([]string, cols)
	for j, col := range d.cols {
		names[j] = col.Name
		vals, err := columnFloats(col)
		if err != nil {
			return nil, nil, err
		}
		for i, v := range vals {
			data[i*cols+j] = v
		}
	}
	return mat.NewDense(rows, cols, data), names, nil
}

// Split separates the response column from the features, returning the
// remaining columns as a feature matrix alongside their names and the
// response as a vector. The dataset itself is left untouched, so callers
// can split against several response columns without re-running the
// pipeline. Splitting the only column of a dataset is an error since the
// feature matrix would be empty.
func Split(d *Dataset, target string) (*mat.Dense, []string, *mat.VecDense, error) {
	tcol, ok := d.Column(target)
	if !ok {
		return nil, nil, nil, apperrors.NewColumnNotFoundError(target)
	}
	if d.NumColumns() < 2 {
		return nil, nil, nil, apperrors.NewAppValidationError(
			fmt.Sprintf("cannot split %q: dataset has no feature columns", target))
	}
	if d.Rows() == 0 {
		return nil, nil, nil, apperrors.NewAppValidationError(
			fmt.Sprintf("cannot split %q: dataset has no rows", target))
	}

	yvals, err := columnFloats(tcol)
	if err != nil {
		return nil, nil, nil, err
	}

	rows, cols := d.Rows(), d.NumColumns()-1
	data := make([]float64, rows*cols)
	names := make([]string, 0, cols)
	j := 0
	for _, col := range d.cols {
		if col.Name == target {
			continue
		}
		vals, err := columnFloats(col)
		if err != nil {
			return nil, nil, nil, err
		}
		for i, v := range vals {
			data[i*cols+j] = v
		}
		names = append(names, col.Name)
		j++
	}
	return mat.NewDense(rows, cols, data), names, mat.NewVecDense(rows, yvals), nil
}

func columnFloats(col *Column) ([]float64, error) {
	switch col.Kind {
	case KindNumeric:
		return col.Floats, nil
	case KindBool:
		vals := make([]float64, len(col.Bools))
		for i, b := range col.Bools {
			if b {
				vals[i] = 1
			}
		}
		return vals, nil
	default:
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("column %q is %s, not numeric; encode it first", col.Name, col.Kind))
	}
}
