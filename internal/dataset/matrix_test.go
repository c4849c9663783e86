package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tabprep/internal/errors"
)

func TestMatrix(t *testing.T) {
	ds, err := New(
		NewNumericColumn("price", []float64{100, 200}),
		NewBoolColumn("price_na", []bool{false, true}),
	)
	require.NoError(t, err)

	m, names, err := Matrix(ds)
	require.NoError(t, err)

	assert.Equal(t, []string{"price", "price_na"}, names)

	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)

	assert.Equal(t, 100.0, m.At(0, 0))
	assert.Equal(t, 0.0, m.At(0, 1), "false maps to 0")
	assert.Equal(t, 200.0, m.At(1, 0))
	assert.Equal(t, 1.0, m.At(1, 1), "true maps to 1")
}

func TestMatrix_Errors(t *testing.T) {
	t.Run("no columns", func(t *testing.T) {
		ds, err := New()
		require.NoError(t, err)

		_, _, err = Matrix(ds)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("string column", func(t *testing.T) {
		ds, err := New(NewStringColumn("fuel", []string{"diesel"}, nil))
		require.NoError(t, err)

		_, _, err = Matrix(ds)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encode it first")
	})

	t.Run("zero rows", func(t *testing.T) {
		ds, err := New(
			NewNumericColumn("mileage", []float64{}),
			NewBoolColumn("mileage_na", []bool{}),
		)
		require.NoError(t, err)

		_, _, err = Matrix(ds)
		require.Error(t, err, "gonum rejects empty matrices, so we must")
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		assert.Contains(t, err.Error(), "no rows")
	})
}

func TestSplit(t *testing.T) {
	ds, err := New(
		NewNumericColumn("mileage", []float64{50000, 80000, 20000}),
		NewNumericColumn("price", []float64{15000, 9500, 22000}),
		NewBoolColumn("mileage_na", []bool{false, true, false}),
	)
	require.NoError(t, err)

	features, names, target, err := Split(ds, "price")
	require.NoError(t, err)

	assert.Equal(t, []string{"mileage", "mileage_na"}, names, "target excluded, order preserved")

	rows, cols := features.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 50000.0, features.At(0, 0))
	assert.Equal(t, 1.0, features.At(1, 1))

	require.Equal(t, 3, target.Len())
	assert.Equal(t, 15000.0, target.AtVec(0))
	assert.Equal(t, 9500.0, target.AtVec(1))
	assert.Equal(t, 22000.0, target.AtVec(2))
}

func TestSplit_LeavesDatasetIntact(t *testing.T) {
	ds, err := New(
		NewNumericColumn("a", []float64{1, 2}),
		NewNumericColumn("b", []float64{3, 4}),
	)
	require.NoError(t, err)

	_, _, _, err = Split(ds, "b")
	require.NoError(t, err)

	assert.Equal(t, 2, ds.NumColumns(), "split is non-destructive")
	_, ok := ds.Column("b")
	assert.True(t, ok)

	// A second split against the other column still works.
	_, names, target, err := Split(ds, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
	assert.Equal(t, 3.0, target.AtVec(0))
}

func TestSplit_Errors(t *testing.T) {
	t.Run("column not found", func(t *testing.T) {
		ds, err := New(
			NewNumericColumn("a", []float64{1}),
			NewNumericColumn("b", []float64{2}),
		)
		require.NoError(t, err)

		_, _, _, err = Split(ds, "missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeColumnNotFound))
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("single column", func(t *testing.T) {
		ds, err := New(NewNumericColumn("only", []float64{1}))
		require.NoError(t, err)

		_, _, _, err = Split(ds, "only")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("zero rows", func(t *testing.T) {
		ds, err := New(
			NewNumericColumn("a", []float64{}),
			NewNumericColumn("b", []float64{}),
		)
		require.NoError(t, err)

		_, _, _, err = Split(ds, "b")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		assert.Contains(t, err.Error(), "no rows")
	})

	t.Run("unencoded target", func(t *testing.T) {
		ds, err := New(
			NewNumericColumn("a", []float64{1}),
			NewStringColumn("label", []string{"yes"}, nil),
		)
		require.NoError(t, err)

		_, _, _, err = Split(ds, "label")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encode it first")
	})
}
