package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "categorical", KindCategorical.String())
	assert.Equal(t, "numeric", KindNumeric.String())
	assert.Equal(t, "bool", KindBool.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestColumn_Len(t *testing.T) {
	assert.Equal(t, 3, NewStringColumn("s", []string{"a", "b", "c"}, nil).Len())
	assert.Equal(t, 2, NewNumericColumn("n", []float64{1, 2}).Len())
	assert.Equal(t, 4, NewBoolColumn("b", make([]bool, 4)).Len())
}

func TestColumn_Missing(t *testing.T) {
	t.Run("numeric NaN is missing", func(t *testing.T) {
		col := NewNumericColumn("n", []float64{1, math.NaN(), 3})
		assert.False(t, col.IsMissing(0))
		assert.True(t, col.IsMissing(1))
		assert.True(t, col.HasMissing())
	})

	t.Run("string mask", func(t *testing.T) {
		col := NewStringColumn("s", []string{"a", ""}, []bool{false, true})
		assert.False(t, col.IsMissing(0))
		assert.True(t, col.IsMissing(1))
	})

	t.Run("nil mask means complete", func(t *testing.T) {
		col := NewStringColumn("s", []string{"a", "b"}, nil)
		assert.False(t, col.HasMissing())
	})

	t.Run("bools are never missing", func(t *testing.T) {
		col := NewBoolColumn("b", []bool{true, false})
		assert.False(t, col.IsMissing(0))
		assert.False(t, col.HasMissing())
	})
}

func TestColumn_Clone(t *testing.T) {
	col := NewStringColumn("s", []string{"a", "b"}, []bool{false, true})
	col.Kind = KindCategorical
	col.Levels = []string{"a", "b"}

	clone := col.Clone()
	clone.Strings[0] = "changed"
	clone.Missing[0] = true
	clone.Levels[0] = "changed"

	assert.Equal(t, "a", col.Strings[0])
	assert.False(t, col.Missing[0])
	assert.Equal(t, "a", col.Levels[0])
	assert.Equal(t, KindCategorical, clone.Kind)
}

func TestNew(t *testing.T) {
	t.Run("valid columns", func(t *testing.T) {
		ds, err := New(
			NewStringColumn("fuel", []string{"diesel", "petrol"}, nil),
			NewNumericColumn("price", []float64{1, 2}),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, ds.Rows())
		assert.Equal(t, 2, ds.NumColumns())
		assert.Equal(t, []string{"fuel", "price"}, ds.Names())
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := New(
			NewNumericColumn("x", []float64{1}),
			NewNumericColumn("x", []float64{2}),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate column "x"`)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := New(NewNumericColumn("", []float64{1}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be empty")
	})

	t.Run("row count mismatch", func(t *testing.T) {
		_, err := New(
			NewNumericColumn("a", []float64{1, 2}),
			NewNumericColumn("b", []float64{1}),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has 1 rows, dataset has 2")
	})

	t.Run("empty dataset", func(t *testing.T) {
		ds, err := New()
		require.NoError(t, err)
		assert.Equal(t, 0, ds.Rows())
		assert.Equal(t, 0, ds.NumColumns())
	})
}

func TestDataset_Column(t *testing.T) {
	ds, err := New(NewNumericColumn("price", []float64{1}))
	require.NoError(t, err)

	col, ok := ds.Column("price")
	require.True(t, ok)
	assert.Equal(t, "price", col.Name)

	_, ok = ds.Column("absent")
	assert.False(t, ok)
}

func TestDataset_Append(t *testing.T) {
	ds, err := New(NewNumericColumn("a", []float64{1, 2}))
	require.NoError(t, err)

	require.NoError(t, ds.Append(NewBoolColumn("a_na", []bool{false, true})))
	assert.Equal(t, []string{"a", "a_na"}, ds.Names())

	err = ds.Append(NewBoolColumn("short", []bool{true}))
	require.Error(t, err)
}

func TestDataset_Clone(t *testing.T) {
	ds, err := New(
		NewStringColumn("fuel", []string{"diesel"}, nil),
		NewNumericColumn("price", []float64{100}),
	)
	require.NoError(t, err)

	clone := ds.Clone()
	col, ok := clone.Column("price")
	require.True(t, ok)
	col.Floats[0] = -1

	orig, _ := ds.Column("price")
	assert.Equal(t, 100.0, orig.Floats[0], "clone does not share storage")
	assert.Equal(t, ds.Names(), clone.Names())
}
