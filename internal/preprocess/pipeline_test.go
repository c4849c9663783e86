package preprocess

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"tabprep/internal/dataset"
	apperrors "tabprep/internal/errors"
	"tabprep/internal/shared/testutil"
	"tabprep/pkg/contracts/domain"
)

// trainingData builds the reference training set used across pipeline tests:
// one categorical column, one numeric column with a hole, and the target.
func trainingData(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.NewStringColumn("fuel", []string{"diesel", "petrol", "diesel", "electric"}, nil),
		dataset.NewNumericColumn("mileage", []float64{50000, math.NaN(), 20000, 40000}),
		dataset.NewNumericColumn("price", []float64{15000, 9500, 22000, 18000}),
	)
	require.NoError(t, err)
	return ds
}

func TestPipeline_Fit(t *testing.T) {
	p := New(nil, Config{})
	ds := trainingData(t)

	res, err := p.Fit(context.Background(), ds, "price")
	require.NoError(t, err)

	assert.Equal(t, domain.MappingTable{
		"fuel": {"diesel": 1, "electric": 2, "petrol": 3, "other": 4},
	}, res.Mappings)
	assert.Equal(t, domain.ImputationTable{"mileage": 40000}, res.Imputations)
	assert.Empty(t, res.Fallbacks)
	assert.Equal(t, 4, res.Rows)

	assert.Equal(t, []string{"fuel", "mileage", "mileage_na"}, res.FeatureNames,
		"target excluded, indicator appended last")

	want := mat.NewDense(4, 3, []float64{
		1, 50000, 0,
		3, 40000, 1,
		1, 20000, 0,
		2, 40000, 0,
	})
	assert.True(t, mat.Equal(want, res.Features), "features:\n got %v\nwant %v",
		mat.Formatted(res.Features), mat.Formatted(want))

	require.NotNil(t, res.Target)
	assert.Equal(t, []float64{15000, 9500, 22000, 18000}, res.Target.RawVector().Data)
}

func TestPipeline_TransformMatchesFitSchema(t *testing.T) {
	p := New(nil, Config{})
	ctx := context.Background()

	fitRes, err := p.Fit(ctx, trainingData(t), "price")
	require.NoError(t, err)

	// "hybrid" never appeared in training; mileage has a fresh hole.
	test, err := dataset.New(
		dataset.NewStringColumn("fuel", []string{"hybrid", "diesel"}, nil),
		dataset.NewNumericColumn("mileage", []float64{math.NaN(), 30000}),
		dataset.NewNumericColumn("price", []float64{20000, 12000}),
	)
	require.NoError(t, err)

	res, err := p.Transform(ctx, test, "price", fitRes.Mappings, fitRes.Imputations)
	require.NoError(t, err)

	assert.Equal(t, fitRes.FeatureNames, res.FeatureNames,
		"transform output schema matches the fit run")
	assert.Empty(t, res.Fallbacks)

	want := mat.NewDense(2, 3, []float64{
		4, 40000, 1,
		1, 30000, 0,
	})
	assert.True(t, mat.Equal(want, res.Features),
		"unseen category takes the sentinel code, hole takes the fitted median:\n got %v",
		mat.Formatted(res.Features))
}

func TestPipeline_UnseenCategoryAbsorbedBySentinel(t *testing.T) {
	p := New(nil, Config{})
	ctx := context.Background()

	train, err := dataset.New(dataset.NewStringColumn("c", []string{"a", "b"}, nil))
	require.NoError(t, err)

	fitRes, err := p.Process(ctx, train, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryMapping{"a": 1, "b": 2, "other": 3}, fitRes.Mappings["c"])

	test, err := dataset.New(dataset.NewStringColumn("c", []string{"a", "c"}, nil))
	require.NoError(t, err)

	res, err := p.Process(ctx, test, Options{Mappings: fitRes.Mappings})
	require.NoError(t, err, "unseen categories are absorbed, not raised")

	assert.Equal(t, 1.0, res.Features.At(0, 0))
	assert.Equal(t, 3.0, res.Features.At(1, 0), `"c" lands on the sentinel's code`)
}

func TestPipeline_Deterministic(t *testing.T) {
	p := New(nil, Config{})
	ctx := context.Background()

	fit1, err := p.Fit(ctx, trainingData(t), "price")
	require.NoError(t, err)
	fit2, err := p.Fit(ctx, trainingData(t), "price")
	require.NoError(t, err)

	assert.Equal(t, fit1.Mappings, fit2.Mappings)
	assert.Equal(t, fit1.Imputations, fit2.Imputations)
	assert.Equal(t, fit1.FeatureNames, fit2.FeatureNames)
	assert.True(t, mat.Equal(fit1.Features, fit2.Features))

	build := func() *dataset.Dataset {
		ds, err := dataset.New(
			dataset.NewStringColumn("fuel", []string{"petrol", "electric"}, nil),
			dataset.NewNumericColumn("mileage", []float64{math.NaN(), 10000}),
			dataset.NewNumericColumn("price", []float64{1, 2}),
		)
		require.NoError(t, err)
		return ds
	}

	tr1, err := p.Transform(ctx, build(), "price", fit1.Mappings, fit1.Imputations)
	require.NoError(t, err)
	tr2, err := p.Transform(ctx, build(), "price", fit1.Mappings, fit1.Imputations)
	require.NoError(t, err)

	assert.True(t, mat.Equal(tr1.Features, tr2.Features))
	assert.Equal(t, tr1.FeatureNames, tr2.FeatureNames)
}

func TestPipeline_Idempotent(t *testing.T) {
	p := New(nil, Config{})
	ctx := context.Background()
	ds := trainingData(t)

	first, err := p.Fit(ctx, ds, "price")
	require.NoError(t, err)

	// The dataset is already fully numeric and hole-free; a second run
	// must change nothing.
	second, err := p.Fit(ctx, ds, "price")
	require.NoError(t, err)

	assert.Empty(t, second.Mappings, "nothing left to encode")
	assert.Empty(t, second.Imputations, "nothing left to impute")
	assert.Equal(t, first.FeatureNames, second.FeatureNames)
	assert.True(t, mat.Equal(first.Features, second.Features))
	assert.True(t, mat.Equal(first.Target, second.Target))
}

func TestPipeline_FreshMissingColumnFallsBack(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	p := New(logger, Config{})
	ctx := context.Background()

	// Training data has no holes in mileage, so no statistic is fitted.
	train, err := dataset.New(
		dataset.NewNumericColumn("mileage", []float64{10, 20, 30}),
		dataset.NewNumericColumn("price", []float64{1, 2, 3}),
	)
	require.NoError(t, err)

	fitRes, err := p.Fit(ctx, train, "price")
	require.NoError(t, err)
	assert.Empty(t, fitRes.Imputations)

	test, err := dataset.New(
		dataset.NewNumericColumn("mileage", []float64{math.NaN(), 100, 300}),
		dataset.NewNumericColumn("price", []float64{4, 5, 6}),
	)
	require.NoError(t, err)

	res, err := p.Transform(ctx, test, "price", fitRes.Mappings, fitRes.Imputations)
	require.NoError(t, err, "missing statistic is a deviation, not an error")

	require.Len(t, res.Fallbacks, 1)
	assert.Equal(t, "mileage", res.Fallbacks[0].Column)
	assert.Equal(t, 200.0, res.Fallbacks[0].Median, "own median of {100, 300}")
	assert.Equal(t, 1, res.Fallbacks[0].Rows)

	assert.Equal(t, 200.0, res.Features.At(0, 0), "hole filled with the fallback median")
	assert.True(t, logs.ContainsMessage("falling back"))
}

func TestPipeline_TargetColumnNotFound(t *testing.T) {
	p := New(nil, Config{})

	_, err := p.Fit(context.Background(), trainingData(t), "horsepower")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeColumnNotFound))
	assert.Contains(t, err.Error(), "split stage")
	assert.Contains(t, err.Error(), "horsepower")
}

func TestPipeline_EmptyDatasetIsAnError(t *testing.T) {
	p := New(nil, Config{})

	ds, err := dataset.New(
		dataset.NewStringColumn("fuel", []string{}, nil),
		dataset.NewNumericColumn("mileage", []float64{}),
	)
	require.NoError(t, err)

	_, err = p.Process(context.Background(), ds, Options{})
	require.Error(t, err, "zero-row datasets must surface an error, not a panic")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "no rows")
}

func TestPipeline_NoTargetReturnsFullMatrix(t *testing.T) {
	p := New(nil, Config{})

	res, err := p.Process(context.Background(), trainingData(t), Options{})
	require.NoError(t, err)

	assert.Nil(t, res.Target)
	assert.Equal(t, []string{"fuel", "mileage", "price", "mileage_na"}, res.FeatureNames)

	_, cols := res.Features.Dims()
	assert.Equal(t, 4, cols)
}

func TestPipeline_SkipImpute(t *testing.T) {
	p := New(nil, Config{})

	res, err := p.Process(context.Background(), trainingData(t), Options{
		Target:     "price",
		SkipImpute: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"fuel", "mileage"}, res.FeatureNames, "no indicator columns")
	assert.True(t, math.IsNaN(res.Features.At(1, 1)), "holes stay in place")
	assert.Empty(t, res.Imputations)
}

func TestPipeline_CustomSentinelAndSuffix(t *testing.T) {
	p := New(nil, Config{Sentinel: "unknown", IndicatorSuffix: "_was_missing"})

	res, err := p.Fit(context.Background(), trainingData(t), "price")
	require.NoError(t, err)

	assert.Contains(t, res.Mappings["fuel"], "unknown")
	assert.NotContains(t, res.Mappings["fuel"], "other")
	assert.Contains(t, res.FeatureNames, "mileage_was_missing")
}

func TestPipeline_ConcurrentTransforms(t *testing.T) {
	p := New(slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
	ctx := context.Background()

	fitRes, err := p.Fit(ctx, trainingData(t), "price")
	require.NoError(t, err)

	test, err := dataset.New(
		dataset.NewStringColumn("fuel", []string{"hybrid", "diesel", "petrol"}, nil),
		dataset.NewNumericColumn("mileage", []float64{math.NaN(), 25000, 60000}),
		dataset.NewNumericColumn("price", []float64{1, 2, 3}),
	)
	require.NoError(t, err)

	reference, err := p.Transform(ctx, test.Clone(), "price", fitRes.Mappings, fitRes.Imputations)
	require.NoError(t, err)

	// Fitted tables are shared read-only state; concurrent transforms over
	// independent datasets must all agree with the serial result.
	results := make([]*Result, 8)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			res, err := p.Transform(ctx, test.Clone(), "price", fitRes.Mappings, fitRes.Imputations)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i, res := range results {
		require.NotNil(t, res)
		assert.True(t, mat.Equal(reference.Features, res.Features), "goroutine %d diverged", i)
		assert.Equal(t, reference.FeatureNames, res.FeatureNames)
	}
}

func TestRunMode(t *testing.T) {
	assert.Equal(t, "fit", runMode(Options{}))
	assert.Equal(t, "transform", runMode(Options{Mappings: domain.MappingTable{}}))
	assert.Equal(t, "transform", runMode(Options{Imputations: domain.ImputationTable{}}))
}
