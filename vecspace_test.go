package vecspace

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/format"
	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/retrofit"
	"github.com/hupe1980/vecspace/space"
	"github.com/hupe1980/vecspace/testutil"
)

func smallMatrix(t *testing.T) *space.Matrix {
	t.Helper()
	m, err := space.New(2,
		[]string{"a", "b", "c", "d"},
		[]float32{
			0, 1,
			2, 1,
			10, 1,
			5, 1,
		})
	require.NoError(t, err)
	return m
}

func smallGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, _, err := graph.Build(t.Context(), graph.SliceSource{
		{From: "a", To: "b", Weight: 1},
		{From: "b", To: "c", Weight: 1},
	})
	require.NoError(t, err)
	return g
}

func TestRetrofit(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	store := blobstore.NewMemoryStore()

	res, err := Retrofit(t.Context(), smallMatrix(t), smallGraph(t),
		WithMetricsCollector(metrics),
		WithCheckpoint(store, "run"),
		WithRetrofitOptions(retrofit.WithIterations(2), retrofit.WithNumShards(3)),
	)
	require.NoError(t, err)

	want := map[string][]float32{"a": {2, 1}, "b": {3, 1}, "c": {7, 1}, "d": {5, 1}}
	for label, v := range want {
		got, ok := res.Matrix.Vector(label)
		require.True(t, ok)
		testutil.AssertVectorsClose(t, v, got, 1e-6)
	}
	require.NotNil(t, res.Report.Checkpoint)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.RetrofitCount)
	assert.Equal(t, int64(4), stats.RetrofitRows)
	assert.Equal(t, int64(2), stats.RoundCount)
	assert.Equal(t, int64(1), stats.CheckpointCount)
	assert.Positive(t, stats.CheckpointBytes)
	assert.Greater(t, stats.LastDelta, 0.0)

	joined, err := JoinRetrofit(t.Context(), store, "run", 3, WithMetricsCollector(metrics))
	require.NoError(t, err)
	assert.True(t, res.Matrix.Equal(joined))
	assert.Equal(t, int64(1), metrics.GetStats().JoinCount)
}

func TestRetrofit_Configuration(t *testing.T) {
	_, err := Retrofit(t.Context(), smallMatrix(t), smallGraph(t),
		WithRetrofitOptions(retrofit.WithIterations(0)))
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorIs(t, err, retrofit.ErrInvalidIterations)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "iterations", ce.Param)

	_, err = Retrofit(t.Context(), smallMatrix(t), smallGraph(t),
		WithRetrofitOptions(retrofit.WithNumShards(-1)))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "nshards", ce.Param)
}

func TestJoinRetrofit_Errors(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	store := blobstore.NewMemoryStore()

	_, err := JoinRetrofit(t.Context(), store, "none", 0, WithMetricsCollector(metrics))
	require.ErrorIs(t, err, retrofit.ErrNoCheckpoint)

	_, err = Retrofit(t.Context(), smallMatrix(t), smallGraph(t),
		WithCheckpoint(store, "run"),
		WithRetrofitOptions(retrofit.WithNumShards(2)))
	require.NoError(t, err)

	_, err = JoinRetrofit(t.Context(), store, "run", 5)
	require.ErrorIs(t, err, ErrMalformedInput)
	require.ErrorIs(t, err, retrofit.ErrIncompleteCheckpoint)
	assert.Equal(t, int64(1), metrics.GetStats().JoinErrors)
}

func TestInterpolate_ThresholdExcludesLowCoverage(t *testing.T) {
	rng := testutil.NewRNG(5)
	a := rng.Matrix(50, 4, "w")
	// b shares only five labels with the target.
	b := a.Select(a.Labels()[:5])

	target := space.NewLabelSet(a.Labels()...)
	metrics := &BasicMetricsCollector{}
	res, err := Interpolate(t.Context(), a, b, target,
		WithMetricsCollector(metrics),
		WithMergeOptions(merge.WithVocabThreshold(10)),
	)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Matrix.Len())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, 1, res.Diagnostics[0].Input)
	assert.ErrorIs(t, res.Diagnostics[0], merge.ErrCoverageTooLow)
	assert.True(t, a.Equal(res.Matrix))
	assert.Equal(t, int64(50), metrics.GetStats().MergeRows)
}

func TestInterpolate_Errors(t *testing.T) {
	a := smallMatrix(t)

	_, err := Interpolate(t.Context(), a, a, nil)
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "target", ce.Param)

	_, err = InterpolateAll(t.Context(), a, a, WithMergeOptions(merge.WithVocabThreshold(1000)))
	require.ErrorIs(t, err, ErrCoverageTooLow)
	require.ErrorIs(t, err, merge.ErrNothingUsable)
}

func TestIntersect(t *testing.T) {
	rng := testutil.NewRNG(9)
	a := rng.Matrix(40, 6, "w")
	b := rng.Matrix(40, 4, "w")

	res, err := Intersect(t.Context(), []*space.Matrix{a, b}, 5)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Matrix.Len())
	assert.Equal(t, 5, res.Matrix.Dim())
	assert.Len(t, res.Projectors, 2)
}

func TestIntersect_DisjointIsConfigurationError(t *testing.T) {
	rng := testutil.NewRNG(2)
	a := rng.Matrix(10, 3, "x")
	b := rng.Matrix(10, 3, "y")

	_, err := Intersect(t.Context(), []*space.Matrix{a, b}, 2)
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorIs(t, err, merge.ErrEmptyIntersection)

	_, err = Intersect(t.Context(), []*space.Matrix{a}, 2)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLookup(t *testing.T) {
	m, err := space.New(2, []string{"/c/en/ice_cream", "/c/en/cat"}, []float32{1, 2, 3, 4})
	require.NoError(t, err)

	l, err := NewLookup(m)
	require.NoError(t, err)

	v, err := l.Vector("Ice Cream")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	_, err = l.Vector("dog")
	require.ErrorIs(t, err, ErrMissingLabel)
	assert.Equal(t, []float32{0, 0}, l.GetVector("dog"))

	_, err = NewLookup(nil)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{nil, nil},
		{fmt.Errorf("x: %w", format.ErrMalformed), ErrMalformedInput},
		{&graph.RecordError{}, ErrMalformedInput},
		{fmt.Errorf("x: %w", space.ErrDuplicateLabel), ErrMalformedInput},
		{merge.ErrTooFewInputs, ErrConfiguration},
		{format.ErrUnknownFormat, ErrConfiguration},
		{merge.ErrNothingUsable, ErrCoverageTooLow},
	}
	for _, tt := range tests {
		got := translateError(tt.in)
		if tt.want == nil {
			assert.NoError(t, got)
			continue
		}
		assert.ErrorIs(t, got, tt.want, "%v", tt.in)
		assert.ErrorIs(t, got, tt.in)
	}

	plain := errors.New("plain")
	assert.Same(t, plain, translateError(plain))

	once := translateError(merge.ErrTooFewInputs)
	assert.Same(t, once, translateError(once))
}
