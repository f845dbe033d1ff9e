package merge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/vecspace/space"
	"github.com/hupe1980/vecspace/testutil"
)

func matrix(t *testing.T, dim int, rows map[string][]float32, order ...string) *space.Matrix {
	t.Helper()
	b := space.NewBuilder(dim)
	for _, l := range order {
		require.NoError(t, b.Add(l, rows[l]))
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

// linearMap returns m·q with the labels of m.
func linearMap(t *testing.T, m *space.Matrix, q *mat.Dense) *space.Matrix {
	t.Helper()
	_, out := q.Dims()
	data := make([]float32, m.Len()*out)
	for i := range m.Len() {
		for j := range out {
			var s float64
			for k, v := range m.Row(i) {
				s += float64(v) * q.At(k, j)
			}
			data[i*out+j] = float32(s)
		}
	}
	res, err := space.New(out, append([]string(nil), m.Labels()...), data)
	require.NoError(t, err)
	return res
}

func randomDense(rng *testutil.RNG, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return mat.NewDense(r, c, data)
}

func TestInterpolateUnion(t *testing.T) {
	a := matrix(t, 2, map[string][]float32{"x": {1, 1}, "y": {2, 2}}, "x", "y")
	b := matrix(t, 2, map[string][]float32{"y": {4, 4}, "z": {0, 2}}, "y", "z")

	res, err := Interpolate(t.Context(), a, b, nil, WithVocabThreshold(1))
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "z"}, res.Matrix.Labels())
	testutil.AssertVectorsClose(t, []float32{1, 1}, res.Matrix.Row(0), 0)
	testutil.AssertVectorsClose(t, []float32{3, 3}, res.Matrix.Row(1), 1e-6)
	testutil.AssertVectorsClose(t, []float32{0, 2}, res.Matrix.Row(2), 0)
	assert.Equal(t, 1, res.Blended)
	assert.Equal(t, [2]int{1, 1}, res.Carried)
	assert.Zero(t, res.Missing)
	assert.Empty(t, res.Diagnostics)
	assert.Nil(t, res.Projector)

	assert.Equal(t, []int{0, 1}, res.Alignment.Rows[0])
	assert.Equal(t, []int{1, 2}, res.Alignment.Rows[1])

	weighted, err := Interpolate(t.Context(), a, b, nil, WithVocabThreshold(1), WithWeights(3, 1))
	require.NoError(t, err)
	testutil.AssertVectorsClose(t, []float32{2.5, 2.5}, weighted.Matrix.Row(1), 1e-6)
}

func TestInterpolateTarget(t *testing.T) {
	a := matrix(t, 1, map[string][]float32{"x": {1}, "y": {2}}, "x", "y")
	b := matrix(t, 1, map[string][]float32{"y": {4}, "z": {6}}, "y", "z")

	res, err := Interpolate(t.Context(), a, b, space.NewLabelSet("z", "q", "x"), WithVocabThreshold(1))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "x"}, res.Matrix.Labels())
	assert.Equal(t, 1, res.Missing)
	assert.Zero(t, res.Blended)
}

func TestInterpolateThresholdExcludesInput(t *testing.T) {
	a := testutil.NewRNG(1).Matrix(10, 3, "w")
	// b covers only w8, w9 and its own label.
	b := matrix(t, 3, map[string][]float32{
		"w8":    {9, 9, 9},
		"w9":    {9, 9, 9},
		"extra": {7, 7, 7},
	}, "w8", "w9", "extra")

	res, err := Interpolate(t.Context(), a, b, nil, WithVocabThreshold(5))
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, 1, d.Input)
	assert.Equal(t, 3, d.Overlap)
	assert.True(t, errors.Is(d, ErrCoverageTooLow))
	assert.Contains(t, d.Error(), "threshold 5")

	assert.Equal(t, a.Labels(), res.Matrix.Labels())
	assert.True(t, a.Equal(res.Matrix))
	assert.Equal(t, 1, res.Missing)
	assert.Equal(t, [2]int{10, 0}, res.Carried)
	for _, o := range res.Alignment.Rows[1] {
		assert.Equal(t, -1, o)
	}
}

func TestInterpolateNothingUsable(t *testing.T) {
	rng := testutil.NewRNG(2)
	a := rng.Matrix(5, 2, "a")
	b := rng.Matrix(5, 2, "b")

	_, err := Interpolate(t.Context(), a, b, nil)
	require.ErrorIs(t, err, ErrNothingUsable)

	_, err = Interpolate(t.Context(), a, b, space.NewLabelSet("nope"), WithVocabThreshold(0))
	require.ErrorIs(t, err, ErrNothingUsable)
}

func TestInterpolateProjectsDifferentWidth(t *testing.T) {
	rng := testutil.NewRNG(3)
	hidden := rng.Matrix(40, 3, "w")
	q := randomDense(rng, 3, 5)

	a := hidden.Select(hidden.Labels()[:30])
	b := linearMap(t, hidden.Select(hidden.Labels()[10:]), q)

	res, err := Interpolate(t.Context(), a, b, nil, WithVocabThreshold(1), WithRidge(1e-9))
	require.NoError(t, err)
	require.NotNil(t, res.Projector)
	assert.Equal(t, 5, res.Projector.InDim())
	assert.Equal(t, 3, res.Projector.OutDim())
	assert.Equal(t, 3, res.Matrix.Dim())
	assert.Equal(t, 40, res.Matrix.Len())

	// w35 only exists in b and must land on its hidden vector.
	got, ok := res.Matrix.Vector("w35")
	require.True(t, ok)
	want, _ := hidden.Vector("w35")
	testutil.AssertVectorsClose(t, want, got, 1e-3)

	// Shared labels blend two near-identical vectors.
	got, _ = res.Matrix.Vector("w15")
	want, _ = hidden.Vector("w15")
	testutil.AssertVectorsClose(t, want, got, 1e-3)
}

func TestInterpolateNoSharedLabels(t *testing.T) {
	rng := testutil.NewRNG(4)
	a := rng.Matrix(5, 2, "a")
	b := rng.Matrix(5, 3, "b")

	res, err := Interpolate(t.Context(), a, b, nil, WithVocabThreshold(1))
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0], ErrNoSharedLabels)
	assert.Equal(t, a.Labels(), res.Matrix.Labels())
	assert.Equal(t, 5, res.Missing)
}

func TestInterpolateOptionErrors(t *testing.T) {
	a := testutil.NewRNG(5).Matrix(3, 2, "w")
	tests := []func(*Options){
		WithVocabThreshold(-1),
		WithWeights(0, 0),
		WithWeights(-1, 2),
		WithRidge(-1),
		WithBlend(Blend(9)),
		WithVerbosity(-1),
	}
	for i, fn := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			_, err := Interpolate(t.Context(), a, a, nil, fn)
			require.ErrorIs(t, err, ErrInvalidOption)
		})
	}

	_, err := Interpolate(t.Context(), nil, a, nil)
	require.ErrorIs(t, err, ErrNilMatrix)
}

func TestParseBlend(t *testing.T) {
	b, err := ParseBlend("weighted")
	require.NoError(t, err)
	assert.Equal(t, BlendWeighted, b)

	b, err = ParseBlend("")
	require.NoError(t, err)
	assert.Equal(t, BlendAverage, b)

	_, err = ParseBlend("median")
	require.ErrorIs(t, err, ErrInvalidOption)
}

func TestIntersectConfigurationErrors(t *testing.T) {
	rng := testutil.NewRNG(6)
	a := rng.Matrix(5, 3, "a")
	b := rng.Matrix(5, 3, "b")

	_, err := Intersect(t.Context(), []*space.Matrix{a}, 2)
	require.ErrorIs(t, err, ErrTooFewInputs)

	_, err = Intersect(t.Context(), []*space.Matrix{a, a}, 0)
	require.ErrorIs(t, err, ErrInvalidDimension)

	_, err = Intersect(t.Context(), []*space.Matrix{a, b}, 2)
	require.ErrorIs(t, err, ErrEmptyIntersection)
}

func TestIntersect(t *testing.T) {
	rng := testutil.NewRNG(7)
	a := rng.Matrix(60, 6, "w")
	b := rng.Matrix(80, 4, "w")
	c := rng.Matrix(50, 5, "w")

	res, err := Intersect(t.Context(), []*space.Matrix{a, b, c}, 8)
	require.NoError(t, err)

	assert.Equal(t, 8, res.K)
	assert.Equal(t, 50, res.Matrix.Len())
	assert.Equal(t, 8, res.Matrix.Dim())
	assert.Equal(t, a.Labels()[:50], res.Matrix.Labels())
	require.Len(t, res.Projectors, 3)
	assert.Equal(t, 4, res.Projectors[1].InDim())
	assert.Equal(t, 8, res.Projectors[1].OutDim())
	assert.Greater(t, res.Explained, 0.0)
	assert.LessOrEqual(t, res.Explained, 1.0+1e-9)

	capped, err := Intersect(t.Context(), []*space.Matrix{a, b}, 300)
	require.NoError(t, err)
	assert.Equal(t, 10, capped.K)
	assert.InDelta(t, 1.0, capped.Explained, 1e-9)
}

func TestIntersectProjectorsReproduceOutput(t *testing.T) {
	rng := testutil.NewRNG(8)
	a := rng.Matrix(100, 4, "w")
	b := linearMap(t, a, randomDense(rng, 4, 3))

	res, err := Intersect(t.Context(), []*space.Matrix{a, b}, 3, WithNormalize(false), WithRidge(1e-10))
	require.NoError(t, err)

	for _, i := range []int{0, 17, 99} {
		got, err := res.Projectors[0].Apply(a.Row(i))
		require.NoError(t, err)
		testutil.AssertVectorsClose(t, res.Matrix.Row(i), got, 1e-3)
	}

	pm, err := res.Projectors[0].ApplyMatrix(a)
	require.NoError(t, err)
	testutil.AssertMatricesClose(t, res.Matrix, pm, 1e-3)
}

func TestFitProjectorRecoversLinearMap(t *testing.T) {
	rng := testutil.NewRNG(9)
	x := randomDense(rng, 50, 3)
	want := randomDense(rng, 3, 2)
	var y mat.Dense
	y.Mul(x, want)

	p, err := FitProjector(x, &y, 1e-12)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, p.Weights(), 1e-6))

	_, err = FitProjector(x, mat.NewDense(3, 2, nil), 0)
	require.ErrorIs(t, err, ErrProjectorShape)
}

func TestProjectorMatrixRoundTrip(t *testing.T) {
	rng := testutil.NewRNG(10)
	p := NewProjector(randomDense(rng, 4, 2))
	q := NewProjector(randomDense(rng, 3, 2))

	combined, err := ExportProjectors([]string{"en", "de:x"}, []*Projector{p, q})
	require.NoError(t, err)
	assert.Equal(t, 7, combined.Len())

	_, err = ExportProjectors([]string{"en", "en"}, []*Projector{p, q})
	require.ErrorIs(t, err, ErrProjectorShape)
	_, err = ExportProjectors([]string{"en"}, []*Projector{p, q})
	require.ErrorIs(t, err, ErrProjectorShape)

	got, err := ProjectorsFromMatrix(combined)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got["en"].InDim())
	assert.Equal(t, 3, got["de:x"].InDim())
	assert.True(t, mat.EqualApprox(p.Weights(), got["en"].Weights(), 1e-6))

	_, err = p.Apply([]float32{1, 2})
	require.ErrorIs(t, err, ErrProjectorShape)

	bad := matrix(t, 2, map[string][]float32{"en:0": {1, 1}, "en:2": {1, 1}}, "en:0", "en:2")
	_, err = ProjectorsFromMatrix(bad)
	require.ErrorIs(t, err, ErrProjectorShape)
}

func TestAlign(t *testing.T) {
	a := matrix(t, 1, map[string][]float32{"x": {1}, "y": {2}, "z": {3}}, "x", "y", "z")
	b := matrix(t, 1, map[string][]float32{"z": {1}, "q": {2}, "x": {3}}, "z", "q", "x")

	in := AlignIntersection(a, b)
	assert.Equal(t, []string{"x", "z"}, in.Labels)
	assert.Equal(t, []int{0, -1, 1}, in.Rows[0])
	assert.Equal(t, []int{1, -1, 0}, in.Rows[1])
	assert.Equal(t, []int{2, 0}, in.Sources(1))

	un := AlignUnion(a, b)
	assert.Equal(t, []string{"x", "y", "z", "q"}, un.Labels)
	assert.Equal(t, 3, un.Coverage(1))
}
