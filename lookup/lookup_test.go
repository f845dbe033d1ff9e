package lookup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecspace/space"
)

func newMatrix(t *testing.T) *space.Matrix {
	t.Helper()
	m, err := space.New(2,
		[]string{"/c/en/dog", "/c/en/ice_cream", "/c/de/hund", "plain"},
		[]float32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	return m
}

func TestGetVector(t *testing.T) {
	w, err := New(newMatrix(t))
	require.NoError(t, err)

	tests := []struct {
		term string
		want []float32
		step Step
	}{
		{"/c/en/dog", []float32{1, 2}, StepExact},
		{"plain", []float32{7, 8}, StepExact},
		{"Dog", []float32{1, 2}, StepNormalized},
		{"  Ice   Cream ", []float32{3, 4}, StepNormalized},
		{"/c/en/dog/n/wn/animal", []float32{1, 2}, StepNormalized},
		{"/c/de/Hund", []float32{5, 6}, StepNormalized},
		{"hund", []float32{0, 0}, StepMissing},
		{"", []float32{0, 0}, StepMissing},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, w.GetVector(tt.term))
			assert.Equal(t, tt.step, w.Resolve(tt.term).Step)
		})
	}
}

func TestResolveReportsNormalizer(t *testing.T) {
	w, err := New(newMatrix(t))
	require.NoError(t, err)

	r := w.Resolve("DOG")
	assert.Equal(t, "/c/en/dog", r.Label)
	assert.Equal(t, "standardize", r.Normalizer)

	r = w.Resolve("/c/en/dog/n")
	assert.Equal(t, "prefix", r.Normalizer)

	assert.True(t, w.Contains("dog"))
	assert.False(t, w.Contains("cat"))
}

func TestLanguage(t *testing.T) {
	w, err := New(newMatrix(t), WithLanguage("de"))
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6}, w.GetVector("Hund"))
	assert.Equal(t, StepMissing, w.Resolve("dog").Step)
}

func TestCustomChain(t *testing.T) {
	upper := Normalizer{Name: "lower", Fn: strings.ToLower}
	w, err := New(newMatrix(t), WithNormalizers(upper))
	require.NoError(t, err)

	assert.Equal(t, []float32{7, 8}, w.GetVector("PLAIN"))
	assert.Equal(t, StepMissing, w.Resolve("dog").Step)

	none, err := New(newMatrix(t), WithNormalizers())
	require.NoError(t, err)
	assert.Equal(t, StepMissing, none.Resolve("Dog").Step)
}

func TestGetVectorReturnsCopy(t *testing.T) {
	m := newMatrix(t)
	w, err := New(m)
	require.NoError(t, err)

	v := w.GetVector("/c/en/dog")
	v[0] = 99
	assert.Equal(t, float32(1), m.Row(0)[0])
}

func TestCache(t *testing.T) {
	w, err := New(newMatrix(t), WithCacheSize(64))
	require.NoError(t, err)

	w.Resolve("Dog")
	w.Resolve("Dog")
	w.Resolve("cat")
	w.Resolve("cat")
	hits, misses := w.CacheStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)

	off, err := New(newMatrix(t), WithCacheSize(0))
	require.NoError(t, err)
	off.Resolve("Dog")
	hits, misses = off.CacheStats()
	assert.Zero(t, hits+misses)
}

func TestNewNil(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNilMatrix)
}
