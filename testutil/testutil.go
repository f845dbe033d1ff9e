package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/space"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// UniformRangeVectors generates random vectors with values in range [-1, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	data := make([]float32, num*dimensions)
	r.FillUniformRange(data, -1, 1)

	vectors := make([][]float32, num)
	for i := range num {
		vectors[i] = data[i*dimensions : (i+1)*dimensions]
	}
	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		inv := 1 / math.Sqrt(norm)
		for j := range vec {
			vec[j] = float32(float64(vec[j]) * inv)
		}
		vectors[i] = vec
	}

	return vectors
}

// Labels returns n distinct labels prefix0..prefix(n-1).
func Labels(n int, prefix string) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return labels
}

// Matrix generates a matrix of n rows labeled prefix0.. with values in [-1, 1).
func (r *RNG) Matrix(n, dim int, prefix string) *space.Matrix {
	data := make([]float32, n*dim)
	r.FillUniformRange(data, -1, 1)
	m, err := space.New(dim, Labels(n, prefix), data)
	if err != nil {
		panic(err)
	}
	return m
}

// ClusteredMatrix generates n rows around clusters unit centroids with
// Gaussian noise of the given spread.
func (r *RNG) ClusteredMatrix(n, dim, clusters int, spread float32, prefix string) *space.Matrix {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, n*dim)
	for i := range n {
		c := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = c[j] + float32(r.rand.NormFloat64())*spread
		}
	}
	m, err := space.New(dim, Labels(n, prefix), data)
	if err != nil {
		panic(err)
	}
	return m
}

// Graph generates a random edge list over labels with about degree outgoing
// edges per label and weights in (0, 1]. Self-loops are never produced.
func (r *RNG) Graph(labels []string, degree int) graph.SliceSource {
	if len(labels) < 2 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	src := make(graph.SliceSource, 0, len(labels)*degree)
	for i, from := range labels {
		for range degree {
			j := r.rand.Intn(len(labels) - 1)
			if j >= i {
				j++
			}
			src = append(src, graph.Edge{From: from, To: labels[j], Weight: 1 - r.rand.Float64()})
		}
	}
	return src
}

// AssertVectorsClose asserts element-wise equality within tol.
func AssertVectorsClose(t testing.TB, want, got []float32, tol float64) bool {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return false
	}
	for i := range want {
		if !assert.InDelta(t, want[i], got[i], tol, "component %d", i) {
			return false
		}
	}
	return true
}

// AssertMatricesClose asserts that both matrices have the same labels in
// the same order and rows equal within tol.
func AssertMatricesClose(t testing.TB, want, got *space.Matrix, tol float64) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.Dim(), got.Dim())
	require.Equal(t, want.Labels(), got.Labels())
	for i := range want.Len() {
		if !AssertVectorsClose(t, want.Row(i), got.Row(i), tol) {
			t.Fatalf("row %d (%s) differs", i, want.Label(i))
		}
	}
}
