package space

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Matrix is an immutable labeled word-vector matrix.
type Matrix struct {
	dim    int
	labels []string
	data   []float32
	index  map[string]int
}

// New creates a matrix from labels and row-major data (len(labels)*dim values).
// The matrix takes ownership of both slices.
func New(dim int, labels []string, data []float32) (*Matrix, error) {
	if dim < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if len(data) != len(labels)*dim {
		return nil, fmt.Errorf("%w: %d values for %d rows of width %d", ErrDimensionMismatch, len(data), len(labels), dim)
	}

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, l)
		}
		index[l] = i
	}

	return &Matrix{dim: dim, labels: labels, data: data, index: index}, nil
}

// Empty returns a matrix with no rows.
func Empty(dim int) *Matrix {
	return &Matrix{dim: max(dim, 0), index: map[string]int{}}
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.labels) }

// Dim returns the vector width.
func (m *Matrix) Dim() int { return m.dim }

// Labels returns the row labels in row order. Read-only.
func (m *Matrix) Labels() []string { return m.labels }

// Label returns the label of row i.
func (m *Matrix) Label(i int) string { return m.labels[i] }

// Index returns the row of label.
func (m *Matrix) Index(label string) (int, bool) {
	i, ok := m.index[label]
	return i, ok
}

// Contains reports whether label has a row.
func (m *Matrix) Contains(label string) bool {
	_, ok := m.index[label]
	return ok
}

// Row returns row i. Read-only.
func (m *Matrix) Row(i int) []float32 {
	lo, hi := i*m.dim, (i+1)*m.dim
	return m.data[lo:hi:hi]
}

// Vector returns the vector of label. Read-only.
func (m *Matrix) Vector(label string) ([]float32, bool) {
	i, ok := m.index[label]
	if !ok {
		return nil, false
	}
	return m.Row(i), true
}

// Data returns the row-major backing array. Read-only.
func (m *Matrix) Data() []float32 { return m.data }

// CopyRow copies row i into dst, allocating when dst is too small.
func (m *Matrix) CopyRow(i int, dst []float32) []float32 {
	if cap(dst) < m.dim {
		dst = make([]float32, m.dim)
	}
	dst = dst[:m.dim]
	copy(dst, m.Row(i))
	return dst
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out, _ := New(m.dim, slices.Clone(m.labels), slices.Clone(m.data))
	return out
}

// LabelSet returns the matrix labels as a set, in row order.
func (m *Matrix) LabelSet() *LabelSet {
	return NewLabelSet(m.labels...)
}

// Select returns the rows of labels, in the given order.
// Labels without a row and repeated labels are skipped.
func (m *Matrix) Select(labels []string) *Matrix {
	b := NewBuilder(m.dim)
	for _, l := range labels {
		i, ok := m.index[l]
		if !ok || b.Contains(l) {
			continue
		}
		_ = b.Add(l, m.Row(i))
	}
	return b.MustBuild()
}

// Truncate keeps the first n rows and the first k columns.
// Values of n or k beyond the matrix size are clamped.
func (m *Matrix) Truncate(n, k int) (*Matrix, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: truncate to %d columns", ErrInvalidDimension, k)
	}
	n = min(max(n, 0), m.Len())
	k = min(k, m.dim)

	labels := slices.Clone(m.labels[:n])
	data := make([]float32, 0, n*k)
	for i := range n {
		data = append(data, m.Row(i)[:k]...)
	}
	return New(k, labels, data)
}

// SortByLabel returns the rows ordered by label.
func (m *Matrix) SortByLabel() *Matrix {
	order := make([]int, m.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return m.labels[order[a]] < m.labels[order[b]] })

	labels := make([]string, len(order))
	data := make([]float32, 0, len(m.data))
	for j, i := range order {
		labels[j] = m.labels[i]
		data = append(data, m.Row(i)...)
	}
	out, _ := New(m.dim, labels, data)
	return out
}

// Equal reports whether both matrices have the same labels in the same order
// and bit-identical values.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.dim != o.dim || !slices.Equal(m.labels, o.labels) || len(m.data) != len(o.data) {
		return false
	}
	for i, v := range m.data {
		if math.Float32bits(v) != math.Float32bits(o.data[i]) {
			return false
		}
	}
	return true
}

// String returns a short description.
func (m *Matrix) String() string {
	return fmt.Sprintf("Matrix(%d x %d)", m.Len(), m.dim)
}
