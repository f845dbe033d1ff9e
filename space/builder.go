package space

import "fmt"

// Builder accumulates rows for a new Matrix.
type Builder struct {
	dim    int
	labels []string
	data   []float32
	index  map[string]int
	built  bool
}

// NewBuilder returns a builder for vectors of width dim.
func NewBuilder(dim int) *Builder {
	return &Builder{dim: max(dim, 0), index: make(map[string]int)}
}

// Grow reserves space for n more rows.
func (b *Builder) Grow(n int) {
	if n <= 0 {
		return
	}
	if free := cap(b.labels) - len(b.labels); free < n {
		labels := make([]string, len(b.labels), len(b.labels)+n)
		copy(labels, b.labels)
		b.labels = labels
	}
	if free := cap(b.data) - len(b.data); free < n*b.dim {
		data := make([]float32, len(b.data), len(b.data)+n*b.dim)
		copy(data, b.data)
		b.data = data
	}
}

// Add appends a row, copying vec.
func (b *Builder) Add(label string, vec []float32) error {
	if b.built {
		return fmt.Errorf("space: builder already built")
	}
	if len(vec) != b.dim {
		return fmt.Errorf("%w: %q has %d values, want %d", ErrDimensionMismatch, label, len(vec), b.dim)
	}
	if _, dup := b.index[label]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	b.index[label] = len(b.labels)
	b.labels = append(b.labels, label)
	b.data = append(b.data, vec...)
	return nil
}

// Add64 appends a row given in float64, narrowing to float32.
func (b *Builder) Add64(label string, vec []float64) error {
	v := make([]float32, len(vec))
	for i, x := range vec {
		v[i] = float32(x)
	}
	return b.Add(label, v)
}

// Contains reports whether label was added.
func (b *Builder) Contains(label string) bool {
	_, ok := b.index[label]
	return ok
}

// Len returns the number of rows added.
func (b *Builder) Len() int { return len(b.labels) }

// Dim returns the vector width.
func (b *Builder) Dim() int { return b.dim }

// Build returns the matrix. The builder cannot be used afterwards.
func (b *Builder) Build() (*Matrix, error) {
	if b.built {
		return nil, fmt.Errorf("space: builder already built")
	}
	b.built = true
	return &Matrix{dim: b.dim, labels: b.labels, data: b.data, index: b.index}, nil
}

// MustBuild is Build for builders that cannot fail.
func (b *Builder) MustBuild() *Matrix {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}
