package space

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := New(2, []string{"/c/en/dog", "/c/en/cat", "/c/en/ant"}, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	m := testMatrix(t)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.Dim())
	assert.Equal(t, "/c/en/cat", m.Label(1))

	i, ok := m.Index("/c/en/ant")
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, []float32{5, 6}, m.Row(i))

	v, ok := m.Vector("/c/en/dog")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)

	_, ok = m.Vector("/c/en/cow")
	assert.False(t, ok)
	assert.Equal(t, "Matrix(3 x 2)", m.String())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(2, []string{"a", "a"}, []float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrDuplicateLabel)

	_, err = New(2, []string{"a"}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = New(-1, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestRow_CapacityClipped(t *testing.T) {
	m := testMatrix(t)
	r := m.Row(0)
	r = append(r, 99)
	assert.Equal(t, []float32{3, 4}, m.Row(1), "append to a row view must not clobber the next row")
	assert.Len(t, r, 3)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(3)
	b.Grow(2)
	require.NoError(t, b.Add("x", []float32{1, 2, 3}))
	require.NoError(t, b.Add64("y", []float64{0.5, 0.25, 0.125}))
	assert.ErrorIs(t, b.Add("x", []float32{0, 0, 0}), ErrDuplicateLabel)
	assert.ErrorIs(t, b.Add("z", []float32{0}), ErrDimensionMismatch)
	assert.True(t, b.Contains("y"))
	assert.Equal(t, 2, b.Len())

	m, err := b.Build()
	require.NoError(t, err)
	v, _ := m.Vector("y")
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, v)

	_, err = b.Build()
	assert.Error(t, err)
	assert.Error(t, b.Add("w", []float32{1, 2, 3}))
}

func TestSelect(t *testing.T) {
	m := testMatrix(t)
	s := m.Select([]string{"/c/en/ant", "/c/en/cow", "/c/en/dog", "/c/en/ant"})
	assert.Equal(t, []string{"/c/en/ant", "/c/en/dog"}, s.Labels())
	assert.Equal(t, []float32{5, 6, 1, 2}, s.Data())
}

func TestTruncateAndSort(t *testing.T) {
	m := testMatrix(t)

	tr, err := m.Truncate(2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/c/en/dog", "/c/en/cat"}, tr.Labels())
	assert.Equal(t, []float32{1, 3}, tr.Data())

	all, err := m.Truncate(1000000, 300)
	require.NoError(t, err)
	assert.True(t, all.Equal(m))

	_, err = m.Truncate(1, 0)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	sorted := m.SortByLabel()
	assert.Equal(t, []string{"/c/en/ant", "/c/en/cat", "/c/en/dog"}, sorted.Labels())
	assert.Equal(t, []float32{5, 6, 3, 4, 1, 2}, sorted.Data())
}

func TestCloneEqual(t *testing.T) {
	m := testMatrix(t)
	c := m.Clone()
	assert.True(t, m.Equal(c))

	c.Data()[0] = 42
	assert.False(t, m.Equal(c))
	assert.Equal(t, float32(1), m.Row(0)[0])

	dst := m.CopyRow(2, nil)
	assert.Equal(t, []float32{5, 6}, dst)

	assert.False(t, m.Equal(m.SortByLabel()))
	assert.True(t, Empty(2).Equal(Empty(2)))
}
