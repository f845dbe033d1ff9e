package rowfile

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows(n, dim int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(i)*0.5 - float32(j)*0.25
		}
		rows[i] = Row{Ordinal: uint64(n - i), Label: fmt.Sprintf("/c/en/term_%d", i), Vector: v}
	}
	return rows
}

func encode(t *testing.T, rows []Row, dim int, opts ...func(*Options)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, dim, opts...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(len(rows)), w.Rows())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	rows := sampleRows(2500, 7)

	for _, ct := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
		for _, ordinals := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/ordinals=%v", ct, ordinals), func(t *testing.T) {
				opts := []func(*Options){WithCompression(ct), WithBlockRows(1000)}
				if ordinals {
					opts = append(opts, WithOrdinals())
				}
				data := encode(t, rows, 7, opts...)

				tbl, err := Decode(data)
				require.NoError(t, err)
				assert.Equal(t, uint32(3), tbl.Header.Blocks)
				assert.Equal(t, ordinals, tbl.Header.HasOrdinals())
				require.Len(t, tbl.Labels, len(rows))

				for i, r := range rows {
					assert.Equal(t, r.Label, tbl.Labels[i])
					assert.Equal(t, r.Vector, tbl.Vector(i))
					if ordinals {
						assert.Equal(t, r.Ordinal, tbl.Ordinals[i])
					}
				}
				if !ordinals {
					assert.Nil(t, tbl.Ordinals)
				}
			})
		}
	}
}

func TestExactFloatBits(t *testing.T) {
	special := []float32{0, float32(math.Copysign(0, -1)), math.SmallestNonzeroFloat32, math.MaxFloat32, 1e-38, -3.4028235e38}
	data := encode(t, []Row{{Label: "x", Vector: special}}, len(special))

	tbl, err := Decode(data)
	require.NoError(t, err)
	for i, v := range special {
		assert.Equal(t, math.Float32bits(v), math.Float32bits(tbl.Data[i]))
	}
}

func TestEmptyAndZeroDim(t *testing.T) {
	tbl, err := Decode(encode(t, nil, 300))
	require.NoError(t, err)
	assert.Equal(t, 300, tbl.Header.Dim)
	assert.Empty(t, tbl.Labels)

	tbl, err = Decode(encode(t, []Row{{Label: "a"}, {Label: ""}}, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ""}, tbl.Labels)
}

func TestChecksumDetectsCorruption(t *testing.T) {
	data := encode(t, sampleRows(10, 4), 4, WithCompression(compress.None))
	data[HeaderSize+20] ^= 0xff

	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestBadMagicAndTruncation(t *testing.T) {
	data := encode(t, sampleRows(3, 2), 2)

	bad := bytes.Clone(data)
	bad[0] = 'X'
	_, err := Decode(bad)
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Decode(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Decode(data[:10])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestWriter_DimensionMismatch(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 3)
	require.NoError(t, err)

	err = w.Write(Row{Label: "a", Vector: []float32{1, 2}})
	assert.ErrorIs(t, err, ErrDimension)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(Row{Label: "b", Vector: []float32{1, 2, 3}}), ErrClosed)
}
