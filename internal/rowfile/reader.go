package rowfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/vecspace/internal/compress"
	vhash "github.com/hupe1980/vecspace/internal/hash"
)

// Header describes a container.
type Header struct {
	Version     uint16
	Flags       uint16
	Compression compress.Type
	Dim         int
	Rows        uint64
	Blocks      uint32
}

// HasOrdinals reports whether rows carry ordinals.
func (h Header) HasOrdinals() bool { return h.Flags&FlagOrdinals != 0 }

// Table is a fully decoded container.
// Data holds Rows*Dim values in row order; Ordinals is nil unless stored.
type Table struct {
	Header   Header
	Labels   []string
	Data     []float32
	Ordinals []uint64
}

// Vector returns row i. The slice aliases Table.Data.
func (t *Table) Vector(i int) []float32 {
	d := t.Header.Dim
	return t.Data[i*d : (i+1)*d : (i+1)*d]
}

// ReadHeader validates framing and checksum and returns the header.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize+TrailerSize {
		return h, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if [4]byte(data[0:4]) != headerMagic || [4]byte(data[len(data)-4:]) != trailerMagic {
		return h, ErrBadMagic
	}

	h.Version = binary.LittleEndian.Uint16(data[4:])
	if h.Version > Version {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	h.Flags = binary.LittleEndian.Uint16(data[6:])
	h.Compression = compress.Type(data[8])
	h.Dim = int(binary.LittleEndian.Uint32(data[12:]))

	crcOff := len(data) - 8
	want := binary.LittleEndian.Uint32(data[crcOff:])
	if got := vhash.CRC32C(data[:crcOff]); got != want {
		return h, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, want)
	}

	tr := data[len(data)-TrailerSize:]
	h.Rows = binary.LittleEndian.Uint64(tr[0:])
	h.Blocks = binary.LittleEndian.Uint32(tr[8:])
	return h, nil
}

// Decode parses a whole container.
func Decode(data []byte) (*Table, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Rows > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d rows in %d bytes", ErrCorrupt, h.Rows, len(data))
	}

	n := int(h.Rows)
	t := &Table{
		Header: h,
		Labels: make([]string, 0, n),
		Data:   make([]float32, 0, n*h.Dim),
	}
	if h.HasOrdinals() {
		t.Ordinals = make([]uint64, 0, n)
	}

	body := data[HeaderSize : len(data)-TrailerSize]
	for b := uint32(0); b < h.Blocks; b++ {
		if len(body) < 4 {
			return nil, fmt.Errorf("%w: block %d header", ErrCorrupt, b)
		}
		count := int(binary.LittleEndian.Uint32(body))
		payload, used, err := compress.Unblock(body[4:], h.Compression)
		if err != nil {
			return nil, fmt.Errorf("rowfile: block %d: %w", b, err)
		}
		body = body[4+used:]

		if err := t.decodeBlock(payload, count); err != nil {
			return nil, fmt.Errorf("rowfile: block %d: %w", b, err)
		}
	}

	if len(body) != 0 || len(t.Labels) != n {
		return nil, fmt.Errorf("%w: decoded %d of %d rows", ErrCorrupt, len(t.Labels), n)
	}
	return t, nil
}

func (t *Table) decodeBlock(p []byte, count int) error {
	dim := t.Header.Dim
	for range count {
		if t.Ordinals != nil {
			if len(p) < 8 {
				return ErrCorrupt
			}
			t.Ordinals = append(t.Ordinals, binary.LittleEndian.Uint64(p))
			p = p[8:]
		}

		l, k := binary.Uvarint(p)
		if k <= 0 || uint64(len(p)-k) < l {
			return ErrCorrupt
		}
		p = p[k:]
		t.Labels = append(t.Labels, string(p[:l]))
		p = p[l:]

		if len(p) < 4*dim {
			return ErrCorrupt
		}
		for j := range dim {
			t.Data = append(t.Data, math.Float32frombits(binary.LittleEndian.Uint32(p[4*j:])))
		}
		p = p[4*dim:]
	}
	if len(p) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(p))
	}
	return nil
}
