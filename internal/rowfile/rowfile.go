package rowfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"math"

	"github.com/hupe1980/vecspace/internal/compress"
	vhash "github.com/hupe1980/vecspace/internal/hash"
)

const (
	// Version is the current container version.
	Version = 1

	// HeaderSize is the fixed header size in bytes.
	HeaderSize = 16
	// TrailerSize is the fixed trailer size in bytes.
	TrailerSize = 20

	// DefaultBlockRows is the number of rows per compressed block.
	DefaultBlockRows = 1024

	// FlagOrdinals marks files that store a row ordinal per row.
	FlagOrdinals uint16 = 1 << 0
)

var (
	headerMagic  = [4]byte{'V', 'S', 'R', 'W'}
	trailerMagic = [4]byte{'V', 'S', 'R', 'E'}
)

var (
	// ErrBadMagic is returned when data is not a rowfile.
	ErrBadMagic = errors.New("rowfile: bad magic")
	// ErrUnsupportedVersion is returned for files written by a newer version.
	ErrUnsupportedVersion = errors.New("rowfile: unsupported version")
	// ErrChecksum is returned when the trailer checksum does not match.
	ErrChecksum = errors.New("rowfile: checksum mismatch")
	// ErrCorrupt is returned when the structure is inconsistent.
	ErrCorrupt = errors.New("rowfile: corrupt file")
	// ErrDimension is returned when a row does not have the file's dimension.
	ErrDimension = errors.New("rowfile: dimension mismatch")
	// ErrClosed is returned when writing to a closed Writer.
	ErrClosed = errors.New("rowfile: writer closed")
)

// Row is one labeled vector.
type Row struct {
	Ordinal uint64
	Label   string
	Vector  []float32
}

// Options configures a Writer.
type Options struct {
	Compression compress.Type
	Ordinals    bool
	BlockRows   int
}

// DefaultOptions are zstd compression, no ordinals and DefaultBlockRows.
var DefaultOptions = Options{
	Compression: compress.ZSTD,
	BlockRows:   DefaultBlockRows,
}

// WithCompression sets the block compression.
func WithCompression(t compress.Type) func(*Options) {
	return func(o *Options) { o.Compression = t }
}

// WithOrdinals stores Row.Ordinal for every row.
func WithOrdinals() func(*Options) {
	return func(o *Options) { o.Ordinals = true }
}

// WithBlockRows sets the number of rows per block.
func WithBlockRows(n int) func(*Options) {
	return func(o *Options) { o.BlockRows = n }
}

// Writer streams rows into a container.
type Writer struct {
	w      *bufio.Writer
	crc    hash.Hash32
	opts   Options
	dim    int
	block  []byte
	inBlk  int
	rows   uint64
	blocks uint32
	closed bool
	err    error
}

// NewWriter writes the header to w and returns a Writer for vectors of width dim.
func NewWriter(w io.Writer, dim int, optFns ...func(*Options)) (*Writer, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if dim < 0 {
		return nil, fmt.Errorf("%w: negative dimension %d", ErrDimension, dim)
	}
	if opts.BlockRows <= 0 {
		opts.BlockRows = DefaultBlockRows
	}

	rw := &Writer{
		w:    bufio.NewWriter(w),
		crc:  vhash.NewCRC32C(),
		opts: opts,
		dim:  dim,
	}

	var hdr [HeaderSize]byte
	copy(hdr[0:4], headerMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:], Version)
	var flags uint16
	if opts.Ordinals {
		flags |= FlagOrdinals
	}
	binary.LittleEndian.PutUint16(hdr[6:], flags)
	hdr[8] = byte(opts.Compression)
	binary.LittleEndian.PutUint32(hdr[12:], uint32(dim))

	if err := rw.put(hdr[:]); err != nil {
		return nil, err
	}
	return rw, nil
}

func (w *Writer) put(p []byte) error {
	_, _ = w.crc.Write(p)
	if _, err := w.w.Write(p); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Write appends one row.
func (w *Writer) Write(row Row) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if len(row.Vector) != w.dim {
		return fmt.Errorf("%w: row %q has %d values, want %d", ErrDimension, row.Label, len(row.Vector), w.dim)
	}

	if w.opts.Ordinals {
		w.block = binary.LittleEndian.AppendUint64(w.block, row.Ordinal)
	}
	w.block = binary.AppendUvarint(w.block, uint64(len(row.Label)))
	w.block = append(w.block, row.Label...)
	for _, v := range row.Vector {
		w.block = binary.LittleEndian.AppendUint32(w.block, math.Float32bits(v))
	}
	w.rows++
	w.inBlk++

	if w.inBlk >= w.opts.BlockRows {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if w.inBlk == 0 {
		return nil
	}
	framed, err := compress.Block(w.block, w.opts.Compression)
	if err != nil {
		w.err = err
		return err
	}
	var cnt [4]byte
	binary.LittleEndian.PutUint32(cnt[:], uint32(w.inBlk))
	if err := w.put(cnt[:]); err != nil {
		return err
	}
	if err := w.put(framed); err != nil {
		return err
	}
	w.blocks++
	w.block = w.block[:0]
	w.inBlk = 0
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() uint64 { return w.rows }

// Close flushes the last block and writes the trailer.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	if err := w.flush(); err != nil {
		return err
	}

	var tr [12]byte
	binary.LittleEndian.PutUint64(tr[0:], w.rows)
	binary.LittleEndian.PutUint32(tr[8:], w.blocks)
	if err := w.put(tr[:]); err != nil {
		return err
	}

	var tail [8]byte
	binary.LittleEndian.PutUint32(tail[0:], w.crc.Sum32())
	copy(tail[4:], trailerMagic[:])
	if _, err := w.w.Write(tail[:]); err != nil {
		w.err = err
		return err
	}
	if err := w.w.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}
