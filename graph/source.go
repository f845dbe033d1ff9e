package graph

import (
	"bufio"
	"context"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// EdgeSource yields relation records. A yielded error wrapping
// ErrMalformedRecord is skipped by Build; any other error is fatal.
type EdgeSource interface {
	Edges(ctx context.Context) iter.Seq2[Edge, error]
}

// SliceSource is an in-memory edge list.
type SliceSource []Edge

// Edges yields every edge in order.
func (s SliceSource) Edges(ctx context.Context) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		for _, e := range s {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Opener opens the byte stream behind a file-based source.
type Opener func() (io.ReadCloser, error)

// OpenFile opens path, decompressing ".gz" and ".zst" files transparently.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zstdCloser{zr}, f}}, nil
	default:
		return f, nil
	}
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

// maxLine bounds a single record; ConceptNet info columns can be long.
const maxLine = 16 << 20

// lines yields the non-empty, non-comment lines of the opened stream with
// their 1-based line numbers.
func lines(ctx context.Context, open Opener, yield func(int, string) bool) error {
	rc, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	n := 0
	for sc.Scan() {
		n++
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !yield(n, line) {
			return nil
		}
	}
	return sc.Err()
}

// TSVSource reads "from<TAB>to[<TAB>weight]" lines. Lines starting with
// '#' are comments; a missing weight means 1.
type TSVSource struct {
	open Opener
}

// NewTSVSource reads edges from r. The source can be iterated once.
func NewTSVSource(r io.Reader) *TSVSource {
	return &TSVSource{open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil }}
}

// TSVFile reads edges from a file, opened on each iteration.
func TSVFile(path string) *TSVSource {
	return &TSVSource{open: func() (io.ReadCloser, error) { return OpenFile(path) }}
}

// Edges yields one edge per line.
func (s *TSVSource) Edges(ctx context.Context) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		stopped := false
		err := lines(ctx, s.open, func(n int, line string) bool {
			e, err := parseTSV(n, line)
			if !yield(e, err) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Edge{}, err)
		}
	}
}

func parseTSV(n int, line string) (Edge, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 || len(fields) > 3 {
		return Edge{}, &RecordError{Line: n, Reason: "want 2 or 3 tab-separated fields, got " + strconv.Itoa(len(fields))}
	}
	e := Edge{From: strings.TrimSpace(fields[0]), To: strings.TrimSpace(fields[1]), Weight: 1}
	if len(fields) == 3 {
		w, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return Edge{}, &RecordError{Line: n, Reason: "bad weight " + strconv.Quote(fields[2])}
		}
		e.Weight = w
	}
	return e, nil
}
