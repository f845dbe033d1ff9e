package format

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/space"
)

// Word2Vec is the word2vec binary format: a "rows dim" header line, then
// per row the label, a space and dim little-endian float32 values.
type Word2Vec struct {
	opts Options
}

func (*Word2Vec) Name() string { return "word2vec" }

func (*Word2Vec) Extensions() []string { return []string{".bin", ".w2v"} }

func (f *Word2Vec) Load(ctx context.Context, path string) (*space.Matrix, error) {
	rc, err := graph.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	r := bufio.NewReaderSize(rc, 1<<20)

	header, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %w", ErrMalformed, path, err)
	}
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: %s header %q", ErrMalformed, path, strings.TrimSpace(header))
	}
	rows, err1 := strconv.Atoi(fields[0])
	dim, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || rows < 0 || dim <= 0 {
		return nil, fmt.Errorf("%w: %s header %q", ErrMalformed, path, strings.TrimSpace(header))
	}
	if f.opts.MaxRows > 0 {
		rows = min(rows, f.opts.MaxRows)
	}

	b := space.NewBuilder(dim)
	b.Grow(min(rows, 1<<20))
	raw := make([]byte, 4*dim)
	vec := make([]float32, dim)
	dupes := 0
	for i := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		label, err := readWord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrMalformed, path, i, err)
		}
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrMalformed, path, i, err)
		}
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[j*4:]))
		}
		if b.Contains(label) {
			dupes++
			continue
		}
		if err := b.Add(label, vec); err != nil {
			return nil, err
		}
	}
	if dupes > 0 {
		f.opts.Logger.Warn("skipped duplicate word2vec rows", "path", path, "duplicates", dupes)
	}
	return b.Build()
}

// readWord reads a label terminated by a space, skipping the newline that
// may end the previous row.
func readWord(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch {
		case c == ' ':
			if sb.Len() == 0 {
				continue
			}
			return sb.String(), nil
		case c == '\n' && sb.Len() == 0:
			continue
		default:
			sb.WriteByte(c)
		}
	}
}

func (f *Word2Vec) Save(ctx context.Context, m *space.Matrix, path string) error {
	if m.Dim() == 0 {
		return fmt.Errorf("format: word2vec cannot store zero-width rows")
	}
	return createFile(ctx, path, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "%d %d\n", m.Len(), m.Dim()); err != nil {
			return err
		}
		buf := make([]byte, 0, 64+4*m.Dim())
		for i := range m.Len() {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			l := m.Label(i)
			if l == "" || strings.ContainsAny(l, " \n") {
				return fmt.Errorf("format: word2vec label %q is empty or contains a space or newline", l)
			}
			buf = append(buf[:0], l...)
			buf = append(buf, ' ')
			for _, v := range m.Row(i) {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
			}
			buf = append(buf, '\n')
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
		return nil
	})
}
