package format

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/space"
)

const maxLineBytes = 64 << 20

// Text is the GloVe-style text format: one "label v1 v2 ..." line per row,
// separated by single spaces. A leading "rows dim" header line, as written
// by word2vec in text mode, is accepted and skipped.
//
// Malformed lines and repeated labels are skipped and counted.
type Text struct {
	opts Options
}

func (*Text) Name() string { return "text" }

func (*Text) Extensions() []string { return []string{".txt", ".vec", ".glove"} }

func (f *Text) Load(ctx context.Context, path string) (*space.Matrix, error) {
	rc, err := graph.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 1<<16), maxLineBytes)

	var (
		b         *space.Builder
		dim       = -1
		line      int
		malformed int
		dupes     int
		vec       []float32
	)
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				if d, err := strconv.Atoi(fields[1]); err == nil && d > 0 {
					dim = d
					continue
				}
			}
		}

		label, values := fields[0], fields[1:]
		if dim < 0 {
			dim = len(values)
		}
		if len(values) != dim || dim == 0 {
			malformed++
			continue
		}
		if b == nil {
			b = space.NewBuilder(dim)
			vec = make([]float32, dim)
		}
		if !parseFloats(vec, values) {
			malformed++
			continue
		}
		if b.Contains(label) {
			dupes++
			continue
		}
		if err := b.Add(label, vec); err != nil {
			return nil, err
		}
		if limitReached(f.opts, b.Len()) {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s line %d: %w", ErrMalformed, path, line+1, err)
	}

	if malformed > 0 || dupes > 0 {
		f.opts.Logger.Warn("skipped text rows", "path", path, "malformed", malformed, "duplicates", dupes)
	}
	if b == nil || b.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no usable rows (%d malformed)", ErrMalformed, path, malformed)
	}
	return b.Build()
}

func parseFloats(dst []float32, fields []string) bool {
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return false
		}
		dst[i] = float32(v)
	}
	return true
}

func (f *Text) Save(ctx context.Context, m *space.Matrix, path string) error {
	if m.Dim() == 0 {
		return fmt.Errorf("format: text cannot store zero-width rows")
	}
	return createFile(ctx, path, func(w io.Writer) error {
		buf := make([]byte, 0, 16*m.Dim())
		for i := range m.Len() {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			l := m.Label(i)
			if l == "" || strings.ContainsFunc(l, unicode.IsSpace) {
				return fmt.Errorf("format: text label %q is empty or contains whitespace", l)
			}
			buf = append(buf[:0], l...)
			for _, v := range m.Row(i) {
				buf = append(buf, ' ')
				buf = strconv.AppendFloat(buf, float64(v), 'g', -1, 32)
			}
			buf = append(buf, '\n')
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
		return nil
	})
}
