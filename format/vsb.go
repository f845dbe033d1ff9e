package format

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/internal/rowfile"
	"github.com/hupe1980/vecspace/space"
)

// VSB is the native binary format: an internal/rowfile container with
// CRC32C trailer and compressed blocks, memory-mapped on load.
type VSB struct {
	opts Options
}

func (*VSB) Name() string { return "vsb" }

func (*VSB) Extensions() []string { return []string{".vsb"} }

func (f *VSB) Load(ctx context.Context, path string) (*space.Matrix, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	b, err := blobstore.NewLocalStore(dir).Open(ctx, base)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	var data []byte
	if m, ok := b.(blobstore.Mappable); ok {
		data, err = m.Bytes()
	} else {
		data = make([]byte, b.Size())
		_, err = b.ReadAt(ctx, data, 0)
	}
	if err != nil {
		return nil, err
	}

	tbl, err := rowfile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	m, err := space.New(tbl.Header.Dim, tbl.Labels, tbl.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	if f.opts.MaxRows > 0 && m.Len() > f.opts.MaxRows {
		return m.Select(m.Labels()[:f.opts.MaxRows]), nil
	}
	return m, nil
}

func (f *VSB) Save(ctx context.Context, m *space.Matrix, path string) error {
	return createFile(ctx, path, func(w io.Writer) error {
		rw, err := rowfile.NewWriter(w, m.Dim(), rowfile.WithCompression(f.opts.Compression))
		if err != nil {
			return err
		}
		for i := range m.Len() {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := rw.Write(rowfile.Row{Label: m.Label(i), Vector: m.Row(i)}); err != nil {
				return err
			}
		}
		return rw.Close()
	})
}
