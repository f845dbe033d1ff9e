package format

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/vecspace/blobstore"
)

const writeBufferSize = 1 << 20

// createFile writes path atomically: write streams into a temporary file
// that replaces path only when write succeeds. ".gz" and ".zst" paths are
// compressed.
func createFile(ctx context.Context, path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	w, err := blobstore.NewLocalStore(dir).Create(ctx, base)
	if err != nil {
		return err
	}

	var out io.Writer = w
	var zc io.Closer
	switch lower := strings.ToLower(base); {
	case strings.HasSuffix(lower, ".gz"):
		gz := gzip.NewWriter(w)
		out, zc = gz, gz
	case strings.HasSuffix(lower, ".zst"):
		zw, err := zstd.NewWriter(w)
		if err != nil {
			_ = blobstore.Discard(w)
			return err
		}
		out, zc = zw, zw
	}

	bw := bufio.NewWriterSize(out, writeBufferSize)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil && zc != nil {
		err = zc.Close()
	}
	if err != nil {
		_ = blobstore.Discard(w)
		return err
	}
	return w.Close()
}
