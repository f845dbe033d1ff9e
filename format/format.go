// Package format loads and saves labeled matrices in the supported on-disk
// formats:
//
//	vsb       checksummed, compressed binary row file (.vsb)
//	text      one "label v1 v2 ..." line per row, GloVe style (.txt, .vec)
//	word2vec  word2vec binary (.bin)
//	sqlite    SQLite table with little-endian float32 BLOBs (.sqlite, .db)
//
// Text files may be gzip or zstd compressed (.gz, .zst).
package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/hupe1980/vecspace/space"
)

var (
	// ErrUnknownFormat is returned when no format matches a name or path.
	ErrUnknownFormat = errors.New("format: unknown format")
	// ErrMalformed is returned when a file cannot be parsed or holds no
	// usable row.
	ErrMalformed = errors.New("format: malformed input")
)

// Format loads and saves matrices.
type Format interface {
	Name() string
	Extensions() []string
	Load(ctx context.Context, path string) (*space.Matrix, error)
	Save(ctx context.Context, m *space.Matrix, path string) error
}

// Options configures formats.
type Options struct {
	// MaxRows stops loading after this many rows. 0 loads everything.
	MaxRows int
	// Compression is the block compression of vsb files.
	Compression compress.Type
	Logger      *slog.Logger
}

// DefaultOptions are the defaults used by ByName and ForPath.
var DefaultOptions = Options{
	Compression: compress.ZSTD,
}

// WithMaxRows limits the number of rows loaded.
func WithMaxRows(n int) func(*Options) {
	return func(o *Options) { o.MaxRows = n }
}

// WithCompression sets the vsb block compression.
func WithCompression(t compress.Type) func(*Options) {
	return func(o *Options) { o.Compression = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

type constructor func(Options) Format

var registry = map[string]constructor{
	"vsb":      func(o Options) Format { return &VSB{opts: o} },
	"text":     func(o Options) Format { return &Text{opts: o} },
	"word2vec": func(o Options) Format { return &Word2Vec{opts: o} },
	"sqlite":   func(o Options) Format { return &SQLite{opts: o} },
}

var aliases = map[string]string{
	"glove": "text",
	"txt":   "text",
	"w2v":   "word2vec",
	"bin":   "word2vec",
	"db":    "sqlite",
}

// Names returns the registered format names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ByName returns the format registered under name.
func ByName(name string, optFns ...func(*Options)) (Format, error) {
	name = strings.ToLower(name)
	if a, ok := aliases[name]; ok {
		name = a
	}
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
	}
	return c(buildOptions(optFns)), nil
}

// ForPath picks the format from the file extension. A trailing .gz or .zst
// is ignored.
func ForPath(path string, optFns ...func(*Options)) (Format, error) {
	ext := strings.ToLower(filepath.Ext(stripCompression(path)))
	opts := buildOptions(optFns)
	for _, name := range Names() {
		f := registry[name](opts)
		if slices.Contains(f.Extensions(), ext) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: no format for %q", ErrUnknownFormat, path)
}

// Resolve returns ByName(name) when name is set and ForPath(path) otherwise.
func Resolve(name, path string, optFns ...func(*Options)) (Format, error) {
	if name != "" {
		return ByName(name, optFns...)
	}
	return ForPath(path, optFns...)
}

// Load reads path with the format chosen by its extension.
func Load(ctx context.Context, path string, optFns ...func(*Options)) (*space.Matrix, error) {
	f, err := ForPath(path, optFns...)
	if err != nil {
		return nil, err
	}
	return f.Load(ctx, path)
}

// Save writes m to path with the format chosen by its extension.
func Save(ctx context.Context, m *space.Matrix, path string, optFns ...func(*Options)) error {
	f, err := ForPath(path, optFns...)
	if err != nil {
		return err
	}
	return f.Save(ctx, m, path)
}

func buildOptions(optFns []func(*Options)) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return opts
}

func stripCompression(path string) string {
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

func limitReached(opts Options, n int) bool {
	return opts.MaxRows > 0 && n >= opts.MaxRows
}
