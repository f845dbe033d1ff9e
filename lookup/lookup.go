// Package lookup wraps a labeled matrix for single-term vector lookups that
// never fail: exact label first, then a chain of label normalizers, then a
// zero vector.
package lookup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/hupe1980/vecspace/internal/cache"
	"github.com/hupe1980/vecspace/label"
	"github.com/hupe1980/vecspace/space"
)

// ErrNilMatrix is returned by New for a nil matrix.
var ErrNilMatrix = errors.New("lookup: nil matrix")

// Step tells how a term was resolved.
type Step int

const (
	// StepExact means the term is a row label.
	StepExact Step = iota
	// StepNormalized means a normalizer produced a row label.
	StepNormalized
	// StepMissing means nothing matched; the zero vector is returned.
	StepMissing
)

func (s Step) String() string {
	switch s {
	case StepExact:
		return "exact"
	case StepNormalized:
		return "normalized"
	case StepMissing:
		return "missing"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Normalizer rewrites a candidate label. Normalizers run as a pipeline:
// each receives the previous one's output.
type Normalizer struct {
	Name string
	Fn   func(string) string
}

// Standardizer normalizes free text into a concept label of language lang.
func Standardizer(lang string) Normalizer {
	return Normalizer{Name: "standardize", Fn: func(s string) string { return label.Standardize(s, lang) }}
}

// Prefixer strips part-of-speech and sense components.
func Prefixer() Normalizer {
	return Normalizer{Name: "prefix", Fn: label.Prefix}
}

// Options configures a Wrapper.
type Options struct {
	// Language is used by the default standardizer. Default "en".
	Language string
	// Normalizers replaces the default chain (standardize, prefix).
	Normalizers []Normalizer
	// CacheSize bounds the resolution cache. 0 disables caching.
	CacheSize int
	Logger    *slog.Logger
}

// DefaultOptions are the defaults used by New.
var DefaultOptions = Options{
	Language:  "en",
	CacheSize: 4096,
}

// WithLanguage sets the language of the default standardizer.
func WithLanguage(lang string) func(*Options) {
	return func(o *Options) { o.Language = lang }
}

// WithNormalizers replaces the normalizer chain. An empty chain disables
// normalization.
func WithNormalizers(ns ...Normalizer) func(*Options) {
	return func(o *Options) { o.Normalizers = append([]Normalizer{}, ns...) }
}

// WithCacheSize bounds the resolution cache.
func WithCacheSize(n int) func(*Options) {
	return func(o *Options) { o.CacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// Resolution describes how a term was resolved.
type Resolution struct {
	Term string
	// Label is the matched row label, empty for StepMissing.
	Label string
	Step  Step
	// Normalizer names the normalizer that produced Label.
	Normalizer string
	row        int
}

// Wrapper resolves terms against a matrix. It is safe for concurrent use.
type Wrapper struct {
	m      *space.Matrix
	chain  []Normalizer
	cache  *cache.Sharded[Resolution]
	logger *slog.Logger
}

// New wraps m.
func New(m *space.Matrix, optFns ...func(*Options)) (*Wrapper, error) {
	if m == nil {
		return nil, ErrNilMatrix
	}
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	chain := opts.Normalizers
	if chain == nil {
		chain = []Normalizer{Standardizer(opts.Language), Prefixer()}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Wrapper{m: m, chain: chain, logger: logger}
	if opts.CacheSize > 0 {
		w.cache = cache.NewSharded[Resolution](opts.CacheSize)
	}
	return w, nil
}

// Matrix returns the wrapped matrix.
func (w *Wrapper) Matrix() *space.Matrix { return w.m }

// Resolve reports which row term maps to.
func (w *Wrapper) Resolve(term string) Resolution {
	if i, ok := w.m.Index(term); ok {
		return Resolution{Term: term, Label: term, Step: StepExact, row: i}
	}
	if w.cache != nil {
		if r, ok := w.cache.Get(term); ok {
			return r
		}
	}

	r := Resolution{Term: term, Step: StepMissing, row: -1}
	cand := term
	for _, n := range w.chain {
		cand = n.Fn(cand)
		if i, ok := w.m.Index(cand); ok {
			r = Resolution{Term: term, Label: cand, Step: StepNormalized, Normalizer: n.Name, row: i}
			break
		}
	}
	if r.Step == StepMissing {
		w.logger.Debug("term not found", "term", term)
	}

	if w.cache != nil {
		w.cache.Set(term, r)
	}
	return r
}

// GetVector returns the vector of term, or a zero vector of the matrix
// width when nothing matches. The result is a copy.
func (w *Wrapper) GetVector(term string) []float32 {
	r := w.Resolve(term)
	if r.row < 0 {
		return make([]float32, w.m.Dim())
	}
	return slices.Clone(w.m.Row(r.row))
}

// Contains reports whether term resolves to a row.
func (w *Wrapper) Contains(term string) bool {
	return w.Resolve(term).Step != StepMissing
}

// CacheStats returns resolution cache hits and misses.
func (w *Wrapper) CacheStats() (hits, misses int64) {
	if w.cache == nil {
		return 0, 0
	}
	return w.cache.Stats()
}
