package merge

import (
	"fmt"
	"io"
	"log/slog"
)

// Blend selects how interpolation combines a label present in both inputs.
type Blend int

const (
	// BlendAverage takes the arithmetic mean.
	BlendAverage Blend = iota
	// BlendWeighted takes the mean weighted by Options.Weights.
	BlendWeighted
)

func (b Blend) String() string {
	switch b {
	case BlendAverage:
		return "average"
	case BlendWeighted:
		return "weighted"
	default:
		return fmt.Sprintf("Blend(%d)", int(b))
	}
}

// ParseBlend resolves a blend rule by name.
func ParseBlend(s string) (Blend, error) {
	switch s {
	case "", "average", "avg":
		return BlendAverage, nil
	case "weighted":
		return BlendWeighted, nil
	default:
		return 0, fmt.Errorf("%w: blend %q", ErrInvalidOption, s)
	}
}

// Options configures Interpolate and Intersect.
type Options struct {
	// VocabThreshold is the minimum number of target labels an interpolation
	// input must cover to contribute.
	VocabThreshold int
	Blend          Blend
	// Weights are the input weights for BlendWeighted.
	Weights [2]float64
	// Ridge is the regularization of projector fits, relative to the mean
	// diagonal of XᵀX.
	Ridge float64
	// Normalize L2-normalizes each input block before intersecting.
	Normalize bool
	Verbosity int
	Logger    *slog.Logger
}

// DefaultOptions are the defaults used by Interpolate and Intersect.
var DefaultOptions = Options{
	VocabThreshold: 50000,
	Blend:          BlendAverage,
	Weights:        [2]float64{1, 1},
	Ridge:          1e-3,
	Normalize:      true,
}

// WithVocabThreshold sets the minimum target coverage of an input.
func WithVocabThreshold(n int) func(*Options) {
	return func(o *Options) { o.VocabThreshold = n }
}

// WithBlend sets the blend rule.
func WithBlend(b Blend) func(*Options) {
	return func(o *Options) { o.Blend = b }
}

// WithWeights selects BlendWeighted with the given input weights.
func WithWeights(a, b float64) func(*Options) {
	return func(o *Options) {
		o.Blend = BlendWeighted
		o.Weights = [2]float64{a, b}
	}
}

// WithRidge sets the relative ridge regularization.
func WithRidge(r float64) func(*Options) {
	return func(o *Options) { o.Ridge = r }
}

// WithNormalize toggles per-block L2 normalization in Intersect.
func WithNormalize(on bool) func(*Options) {
	return func(o *Options) { o.Normalize = on }
}

// WithVerbosity sets the logging verbosity.
func WithVerbosity(v int) func(*Options) {
	return func(o *Options) { o.Verbosity = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(optFns []func(*Options)) (Options, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch {
	case opts.VocabThreshold < 0:
		return opts, fmt.Errorf("%w: vocab threshold %d", ErrInvalidOption, opts.VocabThreshold)
	case opts.Ridge < 0:
		return opts, fmt.Errorf("%w: ridge %g", ErrInvalidOption, opts.Ridge)
	case opts.Verbosity < 0:
		return opts, fmt.Errorf("%w: verbosity %d", ErrInvalidOption, opts.Verbosity)
	case opts.Blend != BlendAverage && opts.Blend != BlendWeighted:
		return opts, fmt.Errorf("%w: %s", ErrInvalidOption, opts.Blend)
	}
	if opts.Blend == BlendWeighted {
		w := opts.Weights
		if w[0] < 0 || w[1] < 0 || w[0]+w[1] <= 0 {
			return opts, fmt.Errorf("%w: weights %v", ErrInvalidOption, w)
		}
	}
	return opts, nil
}
