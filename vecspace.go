package vecspace

import (
	"context"
	"strconv"
	"time"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/lookup"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/retrofit"
	"github.com/hupe1980/vecspace/space"
)

// Retrofit propagates the relation graph g into m and returns the
// retrofitted matrix with a run report. m is not modified.
//
// With WithCheckpoint the result is also persisted and committed.
func Retrofit(ctx context.Context, m *space.Matrix, g *graph.Graph, optFns ...Option) (*retrofit.Result, error) {
	o := applyOptions(optFns)

	fns := []func(*retrofit.Options){
		retrofit.WithLogger(o.logger.Logger),
		retrofit.WithObserver(metricsObserver{mc: o.metricsCollector, logger: o.logger}),
	}
	if cp := o.checkpointer(); cp != nil {
		fns = append(fns, retrofit.WithCheckpointer(cp))
	}
	fns = append(fns, o.retrofit...)

	eng, err := retrofit.New(fns...)
	if err != nil {
		err = translateError(err)
		o.logger.LogRetrofit(ctx, nil, err)
		return nil, err
	}

	res, err := eng.Run(ctx, m, g)
	if err != nil {
		err = translateError(err)
		o.logger.LogRetrofit(ctx, nil, err)
		return nil, err
	}
	o.logger.LogRetrofit(ctx, &res.Report, nil)
	return res, nil
}

// JoinRetrofit assembles the committed checkpoint under prefix into one
// matrix in the original row order. nshards must match the run that
// wrote it; 0 accepts any shard count.
func JoinRetrofit(ctx context.Context, store blobstore.Store, prefix string, nshards int, optFns ...Option) (*space.Matrix, error) {
	o := applyOptions(optFns)
	start := time.Now()

	cp := newCheckpointer(&o, store, prefix, nil)
	m, err := cp.Join(ctx, nshards)
	rows := 0
	if m != nil {
		rows = m.Len()
	}
	err = translateError(err)
	o.metricsCollector.RecordJoin(rows, time.Since(start), err)
	o.logger.LogJoin(ctx, prefix, rows, err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Interpolate merges a and b over the target vocabulary, typically the
// labels of a relation graph. Inputs covering fewer target labels than the
// vocabulary threshold are excluded and reported in the diagnostics.
func Interpolate(ctx context.Context, a, b *space.Matrix, target *space.LabelSet, optFns ...Option) (*merge.InterpolateResult, error) {
	if target == nil {
		return nil, &ConfigurationError{Param: "target", Reason: "nil label set"}
	}
	return interpolate(ctx, "interpolate", a, b, target, optFns)
}

// InterpolateAll merges a and b over the union of their labels.
func InterpolateAll(ctx context.Context, a, b *space.Matrix, optFns ...Option) (*merge.InterpolateResult, error) {
	return interpolate(ctx, "interpolate_all", a, b, nil, optFns)
}

func interpolate(ctx context.Context, op string, a, b *space.Matrix, target *space.LabelSet, optFns []Option) (*merge.InterpolateResult, error) {
	o := applyOptions(optFns)
	start := time.Now()

	fns := append([]func(*merge.Options){merge.WithLogger(o.logger.Logger)}, o.merge...)
	res, err := merge.Interpolate(ctx, a, b, target, fns...)
	err = translateError(err)

	rows, dim := 0, 0
	if res != nil {
		rows, dim = res.Matrix.Len(), res.Matrix.Dim()
		for _, d := range res.Diagnostics {
			o.logger.LogCoverage(ctx, d)
		}
	}
	o.metricsCollector.RecordMerge(op, rows, time.Since(start), err)
	o.logger.LogMerge(ctx, op, rows, dim, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Intersect projects the labels shared by all mats into a common space of
// at most dim columns, and fits a projector per input.
func Intersect(ctx context.Context, mats []*space.Matrix, dim int, optFns ...Option) (*merge.IntersectResult, error) {
	o := applyOptions(optFns)
	start := time.Now()

	fns := append([]func(*merge.Options){merge.WithLogger(o.logger.Logger)}, o.merge...)
	res, err := merge.Intersect(ctx, mats, dim, fns...)
	err = translateError(err)

	rows, k := 0, 0
	if res != nil {
		rows, k = res.Matrix.Len(), res.K
	}
	o.metricsCollector.RecordMerge("intersect", rows, time.Since(start), err)
	o.logger.LogMerge(ctx, "intersect", rows, k, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Lookup resolves free-text terms against a matrix.
type Lookup struct {
	*lookup.Wrapper
}

// NewLookup wraps m for term lookup.
func NewLookup(m *space.Matrix, optFns ...Option) (*Lookup, error) {
	o := applyOptions(optFns)
	fns := append([]func(*lookup.Options){lookup.WithLogger(o.logger.Logger)}, o.lookup...)
	w, err := lookup.New(m, fns...)
	if err != nil {
		return nil, translateError(err)
	}
	return &Lookup{Wrapper: w}, nil
}

// Vector is GetVector that reports a term matching no label as
// ErrMissingLabel instead of returning the zero vector.
func (l *Lookup) Vector(term string) ([]float32, error) {
	r := l.Resolve(term)
	if r.Step == lookup.StepMissing {
		return nil, &missingLabelError{term: term}
	}
	i, _ := l.Matrix().Index(r.Label)
	return l.Matrix().CopyRow(i, nil), nil
}

type missingLabelError struct{ term string }

func (e *missingLabelError) Error() string { return "missing label for term " + strconv.Quote(e.term) }

func (e *missingLabelError) Is(target error) bool { return target == ErrMissingLabel }
