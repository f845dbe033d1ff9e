package merge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/vecspace/space"
)

// InterpolateResult is the output of Interpolate.
type InterpolateResult struct {
	Matrix *space.Matrix
	// Alignment maps the rows of a and b onto Matrix. Rows of excluded
	// inputs map to -1.
	Alignment   *Alignment
	Diagnostics []CoverageDiagnostic
	// Projector maps the second qualifying input into the reference width.
	// It is nil when the widths match.
	Projector *Projector
	// Missing counts target labels that no qualifying input provides.
	Missing int
	// Blended counts labels combined from both inputs.
	Blended int
	// Carried counts labels taken from a single input, per input.
	Carried [2]int
}

// Interpolate merges a and b over target. A nil target means the union of
// their labels. See the package documentation for the coverage and width
// rules.
func Interpolate(ctx context.Context, a, b *space.Matrix, target *space.LabelSet, optFns ...func(*Options)) (*InterpolateResult, error) {
	if a == nil || b == nil {
		return nil, ErrNilMatrix
	}
	opts, err := buildOptions(optFns)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()

	if target == nil {
		target = a.LabelSet().Union(b.LabelSet())
	}
	inputs := [2]*space.Matrix{a, b}
	al := AlignTarget(target.Labels(), a, b)

	res := &InterpolateResult{}
	var ok [2]bool
	for k := range inputs {
		overlap := al.Coverage(k)
		if overlap == 0 || overlap < opts.VocabThreshold {
			res.diagnose(logger, CoverageDiagnostic{Input: k, Overlap: overlap, Threshold: opts.VocabThreshold, Err: ErrCoverageTooLow})
			continue
		}
		ok[k] = true
	}

	ref := -1
	for k := range ok {
		if ok[k] {
			ref = k
			break
		}
	}
	if ref < 0 {
		return nil, fmt.Errorf("%w: no input covers %d of %d target labels", ErrNothingUsable, opts.VocabThreshold, target.Len())
	}
	dim := inputs[ref].Dim()

	mapped := inputs
	for k := range inputs {
		if !ok[k] || k == ref || inputs[k].Dim() == dim {
			continue
		}
		shared := AlignIntersection(inputs[ref], inputs[k])
		if shared.Len() == 0 {
			ok[k] = false
			res.diagnose(logger, CoverageDiagnostic{Input: k, Overlap: al.Coverage(k), Threshold: opts.VocabThreshold, Err: ErrNoSharedLabels})
			continue
		}
		x := denseRows(inputs[k], shared.Sources(1))
		y := denseRows(inputs[ref], shared.Sources(0))
		proj, err := FitProjector(x, y, opts.Ridge)
		if err != nil {
			return nil, err
		}
		if mapped[k], err = proj.ApplyMatrix(inputs[k]); err != nil {
			return nil, err
		}
		res.Projector = proj
		logger.Info("projected input into reference width",
			"input", k, "from", inputs[k].Dim(), "to", dim, "anchors", shared.Len())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := [2]float64{1, 1}
	if opts.Blend == BlendWeighted {
		w = opts.Weights
	}

	var sources [2][]int
	for k := range inputs {
		if ok[k] {
			sources[k] = al.Sources(k)
		}
	}

	out := space.NewBuilder(dim)
	out.Grow(target.Len())
	buf := make([]float64, dim)
	for j, label := range al.Labels {
		if j%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ra, rb := -1, -1
		if ok[0] {
			ra = sources[0][j]
		}
		if ok[1] {
			rb = sources[1][j]
		}

		switch {
		case ra >= 0 && rb >= 0:
			va, vb := mapped[0].Row(ra), mapped[1].Row(rb)
			for i := range buf {
				buf[i] = (w[0]*float64(va[i]) + w[1]*float64(vb[i])) / (w[0] + w[1])
			}
			if err := out.Add64(label, buf); err != nil {
				return nil, err
			}
			res.Blended++
		case ra >= 0:
			if err := out.Add(label, mapped[0].Row(ra)); err != nil {
				return nil, err
			}
			res.Carried[0]++
		case rb >= 0:
			if err := out.Add(label, mapped[1].Row(rb)); err != nil {
				return nil, err
			}
			res.Carried[1]++
		default:
			res.Missing++
		}
	}

	m, err := out.Build()
	if err != nil {
		return nil, err
	}
	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrNothingUsable)
	}

	res.Matrix = m
	res.Alignment = align(m.Labels(), inputs[:])
	for k := range inputs {
		if !ok[k] {
			for r := range res.Alignment.Rows[k] {
				res.Alignment.Rows[k][r] = -1
			}
		}
	}

	if res.Missing > 0 {
		logger.Warn("target labels missing from every input", "missing", res.Missing)
	}
	if opts.Verbosity >= 1 {
		logger.Info("interpolated",
			"rows", m.Len(),
			"dim", dim,
			"blended", res.Blended,
			"carried_a", res.Carried[0],
			"carried_b", res.Carried[1],
			"missing", res.Missing,
			"blend", opts.Blend.String(),
			"elapsed", time.Since(start),
		)
	}
	return res, nil
}

func (r *InterpolateResult) diagnose(logger *slog.Logger, d CoverageDiagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	logger.Warn("interpolation input excluded", "input", d.Input, "overlap", d.Overlap, "threshold", d.Threshold, "reason", d.Err)
}
