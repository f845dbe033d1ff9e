package merge

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/vecspace/space"
)

// IntersectResult is the output of Intersect.
type IntersectResult struct {
	// Matrix holds the shared labels in the first input's order, K wide.
	Matrix *space.Matrix
	// Projectors[i] maps vectors of input i into Matrix's space. With
	// Normalize set they were fitted on L2-normalized rows.
	Projectors []*Projector
	Alignment  *Alignment
	// K is the output width, dim capped by the joint width and row count.
	K int
	// Explained is the share of total variance kept by the K components.
	Explained float64
}

// Intersect restricts mats to their shared labels and projects the
// concatenated rows onto a common space of width dim.
func Intersect(ctx context.Context, mats []*space.Matrix, dim int, optFns ...func(*Options)) (*IntersectResult, error) {
	if len(mats) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewInputs, len(mats))
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	for i, m := range mats {
		if m == nil {
			return nil, fmt.Errorf("%w: input %d", ErrNilMatrix, i)
		}
	}
	opts, err := buildOptions(optFns)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()

	al := AlignIntersection(mats...)
	n := al.Len()
	if n == 0 {
		return nil, ErrEmptyIntersection
	}

	total := 0
	offsets := make([]int, len(mats)+1)
	for i, m := range mats {
		if m.Dim() == 0 {
			return nil, fmt.Errorf("%w: input %d has width 0", ErrInvalidDimension, i)
		}
		total += m.Dim()
		offsets[i+1] = total
	}

	k := min(dim, total, n)
	if k < dim {
		logger.Warn("intersect width capped", "requested", dim, "width", k, "joint_width", total, "shared_labels", n)
	}

	// Joint matrix J: one row per shared label, input blocks side by side.
	joint := mat.NewDense(n, total, nil)
	blocks := make([]*mat.Dense, len(mats))
	for i, m := range mats {
		src := al.Sources(i)
		for r, s := range src {
			row := joint.RawRowView(r)[offsets[i]:offsets[i+1]]
			for j, v := range m.Row(s) {
				row[j] = float64(v)
			}
			if opts.Normalize {
				normalizeL2(row)
			}
		}
		blocks[i] = joint.Slice(0, n, offsets[i], offsets[i+1]).(*mat.Dense)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cov := mat.NewSymDense(total, nil)
	cov.SymOuterK(1/float64(n), joint.T())

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition did not converge", ErrSingular)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues are ascending; take the last k columns, largest first.
	basis := mat.NewDense(total, k, nil)
	var kept, all float64
	for c := range k {
		src := total - 1 - c
		kept += math.Max(values[src], 0)
		col := mat.Col(nil, src, &vectors)
		orientColumn(col)
		basis.SetCol(c, col)
	}
	for _, v := range values {
		all += math.Max(v, 0)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var y mat.Dense
	y.Mul(joint, basis)

	projectors := make([]*Projector, len(mats))
	for i, x := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := FitProjector(x, &y, opts.Ridge)
		if err != nil {
			return nil, fmt.Errorf("merge: fit projector for input %d: %w", i, err)
		}
		projectors[i] = p
	}

	data := make([]float32, n*k)
	for r := range n {
		for c, v := range y.RawRowView(r) {
			data[r*k+c] = float32(v)
		}
	}
	out, err := space.New(k, al.Labels, data)
	if err != nil {
		return nil, err
	}

	res := &IntersectResult{Matrix: out, Projectors: projectors, Alignment: al, K: k}
	if all > 0 {
		res.Explained = kept / all
	}
	if opts.Verbosity >= 1 {
		logger.Info("intersected",
			"inputs", len(mats),
			"shared_labels", n,
			"joint_width", total,
			"width", k,
			"explained", res.Explained,
			"elapsed", time.Since(start),
		)
	}
	return res, nil
}

func normalizeL2(v []float64) {
	var sq float64
	for _, x := range v {
		sq += x * x
	}
	if sq == 0 {
		return
	}
	inv := 1 / math.Sqrt(sq)
	for i := range v {
		v[i] *= inv
	}
}

// orientColumn flips v so that its largest-magnitude component is positive.
func orientColumn(v []float64) {
	best := 0
	for i, x := range v {
		if math.Abs(x) > math.Abs(v[best]) {
			best = i
		}
	}
	if len(v) > 0 && v[best] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}
