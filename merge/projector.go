package merge

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/vecspace/space"
)

// Projector is a linear map from an input space of width InDim to an output
// space of width OutDim, applied as v·P.
type Projector struct {
	w *mat.Dense
}

// NewProjector wraps an InDim×OutDim weight matrix.
func NewProjector(w *mat.Dense) *Projector {
	return &Projector{w: w}
}

// FitProjector solves the ridge least-squares problem X·P ≈ Y, that is
// (XᵀX + λI)·P = XᵀY with λ = ridge · mean(diag(XᵀX)).
func FitProjector(x, y *mat.Dense, ridge float64) (*Projector, error) {
	n, in := x.Dims()
	ny, out := y.Dims()
	if n != ny {
		return nil, fmt.Errorf("%w: %d input rows, %d target rows", ErrProjectorShape, n, ny)
	}
	if n == 0 || in == 0 || out == 0 {
		return nil, fmt.Errorf("%w: empty system %dx%d -> %d", ErrProjectorShape, n, in, out)
	}

	xtx := mat.NewSymDense(in, nil)
	xtx.SymOuterK(1, x.T())

	var trace float64
	for i := range in {
		trace += xtx.At(i, i)
	}
	lambda := ridge * trace / float64(in)
	if lambda <= 0 {
		lambda = ridge
	}
	lambda = math.Max(lambda, 1e-12)
	for i := range in {
		xtx.SetSym(i, i, xtx.At(i, i)+lambda)
	}

	var xty mat.Dense
	xty.Mul(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, ErrSingular
	}
	w := mat.NewDense(in, out, nil)
	if err := chol.SolveTo(w, &xty); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingular, err)
	}
	return &Projector{w: w}, nil
}

// InDim returns the input width.
func (p *Projector) InDim() int {
	r, _ := p.w.Dims()
	return r
}

// OutDim returns the output width.
func (p *Projector) OutDim() int {
	_, c := p.w.Dims()
	return c
}

// Weights returns the weight matrix. Read-only.
func (p *Projector) Weights() mat.Matrix { return p.w }

// Apply maps one vector into the output space.
func (p *Projector) Apply(vec []float32) ([]float32, error) {
	if len(vec) != p.InDim() {
		return nil, fmt.Errorf("%w: vector width %d, projector input %d", ErrProjectorShape, len(vec), p.InDim())
	}
	out := make([]float32, p.OutDim())
	p.applyTo(out, vec)
	return out, nil
}

func (p *Projector) applyTo(dst, vec []float32) {
	in, out := p.w.Dims()
	acc := make([]float64, out)
	for i := range in {
		x := float64(vec[i])
		if x == 0 {
			continue
		}
		row := p.w.RawRowView(i)
		for j, w := range row {
			acc[j] += x * w
		}
	}
	for j, v := range acc {
		dst[j] = float32(v)
	}
}

// ApplyMatrix maps every row of m into the output space, keeping labels.
func (p *Projector) ApplyMatrix(m *space.Matrix) (*space.Matrix, error) {
	if m.Dim() != p.InDim() {
		return nil, fmt.Errorf("%w: matrix width %d, projector input %d", ErrProjectorShape, m.Dim(), p.InDim())
	}
	out := p.OutDim()
	data := make([]float32, m.Len()*out)
	for i := range m.Len() {
		p.applyTo(data[i*out:(i+1)*out], m.Row(i))
	}
	return space.New(out, slices.Clone(m.Labels()), data)
}

// Matrix exports the projector as a labeled matrix with one row per input
// dimension, labeled name:0 .. name:InDim-1.
func (p *Projector) Matrix(name string) *space.Matrix {
	in, out := p.w.Dims()
	labels := make([]string, in)
	data := make([]float32, in*out)
	for i := range in {
		labels[i] = name + ":" + strconv.Itoa(i)
		for j, w := range p.w.RawRowView(i) {
			data[i*out+j] = float32(w)
		}
	}
	m, err := space.New(out, labels, data)
	if err != nil {
		panic(err)
	}
	return m
}

// ExportProjectors concatenates Matrix(names[i]) of every projector into
// one labeled matrix. All projectors must share the output width.
func ExportProjectors(names []string, ps []*Projector) (*space.Matrix, error) {
	if len(names) != len(ps) || len(ps) == 0 {
		return nil, fmt.Errorf("%w: %d names for %d projectors", ErrProjectorShape, len(names), len(ps))
	}
	b := space.NewBuilder(ps[0].OutDim())
	for i, p := range ps {
		m := p.Matrix(names[i])
		for r := range m.Len() {
			if err := b.Add(m.Label(r), m.Row(r)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrProjectorShape, err)
			}
		}
	}
	return b.Build()
}

// ProjectorsFromMatrix re-imports projectors exported with Matrix, possibly
// several concatenated into one matrix, keyed by name.
func ProjectorsFromMatrix(m *space.Matrix) (map[string]*Projector, error) {
	if m.Dim() == 0 {
		return nil, fmt.Errorf("%w: zero output width", ErrProjectorShape)
	}
	type entry struct {
		idx int
		row int
	}
	groups := make(map[string][]entry)
	for r, l := range m.Labels() {
		i := strings.LastIndexByte(l, ':')
		if i < 0 {
			return nil, fmt.Errorf("%w: label %q has no index", ErrProjectorShape, l)
		}
		idx, err := strconv.Atoi(l[i+1:])
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: label %q has a bad index", ErrProjectorShape, l)
		}
		groups[l[:i]] = append(groups[l[:i]], entry{idx: idx, row: r})
	}

	out := make(map[string]*Projector, len(groups))
	for name, es := range groups {
		w := mat.NewDense(len(es), m.Dim(), nil)
		seen := make([]bool, len(es))
		for _, e := range es {
			if e.idx >= len(es) || seen[e.idx] {
				return nil, fmt.Errorf("%w: %s rows are not 0..%d", ErrProjectorShape, name, len(es)-1)
			}
			seen[e.idx] = true
			for j, v := range m.Row(e.row) {
				w.Set(e.idx, j, float64(v))
			}
		}
		out[name] = &Projector{w: w}
	}
	return out, nil
}

// denseRows copies the given rows of m into a float64 matrix.
func denseRows(m *space.Matrix, rows []int) *mat.Dense {
	d := m.Dim()
	x := mat.NewDense(len(rows), d, nil)
	for i, r := range rows {
		dst := x.RawRowView(i)
		for j, v := range m.Row(r) {
			dst[j] = float64(v)
		}
	}
	return x
}
