package retrofit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/internal/resource"
	"github.com/hupe1980/vecspace/shard"
	"github.com/hupe1980/vecspace/space"
)

// Engine runs sharded retrofitting.
type Engine struct {
	opts   Options
	rc     *resource.Controller
	logger *slog.Logger
	obs    Observer
}

// Result is the output of Run.
type Result struct {
	Matrix *space.Matrix
	Report Report
}

// Report describes a completed run.
type Report struct {
	RunID  string `json:"run_id"`
	Rounds int    `json:"rounds"`
	// Workers is the number of shard workers allowed to run at once.
	Workers int           `json:"workers"`
	Shards  []shard.Stats `json:"shards"`
	// Isolated counts rows without neighbors; they keep their vectors.
	Isolated int `json:"isolated"`
	// DroppedGraphLabels counts graph labels without a matrix row.
	DroppedGraphLabels int `json:"dropped_graph_labels"`
	// DroppedEdges counts adjacency entries touching dropped labels.
	DroppedEdges int `json:"dropped_edges"`
	// DeltaNorms holds the L2 norm of the change committed by each round.
	DeltaNorms []float64 `json:"delta_norms"`
	// Checkpoint is the committed manifest, if a Checkpointer was set.
	Checkpoint *Manifest `json:"checkpoint,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// New validates the configuration and returns an Engine.
func New(optFns ...func(*Options)) (*Engine, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	switch {
	case opts.Iterations <= 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, opts.Iterations)
	case opts.NumShards <= 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidShardCount, opts.NumShards)
	case opts.Verbosity < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidVerbosity, opts.Verbosity)
	case opts.MaxWorkers < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, opts.MaxWorkers)
	}
	if opts.Policy != shard.PolicyHash && opts.Policy != shard.PolicyBalanced {
		return nil, fmt.Errorf("%w: %s", shard.ErrUnknownPolicy, opts.Policy)
	}

	workers := opts.MaxWorkers
	if workers == 0 || workers > opts.NumShards {
		workers = opts.NumShards
	}

	rc := opts.Controller
	if rc == nil {
		rc = resource.NewController(resource.Config{
			MemoryLimitBytes:   opts.MemoryLimitBytes,
			MaxWorkers:         int64(workers),
			IOLimitBytesPerSec: opts.IOLimitBytesPerSec,
		})
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	obs := opts.Observer
	if obs == nil {
		obs = NoopObserver{}
	}

	return &Engine{opts: opts, rc: rc, logger: logger, obs: obs}, nil
}

// Options returns the effective configuration.
func (e *Engine) Options() Options { return e.opts }

// Run retrofits m over g. A nil or empty graph returns a copy of m.
// A cancelled run returns the context error and no matrix.
func (e *Engine) Run(ctx context.Context, m *space.Matrix, g *graph.Graph) (*Result, error) {
	if m == nil {
		return nil, ErrNilMatrix
	}
	if g == nil {
		return e.RunRows(ctx, m, graph.NewRowGraph(make([][]graph.RowEdge, m.Len())))
	}

	rg, ps := g.Project(m.Index, m.Len())
	if ps.DroppedLabels > 0 {
		e.logger.Warn("graph labels missing from matrix",
			"dropped_labels", ps.DroppedLabels,
			"dropped_edges", ps.DroppedEdges,
		)
	}

	res, err := e.RunRows(ctx, m, rg)
	if err != nil {
		return nil, err
	}
	res.Report.DroppedGraphLabels = ps.DroppedLabels
	res.Report.DroppedEdges = ps.DroppedEdges
	return res, nil
}

// RunRows retrofits m over a graph already projected onto its rows.
func (e *Engine) RunRows(ctx context.Context, m *space.Matrix, rg *graph.RowGraph) (res *Result, err error) {
	if m == nil {
		return nil, ErrNilMatrix
	}
	if rg == nil {
		rg = graph.NewRowGraph(make([][]graph.RowEdge, m.Len()))
	}
	if rg.Len() != m.Len() {
		return nil, fmt.Errorf("retrofit: graph has %d rows, matrix has %d", rg.Len(), m.Len())
	}

	start := time.Now()
	defer func() {
		rows := 0
		if res != nil {
			rows = res.Matrix.Len()
		}
		e.obs.OnRun(time.Since(start), rows, err)
	}()

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	var costs []int64
	if e.opts.Policy == shard.PolicyBalanced {
		costs = shard.CostsFromDegrees(rg.Len(), rg.Degree)
	}
	plan, err := shard.Partition(m.Labels(), e.opts.NumShards, shard.WithPolicy(e.opts.Policy), shard.WithCosts(costs))
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	shards := plan.Split(rg)

	workers, err := e.workers(shards, m.Dim())
	if err != nil {
		return nil, err
	}

	report := Report{
		RunID:   runID,
		Rounds:  e.opts.Iterations,
		Workers: workers,
		Shards:  plan.Stats(rg),
	}
	for _, st := range report.Shards {
		report.Isolated += st.Isolated
	}
	logger.Info("retrofit started",
		"rows", m.Len(),
		"dim", m.Dim(),
		"edges", rg.NumEdges(),
		"shards", len(shards),
		"workers", workers,
		"iterations", e.opts.Iterations,
		"policy", e.opts.Policy.String(),
	)

	st := newState(m, shards)
	for round := 1; round <= e.opts.Iterations; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		roundStart := time.Now()

		if err := e.round(ctx, round, st, workers, logger); err != nil {
			return nil, err
		}
		delta := st.commit()
		report.DeltaNorms = append(report.DeltaNorms, delta)

		elapsed := time.Since(roundStart)
		e.obs.OnRound(round, elapsed, delta)
		if e.opts.Verbosity >= 1 {
			logger.Info("retrofit round", "round", round, "delta_norm", delta, "elapsed", elapsed)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := st.assemble()
	if err != nil {
		return nil, err
	}

	if cp := e.opts.Checkpointer; cp != nil {
		cpStart := time.Now()
		man, bytes, err := cp.save(ctx, e.rc, runID, e.opts.Iterations, out, plan)
		e.obs.OnCheckpoint(time.Since(cpStart), bytes, err)
		if err != nil {
			return nil, err
		}
		report.Checkpoint = man
	}

	report.Elapsed = time.Since(start)
	logger.Info("retrofit finished", "rows", out.Len(), "isolated", report.Isolated, "elapsed", report.Elapsed)
	return &Result{Matrix: out, Report: report}, nil
}

// workers returns how many shard workers may run at once so that their
// combined working memory stays within the budget.
func (e *Engine) workers(shards []*shard.Shard, dim int) (int, error) {
	n := int(e.rc.MaxWorkers())
	if n <= 0 || n > len(shards) {
		n = len(shards)
	}
	limit := e.rc.MemoryLimit()
	if limit <= 0 {
		return n, nil
	}

	var largest int64
	for _, sh := range shards {
		est := sh.EstimateBytes(dim)
		if est > limit {
			return 0, fmt.Errorf("%w: shard %d needs %d bytes, budget is %d", ErrShardTooLarge, sh.ID, est, limit)
		}
		largest = max(largest, est)
	}
	if largest > 0 {
		if fit := int(limit / largest); fit < n {
			e.logger.Warn("memory budget limits concurrent shard workers", "workers", fit, "requested", n)
			n = max(fit, 1)
		}
	}
	return n, nil
}

func (e *Engine) round(ctx context.Context, round int, st *state, workers int, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sh := range st.shards {
		g.Go(func() error {
			if err := e.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer e.rc.ReleaseWorker()

			est := sh.EstimateBytes(st.dim)
			if err := e.rc.AcquireMemory(est); err != nil {
				return fmt.Errorf("%w: shard %d: %w", ErrShardTooLarge, sh.ID, err)
			}
			defer e.rc.ReleaseMemory(est)

			start := time.Now()
			if err := st.update(gctx, i); err != nil {
				return err
			}
			elapsed := time.Since(start)

			e.obs.OnShard(round, sh.ID, elapsed, sh.Len())
			if e.opts.Verbosity >= 2 {
				logger.Info("retrofit shard", "round", round, "shard", sh.ID, "rows", sh.Len(), "edges", sh.NumEdges(), "elapsed", elapsed)
			}
			return nil
		})
	}
	return g.Wait()
}

// state holds the round-start snapshot, the original vectors and one
// private buffer per shard.
type state struct {
	dim    int
	labels []string
	orig   []float32
	cur    []float32
	shards []*shard.Shard
	bufs   [][]float32
}

func newState(m *space.Matrix, shards []*shard.Shard) *state {
	st := &state{
		dim:    m.Dim(),
		labels: m.Labels(),
		orig:   m.Data(),
		cur:    make([]float32, len(m.Data())),
		shards: shards,
		bufs:   make([][]float32, len(shards)),
	}
	copy(st.cur, m.Data())
	for i, sh := range shards {
		st.bufs[i] = make([]float32, sh.Len()*st.dim)
	}
	return st
}

// update computes one round for shard i, reading only st.cur and st.orig
// and writing only st.bufs[i].
func (st *state) update(ctx context.Context, i int) error {
	sh, buf, d := st.shards[i], st.bufs[i], st.dim
	acc := make([]float64, d)

	for k, r := range sh.Rows {
		if k%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := int(r)
		out := buf[k*d : (k+1)*d]
		v0 := st.orig[row*d : (row+1)*d]

		targets, weights := sh.Neighbors(k)
		if len(targets) == 0 {
			copy(out, v0)
			continue
		}

		var wsum float64
		for j := range acc {
			acc[j] = float64(v0[j])
		}
		for n, t := range targets {
			w := weights[n]
			wsum += w
			nv := st.cur[int(t)*d : (int(t)+1)*d]
			for j, x := range nv {
				acc[j] += w * float64(x)
			}
		}
		denom := wsum + 1
		for j := range out {
			out[j] = float32(acc[j] / denom)
		}
	}
	return nil
}

// commit copies every shard buffer into the snapshot and returns the L2
// norm of the change.
func (st *state) commit() float64 {
	d := st.dim
	var sq float64
	for i, sh := range st.shards {
		buf := st.bufs[i]
		for k, r := range sh.Rows {
			dst := st.cur[int(r)*d : (int(r)+1)*d]
			src := buf[k*d : (k+1)*d]
			for j, x := range src {
				diff := float64(x) - float64(dst[j])
				sq += diff * diff
				dst[j] = x
			}
		}
	}
	return math.Sqrt(sq)
}

// assemble builds the output strictly from the owning shards' buffers.
func (st *state) assemble() (*space.Matrix, error) {
	d := st.dim
	data := make([]float32, len(st.cur))
	seen := 0
	for i, sh := range st.shards {
		buf := st.bufs[i]
		for k, r := range sh.Rows {
			copy(data[int(r)*d:(int(r)+1)*d], buf[k*d:(k+1)*d])
			seen++
		}
	}
	if seen != len(st.labels) {
		return nil, fmt.Errorf("retrofit: shards own %d of %d rows", seen, len(st.labels))
	}
	labels := make([]string, len(st.labels))
	copy(labels, st.labels)
	return space.New(d, labels, data)
}
