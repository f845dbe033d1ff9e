package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/hupe1980/vecspace/space"
)

// Edge is one weighted relation between two labels.
type Edge struct {
	From   string
	To     string
	Weight float64
}

// Neighbor is one adjacency entry.
type Neighbor struct {
	Label  string
	Weight float64
}

// Options configures Build.
type Options struct {
	// Directed keeps edge direction. By default each record contributes
	// to both endpoints.
	Directed bool
	// Logger receives skip warnings.
	Logger *slog.Logger
	// CheckEvery is how many records pass between context checks.
	CheckEvery int
}

// DefaultOptions are undirected edges and a discard logger.
var DefaultOptions = Options{
	CheckEvery: 4096,
}

// WithDirected keeps edge direction.
func WithDirected() func(*Options) {
	return func(o *Options) { o.Directed = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// BuildStats counts what Build saw.
type BuildStats struct {
	// Records is the number of records read from the source.
	Records int
	// Accepted is the number of records that became edges.
	Accepted int
	// Skipped counts malformed records: parse failures, empty labels and
	// negative, NaN or infinite weights.
	Skipped int
	// SelfLoops counts records whose endpoints are equal.
	SelfLoops int
	// Merged counts adjacency entries folded into an existing entry.
	Merged int
}

// Graph is an immutable weighted adjacency over labels in CSR layout.
type Graph struct {
	directed bool
	labels   []string
	ids      map[string]int32
	offsets  []int64
	targets  []int32
	weights  []float64
}

// Build reads every edge of src into a Graph.
func Build(ctx context.Context, src EdgeSource, optFns ...func(*Options)) (*Graph, BuildStats, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.CheckEvery <= 0 {
		opts.CheckEvery = DefaultOptions.CheckEvery
	}

	var (
		stats BuildStats
		vocab = make(map[string]int32)
		names []string
		acc   = make(map[uint64]float64)
	)
	intern := func(l string) int32 {
		if id, ok := vocab[l]; ok {
			return id
		}
		id := int32(len(names))
		vocab[l] = id
		names = append(names, l)
		return id
	}
	add := func(a, b int32, w float64) {
		key := uint64(uint32(a))<<32 | uint64(uint32(b))
		if _, ok := acc[key]; ok {
			stats.Merged++
		}
		acc[key] += w
	}

	for e, err := range src.Edges(ctx) {
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) {
				stats.Records++
				stats.Skipped++
				opts.Logger.Debug("skipping record", "error", err)
				continue
			}
			return nil, stats, fmt.Errorf("graph: read edges: %w", err)
		}
		stats.Records++
		if stats.Records%opts.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		switch {
		case e.From == "" || e.To == "":
			stats.Skipped++
			continue
		case e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0):
			stats.Skipped++
			continue
		case e.From == e.To:
			stats.SelfLoops++
			continue
		}

		a, b := intern(e.From), intern(e.To)
		add(a, b, e.Weight)
		if !opts.Directed {
			add(b, a, e.Weight)
		}
		stats.Accepted++
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	if stats.Skipped > 0 || stats.SelfLoops > 0 {
		opts.Logger.Warn("skipped relation records",
			"skipped", stats.Skipped,
			"self_loops", stats.SelfLoops,
			"records", stats.Records,
		)
	}

	g := &Graph{directed: opts.Directed, labels: names, ids: vocab}
	g.buildCSR(acc)
	return g, stats, nil
}

func (g *Graph) buildCSR(acc map[uint64]float64) {
	keys := make([]uint64, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	g.offsets = make([]int64, len(g.labels)+1)
	g.targets = make([]int32, len(keys))
	g.weights = make([]float64, len(keys))
	for i, k := range keys {
		from := int32(k >> 32)
		g.offsets[from+1]++
		g.targets[i] = int32(uint32(k))
		g.weights[i] = acc[k]
	}
	for i := 1; i < len(g.offsets); i++ {
		g.offsets[i] += g.offsets[i-1]
	}
}

// Directed reports whether the graph keeps edge direction.
func (g *Graph) Directed() bool { return g.directed }

// NumNodes returns the number of distinct labels with at least one edge.
func (g *Graph) NumNodes() int { return len(g.labels) }

// NumEdges returns the number of adjacency entries. An undirected relation
// counts twice, once per endpoint.
func (g *Graph) NumEdges() int { return len(g.targets) }

// Labels returns the node labels in first-seen order. Read-only.
func (g *Graph) Labels() []string { return g.labels }

// LabelSet returns the node labels as a set.
func (g *Graph) LabelSet() *space.LabelSet { return space.NewLabelSet(g.labels...) }

// Contains reports whether label is a node.
func (g *Graph) Contains(label string) bool {
	_, ok := g.ids[label]
	return ok
}

// Degree returns the number of neighbors of label.
func (g *Graph) Degree(label string) int {
	id, ok := g.ids[label]
	if !ok {
		return 0
	}
	return int(g.offsets[id+1] - g.offsets[id])
}

// Neighbors returns the neighbors of label, ordered by node id. Ids follow
// the global order in which labels first appeared in the source.
func (g *Graph) Neighbors(label string) []Neighbor {
	id, ok := g.ids[label]
	if !ok {
		return nil
	}
	lo, hi := g.offsets[id], g.offsets[id+1]
	out := make([]Neighbor, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, Neighbor{Label: g.labels[g.targets[i]], Weight: g.weights[i]})
	}
	return out
}

// Weight returns the merged weight of the relation from -> to.
func (g *Graph) Weight(from, to string) (float64, bool) {
	a, ok := g.ids[from]
	if !ok {
		return 0, false
	}
	b, ok := g.ids[to]
	if !ok {
		return 0, false
	}
	lo, hi := g.offsets[a], g.offsets[a+1]
	i, found := slices.BinarySearch(g.targets[lo:hi], b)
	if !found {
		return 0, false
	}
	return g.weights[lo+int64(i)], true
}
