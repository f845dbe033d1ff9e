package graph

// RowGraph is a Graph re-keyed onto matrix rows [0, N).
// Rows without neighbors are isolated.
type RowGraph struct {
	offsets []int64
	targets []int32
	weights []float64
}

// ProjectStats counts what Project dropped.
type ProjectStats struct {
	// DroppedLabels counts graph labels with no matrix row.
	DroppedLabels int
	// DroppedEdges counts adjacency entries touching a dropped label.
	DroppedEdges int
	// Isolated counts matrix rows left without neighbors.
	Isolated int
}

// Project maps the graph onto n matrix rows using index to resolve labels.
// Labels absent from the matrix exert no influence and are counted.
func (g *Graph) Project(index func(string) (int, bool), n int) (*RowGraph, ProjectStats) {
	var stats ProjectStats

	rowOf := make([]int32, len(g.labels))
	for id, l := range g.labels {
		if r, ok := index(l); ok && r >= 0 && r < n {
			rowOf[id] = int32(r)
		} else {
			rowOf[id] = -1
			stats.DroppedLabels++
		}
	}

	degree := make([]int64, n+1)
	for id := range g.labels {
		from := rowOf[id]
		for i := g.offsets[id]; i < g.offsets[id+1]; i++ {
			if from < 0 || rowOf[g.targets[i]] < 0 {
				stats.DroppedEdges++
				continue
			}
			degree[from+1]++
		}
	}
	for i := 1; i <= n; i++ {
		degree[i] += degree[i-1]
	}

	rg := &RowGraph{
		offsets: degree,
		targets: make([]int32, degree[n]),
		weights: make([]float64, degree[n]),
	}
	fill := make([]int64, n)
	copy(fill, degree[:n])
	for id := range g.labels {
		from := rowOf[id]
		if from < 0 {
			continue
		}
		for i := g.offsets[id]; i < g.offsets[id+1]; i++ {
			to := rowOf[g.targets[i]]
			if to < 0 {
				continue
			}
			p := fill[from]
			rg.targets[p] = to
			rg.weights[p] = g.weights[i]
			fill[from]++
		}
	}

	for r := range n {
		if rg.Degree(r) == 0 {
			stats.Isolated++
		}
	}
	return rg, stats
}

// NewRowGraph builds a RowGraph from per-row adjacency lists.
// It is intended for tests and programmatic callers.
func NewRowGraph(adj [][]RowEdge) *RowGraph {
	rg := &RowGraph{offsets: make([]int64, len(adj)+1)}
	for r, es := range adj {
		rg.offsets[r+1] = rg.offsets[r] + int64(len(es))
		for _, e := range es {
			rg.targets = append(rg.targets, int32(e.To))
			rg.weights = append(rg.weights, e.Weight)
		}
	}
	return rg
}

// RowEdge is one adjacency entry of a RowGraph.
type RowEdge struct {
	To     int
	Weight float64
}

// Len returns the number of rows.
func (rg *RowGraph) Len() int { return len(rg.offsets) - 1 }

// NumEdges returns the number of adjacency entries.
func (rg *RowGraph) NumEdges() int { return len(rg.targets) }

// Degree returns the number of neighbors of row r.
func (rg *RowGraph) Degree(r int) int { return int(rg.offsets[r+1] - rg.offsets[r]) }

// Neighbors returns the neighbor rows and weights of row r. Read-only.
func (rg *RowGraph) Neighbors(r int) ([]int32, []float64) {
	lo, hi := rg.offsets[r], rg.offsets[r+1]
	return rg.targets[lo:hi:hi], rg.weights[lo:hi:hi]
}
