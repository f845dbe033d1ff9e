package shard

import (
	"github.com/hupe1980/vecspace/graph"
)

// Shard is one worker's slice of the problem: its owned rows and every
// edge leaving them. Neighbor endpoints are global rows, read from the
// shared round-start snapshot.
type Shard struct {
	ID      int
	Rows    []uint32
	offsets []int64
	targets []int32
	weights []float64
}

// Stats summarizes a shard.
type Stats struct {
	Shard    int `json:"shard"`
	Labels   int `json:"labels"`
	Edges    int `json:"edges"`
	Isolated int `json:"isolated"`
}

// Split builds the induced subgraph of every shard.
func (p *Plan) Split(rg *graph.RowGraph) []*Shard {
	shards := make([]*Shard, p.numShards)
	for s := range shards {
		rows := p.Rows(s)
		sh := &Shard{ID: s, Rows: rows, offsets: make([]int64, len(rows)+1)}

		edges := 0
		for _, r := range rows {
			edges += rg.Degree(int(r))
		}
		sh.targets = make([]int32, 0, edges)
		sh.weights = make([]float64, 0, edges)

		for i, r := range rows {
			t, w := rg.Neighbors(int(r))
			sh.targets = append(sh.targets, t...)
			sh.weights = append(sh.weights, w...)
			sh.offsets[i+1] = int64(len(sh.targets))
		}
		shards[s] = sh
	}
	return shards
}

// Stats reports rows and edges per shard.
func (p *Plan) Stats(rg *graph.RowGraph) []Stats {
	out := make([]Stats, p.numShards)
	for s := range out {
		out[s].Shard = s
	}
	for r, s := range p.owner {
		d := rg.Degree(r)
		out[s].Labels++
		out[s].Edges += d
		if d == 0 {
			out[s].Isolated++
		}
	}
	return out
}

// Len returns the number of owned rows.
func (s *Shard) Len() int { return len(s.Rows) }

// NumEdges returns the number of adjacency entries of owned rows.
func (s *Shard) NumEdges() int { return len(s.targets) }

// Neighbors returns the neighbors of the i-th owned row. Read-only.
func (s *Shard) Neighbors(i int) ([]int32, []float64) {
	lo, hi := s.offsets[i], s.offsets[i+1]
	return s.targets[lo:hi:hi], s.weights[lo:hi:hi]
}

// Stats summarizes the shard.
func (s *Shard) Stats() Stats {
	st := Stats{Shard: s.ID, Labels: len(s.Rows), Edges: len(s.targets)}
	for i := range s.Rows {
		if s.offsets[i+1] == s.offsets[i] {
			st.Isolated++
		}
	}
	return st
}

// EstimateBytes estimates the working memory of the shard for vectors of
// width dim: its adjacency, its float32 output buffer and one float64
// accumulator row.
func (s *Shard) EstimateBytes(dim int) int64 {
	adj := int64(len(s.offsets))*8 + int64(len(s.targets))*(4+8) + int64(len(s.Rows))*4
	buf := int64(len(s.Rows)) * int64(dim) * 4
	return adj + buf + int64(dim)*8
}
