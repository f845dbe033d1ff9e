package shard

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vecspace/internal/hash"
)

var (
	// ErrInvalidShardCount is returned when the shard count is not positive.
	ErrInvalidShardCount = errors.New("shard: shard count must be positive")
	// ErrInvalidPlan is returned when a plan violates the partition invariant.
	ErrInvalidPlan = errors.New("shard: invalid partition")
	// ErrCostMismatch is returned when costs do not cover every row.
	ErrCostMismatch = errors.New("shard: costs do not match rows")
	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("shard: unknown policy")
)

// Policy selects how rows are assigned to shards.
type Policy int

const (
	// PolicyHash assigns by CRC32C(label) mod nshards.
	PolicyHash Policy = iota
	// PolicyBalanced assigns by greedy longest-processing-time over row costs.
	PolicyBalanced
)

func (p Policy) String() string {
	switch p {
	case PolicyHash:
		return "hash"
	case PolicyBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "hash" or "balanced".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "hash":
		return PolicyHash, nil
	case "balanced":
		return PolicyBalanced, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Options configures Partition.
type Options struct {
	Policy Policy
	// Costs holds one cost per row for PolicyBalanced. Missing costs
	// default to 1 per row.
	Costs []int64
}

// WithPolicy sets the policy.
func WithPolicy(p Policy) func(*Options) {
	return func(o *Options) { o.Policy = p }
}

// WithCosts sets per-row costs for PolicyBalanced.
func WithCosts(costs []int64) func(*Options) {
	return func(o *Options) { o.Costs = costs }
}

// Plan is a partition of rows [0, N) into NumShards owned sets.
type Plan struct {
	numShards int
	policy    Policy
	owner     []int32
	owned     []*roaring.Bitmap
}

// Partition assigns each of the labelled rows to exactly one shard.
func Partition(labels []string, nshards int, optFns ...func(*Options)) (*Plan, error) {
	if nshards <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShardCount, nshards)
	}
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &Plan{
		numShards: nshards,
		policy:    opts.Policy,
		owner:     make([]int32, len(labels)),
		owned:     make([]*roaring.Bitmap, nshards),
	}
	for s := range p.owned {
		p.owned[s] = roaring.New()
	}

	switch opts.Policy {
	case PolicyHash:
		for r, l := range labels {
			p.owner[r] = int32(hash.Bucket(l, nshards))
		}
	case PolicyBalanced:
		if opts.Costs != nil && len(opts.Costs) != len(labels) {
			return nil, fmt.Errorf("%w: %d costs for %d rows", ErrCostMismatch, len(opts.Costs), len(labels))
		}
		balance(p.owner, labels, opts.Costs, nshards)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, opts.Policy)
	}

	for r, s := range p.owner {
		p.owned[s].Add(uint32(r))
	}
	for _, bm := range p.owned {
		bm.RunOptimize()
	}
	return p, nil
}

// CostsFromDegrees returns the balanced-policy cost 1 + degree(row).
func CostsFromDegrees(n int, degree func(row int) int) []int64 {
	costs := make([]int64, n)
	for r := range costs {
		costs[r] = 1 + int64(degree(r))
	}
	return costs
}

func balance(owner []int32, labels []string, costs []int64, nshards int) {
	cost := func(r int) int64 {
		if costs == nil {
			return 1
		}
		return costs[r]
	}

	order := make([]int, len(labels))
	keys := make([]uint32, len(labels))
	for r := range order {
		order[r] = r
		keys[r] = hash.Label(labels[r])
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if ca, cb := cost(a), cost(b); ca != cb {
			return ca > cb
		}
		if keys[a] != keys[b] {
			return keys[a] < keys[b]
		}
		return a < b
	})

	h := make(loadHeap, nshards)
	for s := range h {
		h[s] = load{shard: int32(s)}
	}
	heap.Init(&h)
	for _, r := range order {
		h[0].total += cost(r)
		owner[r] = h[0].shard
		heap.Fix(&h, 0)
	}
}

type load struct {
	total int64
	shard int32
}

type loadHeap []load

func (h loadHeap) Len() int { return len(h) }
func (h loadHeap) Less(i, j int) bool {
	if h[i].total != h[j].total {
		return h[i].total < h[j].total
	}
	return h[i].shard < h[j].shard
}
func (h loadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *loadHeap) Push(x any)   { *h = append(*h, x.(load)) }
func (h *loadHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// NumShards returns the number of shards.
func (p *Plan) NumShards() int { return p.numShards }

// Policy returns the policy that built the plan.
func (p *Plan) Policy() Policy { return p.policy }

// Len returns the number of rows.
func (p *Plan) Len() int { return len(p.owner) }

// Owner returns the shard owning row r.
func (p *Plan) Owner(r int) int { return int(p.owner[r]) }

// Owned returns the rows owned by shard s. Read-only.
func (p *Plan) Owned(s int) *roaring.Bitmap { return p.owned[s] }

// Rows returns the sorted rows owned by shard s.
func (p *Plan) Rows(s int) []uint32 { return p.owned[s].ToArray() }

// Validate checks that the owned sets are pairwise disjoint, cover every
// row and agree with the owner table.
func (p *Plan) Validate() error {
	n := uint64(len(p.owner))
	var sum uint64
	for s, bm := range p.owned {
		sum += bm.GetCardinality()
		if !bm.IsEmpty() && uint64(bm.Maximum()) >= n {
			return fmt.Errorf("%w: shard %d owns row %d of %d", ErrInvalidPlan, s, bm.Maximum(), n)
		}
	}
	union := roaring.FastOr(p.owned...)
	if union.GetCardinality() != n {
		return fmt.Errorf("%w: %d of %d rows owned", ErrInvalidPlan, union.GetCardinality(), n)
	}
	if sum != n {
		return fmt.Errorf("%w: %d rows owned more than once", ErrInvalidPlan, sum-n)
	}
	for r, s := range p.owner {
		if int(s) < 0 || int(s) >= p.numShards || !p.owned[s].Contains(uint32(r)) {
			return fmt.Errorf("%w: owner table disagrees for row %d", ErrInvalidPlan, r)
		}
	}
	return nil
}
