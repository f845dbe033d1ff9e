package merge

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecspace/space"
)

// Alignment maps the rows of each input onto a unified label set.
type Alignment struct {
	// Labels are the output labels in output row order.
	Labels []string
	// Rows[k][r] is the output row of row r of input k, or -1.
	Rows [][]int
}

// Len returns the number of output labels.
func (a *Alignment) Len() int { return len(a.Labels) }

// Coverage returns how many output labels input k provides.
func (a *Alignment) Coverage(k int) int {
	n := 0
	for _, o := range a.Rows[k] {
		if o >= 0 {
			n++
		}
	}
	return n
}

// Sources returns, for every output row, the row of input k that maps onto
// it, or -1.
func (a *Alignment) Sources(k int) []int {
	src := make([]int, len(a.Labels))
	for i := range src {
		src[i] = -1
	}
	for r, o := range a.Rows[k] {
		if o >= 0 {
			src[o] = r
		}
	}
	return src
}

// AlignIntersection aligns mats on the labels present in all of them, in
// the row order of the first matrix.
func AlignIntersection(mats ...*space.Matrix) *Alignment {
	vocab := space.NewVocabulary()
	sets := make([]*roaring.Bitmap, len(mats))
	for i, m := range mats {
		sets[i] = vocab.Set(m)
	}
	return align(vocab.Labels(space.Intersection(sets...)), mats)
}

// AlignUnion aligns mats on the labels present in any of them, in
// first-seen order.
func AlignUnion(mats ...*space.Matrix) *Alignment {
	vocab := space.NewVocabulary()
	sets := make([]*roaring.Bitmap, len(mats))
	for i, m := range mats {
		sets[i] = vocab.Set(m)
	}
	return align(vocab.Labels(space.Union(sets...)), mats)
}

// AlignTarget aligns mats on target, in target order. Target labels absent
// from every input still get an output row.
func AlignTarget(target []string, mats ...*space.Matrix) *Alignment {
	return align(target, mats)
}

func align(labels []string, mats []*space.Matrix) *Alignment {
	out := make(map[string]int, len(labels))
	for i, l := range labels {
		out[l] = i
	}

	a := &Alignment{Labels: labels, Rows: make([][]int, len(mats))}
	for k, m := range mats {
		rows := make([]int, m.Len())
		for r, l := range m.Labels() {
			o, ok := out[l]
			if !ok {
				o = -1
			}
			rows[r] = o
		}
		a.Rows[k] = rows
	}
	return a
}
