package space

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Vocabulary interns labels to dense uint32 ids, in first-seen order, so that
// label sets can be combined as roaring bitmaps.
type Vocabulary struct {
	ids    map[string]uint32
	labels []string
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]uint32)}
}

// ID interns label and returns its id.
func (v *Vocabulary) ID(label string) uint32 {
	if id, ok := v.ids[label]; ok {
		return id
	}
	id := uint32(len(v.labels))
	v.ids[label] = id
	v.labels = append(v.labels, label)
	return id
}

// Lookup returns the id of label without interning it.
func (v *Vocabulary) Lookup(label string) (uint32, bool) {
	id, ok := v.ids[label]
	return id, ok
}

// Label returns the label with the given id.
func (v *Vocabulary) Label(id uint32) string { return v.labels[id] }

// Len returns the number of interned labels.
func (v *Vocabulary) Len() int { return len(v.labels) }

// Bitmap interns labels and returns their membership bitmap.
func (v *Vocabulary) Bitmap(labels []string) *roaring.Bitmap {
	bm := roaring.New()
	for _, l := range labels {
		bm.Add(v.ID(l))
	}
	return bm
}

// Set interns the labels of m and returns their membership bitmap.
func (v *Vocabulary) Set(m *Matrix) *roaring.Bitmap {
	return v.Bitmap(m.Labels())
}

// Labels returns the labels of bm in id order.
func (v *Vocabulary) Labels(bm *roaring.Bitmap) []string {
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, v.labels[it.Next()])
	}
	return out
}

// Union returns the union of the bitmaps.
func Union(sets ...*roaring.Bitmap) *roaring.Bitmap {
	return roaring.FastOr(sets...)
}

// Intersection returns the intersection of the bitmaps.
func Intersection(sets ...*roaring.Bitmap) *roaring.Bitmap {
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastAnd(sets...)
}
