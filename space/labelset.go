package space

import "slices"

// LabelSet is an ordered collection of distinct labels.
type LabelSet struct {
	labels []string
	pos    map[string]int
}

// NewLabelSet builds a set from labels, keeping the first occurrence of each.
func NewLabelSet(labels ...string) *LabelSet {
	s := &LabelSet{pos: make(map[string]int, len(labels))}
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

// Add inserts label if absent and reports whether it was inserted.
func (s *LabelSet) Add(label string) bool {
	if _, ok := s.pos[label]; ok {
		return false
	}
	s.pos[label] = len(s.labels)
	s.labels = append(s.labels, label)
	return true
}

// Contains reports membership.
func (s *LabelSet) Contains(label string) bool {
	if s == nil {
		return false
	}
	_, ok := s.pos[label]
	return ok
}

// Len returns the number of labels.
func (s *LabelSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Labels returns the labels in insertion order. Read-only.
func (s *LabelSet) Labels() []string {
	if s == nil {
		return nil
	}
	return s.labels
}

// Union returns s followed by the labels of o not in s.
func (s *LabelSet) Union(o *LabelSet) *LabelSet {
	out := NewLabelSet(s.Labels()...)
	for _, l := range o.Labels() {
		out.Add(l)
	}
	return out
}

// Intersect returns the labels of s that are also in o, in s order.
func (s *LabelSet) Intersect(o *LabelSet) *LabelSet {
	out := NewLabelSet()
	for _, l := range s.Labels() {
		if o.Contains(l) {
			out.Add(l)
		}
	}
	return out
}

// Overlap counts the labels of s that are also in o.
func (s *LabelSet) Overlap(o interface{ Contains(string) bool }) int {
	n := 0
	for _, l := range s.Labels() {
		if o.Contains(l) {
			n++
		}
	}
	return n
}

// Sorted returns the labels in lexical order.
func (s *LabelSet) Sorted() []string {
	out := slices.Clone(s.Labels())
	slices.Sort(out)
	return out
}
