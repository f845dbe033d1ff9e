package graph

import (
	"context"
	"io"
	"iter"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/vecspace/label"
)

// ConceptNetSource reads ConceptNet assertion tables: tab-separated
// "uri, relation, start, end, info" where info is a JSON object carrying
// the assertion "weight". Endpoints are reduced to their term prefix.
type ConceptNetSource struct {
	open      Opener
	languages map[string]bool
	skipRels  map[string]bool
}

// ConceptNetOption configures a ConceptNetSource.
type ConceptNetOption func(*ConceptNetSource)

// WithLanguages keeps only assertions whose endpoints are both in one of langs.
func WithLanguages(langs ...string) ConceptNetOption {
	return func(s *ConceptNetSource) {
		for _, l := range langs {
			s.languages[l] = true
		}
	}
}

// WithSkipRelations drops assertions with the given relation URIs.
func WithSkipRelations(rels ...string) ConceptNetOption {
	return func(s *ConceptNetSource) {
		for _, r := range rels {
			s.skipRels[r] = true
		}
	}
}

// DefaultSkipRelations are relations that do not link two terms.
var DefaultSkipRelations = []string{"/r/ExternalURL", "/r/dbpedia/genre"}

func newConceptNet(open Opener, opts []ConceptNetOption) *ConceptNetSource {
	s := &ConceptNetSource{open: open, languages: map[string]bool{}, skipRels: map[string]bool{}}
	for _, r := range DefaultSkipRelations {
		s.skipRels[r] = true
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewConceptNetSource reads assertions from r. The source can be iterated once.
func NewConceptNetSource(r io.Reader, opts ...ConceptNetOption) *ConceptNetSource {
	return newConceptNet(func() (io.ReadCloser, error) { return io.NopCloser(r), nil }, opts)
}

// ConceptNetFile reads assertions from a (possibly compressed) file.
func ConceptNetFile(path string, opts ...ConceptNetOption) *ConceptNetSource {
	return newConceptNet(func() (io.ReadCloser, error) { return OpenFile(path) }, opts)
}

type assertionInfo struct {
	Weight *float64 `json:"weight"`
}

// Edges yields one edge per kept assertion. Filtered assertions are not
// yielded at all; unparsable ones are yielded as malformed records.
func (s *ConceptNetSource) Edges(ctx context.Context) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		stopped := false
		err := lines(ctx, s.open, func(n int, line string) bool {
			e, keep, err := s.parse(n, line)
			if !keep {
				return true
			}
			if !yield(e, err) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Edge{}, err)
		}
	}
}

func (s *ConceptNetSource) parse(n int, line string) (Edge, bool, error) {
	fields := strings.SplitN(line, "\t", 5)
	if len(fields) != 5 {
		return Edge{}, true, &RecordError{Line: n, Reason: "want 5 tab-separated fields"}
	}
	rel, start, end := fields[1], fields[2], fields[3]
	if s.skipRels[rel] {
		return Edge{}, false, nil
	}
	if !label.IsConcept(start) || !label.IsConcept(end) {
		return Edge{}, true, &RecordError{Line: n, Reason: "endpoint is not a concept"}
	}
	if len(s.languages) > 0 && (!s.languages[label.Language(start)] || !s.languages[label.Language(end)]) {
		return Edge{}, false, nil
	}

	var info assertionInfo
	if err := gojson.Unmarshal([]byte(fields[4]), &info); err != nil {
		return Edge{}, true, &RecordError{Line: n, Reason: "bad info JSON: " + err.Error()}
	}
	w := 1.0
	if info.Weight != nil {
		w = *info.Weight
	}
	return Edge{From: label.Prefix(start), To: label.Prefix(end), Weight: w}, true, nil
}
