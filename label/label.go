// Package label implements the ConceptNet term label conventions used to
// key word-vector rows: "/c/<lang>/<text>[/<pos>[/<sense>...]]".
package label

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ConceptRoot is the path root of concept labels.
const ConceptRoot = "/c/"

var lower = cases.Lower(language.Und)

// IsConcept reports whether s is a concept label.
func IsConcept(s string) bool {
	return strings.HasPrefix(s, ConceptRoot)
}

// Split returns the path components of a label without the leading slash.
func Split(s string) []string {
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// Join builds a label from path components.
func Join(parts ...string) string {
	return "/" + strings.Join(parts, "/")
}

// Language returns the language code of a concept label, or "".
func Language(s string) string {
	if !IsConcept(s) {
		return ""
	}
	parts := Split(s)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Prefix strips everything after the term text of a concept label, so
// "/c/en/dog/n/wn/animal" becomes "/c/en/dog". Other strings are returned
// unchanged.
func Prefix(s string) string {
	if !IsConcept(s) {
		return s
	}
	parts := Split(s)
	if len(parts) <= 3 {
		return s
	}
	return Join(parts[:3]...)
}

// Text normalizes free text into the form used inside labels: NFC,
// lower case, runs of whitespace replaced by a single underscore and
// slashes removed.
func Text(s string) string {
	s = lower.String(norm.NFC.String(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	underscore := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '_':
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		case r == '/':
		default:
			b.WriteRune(r)
			underscore = false
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Standardize turns a term into a concept label in language lang.
//
// Concept labels get their text component normalized and keep their
// language. Other terms are normalized with Text and placed under
// "/c/<lang>/". With an empty lang, the normalized text is returned.
func Standardize(term, lang string) string {
	term = strings.TrimSpace(term)
	if IsConcept(term) {
		parts := Split(term)
		if len(parts) >= 3 {
			parts[2] = Text(parts[2])
			for i := 3; i < len(parts); i++ {
				parts[i] = strings.ToLower(parts[i])
			}
		}
		return Join(parts...)
	}

	text := Text(term)
	if lang == "" || text == "" {
		return text
	}
	return Join("c", lang, text)
}
