// Package space holds labeled word-vector matrices.
//
// A Matrix is an ordered list of (label, vector) rows of one width, with a
// label index built at construction. Matrices are immutable: every
// transformation returns a new Matrix, and slices returned by accessors
// are read-only views into the matrix storage.
//
// LabelSet and Vocabulary support the vocabulary algebra used when several
// matrices are aligned: ordered union and intersection, and roaring bitmaps
// over interned label ids for large vocabularies.
package space
