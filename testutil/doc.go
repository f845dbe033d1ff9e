// Package testutil provides testing utilities for vecspace.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random labeled matrices and relation
// graphs, and for comparing vectors within a tolerance.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	m := rng.Matrix(1000, 64, "w")            // labels w0..w999
//	src := rng.Graph(m.Labels(), 4)           // ~4 edges per label
//
// # Assertions
//
//	testutil.AssertVectorsClose(t, want, got, 1e-5)
//	testutil.AssertMatricesClose(t, want, got, 1e-5)
package testutil
