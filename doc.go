// Package vecspace maintains and transforms labeled word-vector spaces.
//
// It covers two jobs: propagating a weighted relation graph into a vector
// space (retrofitting), and merging spaces that differ in vocabulary and
// width (interpolation and intersection).
//
// # Retrofitting
//
// Rows are partitioned into shards; every round each shard updates its own
// rows from a read-only snapshot of the previous round, and all shards
// meet at a barrier before the next round starts:
//
//	g, _, _ := graph.Build(ctx, graph.ConceptNetFile("assertions.csv.gz"))
//	res, err := vecspace.Retrofit(ctx, m, g,
//	    vecspace.WithRetrofitOptions(retrofit.WithIterations(5), retrofit.WithNumShards(6)),
//	)
//
// Results can be checkpointed to any blobstore.Store and joined later:
//
//	store := blobstore.NewLocalStore("./checkpoints")
//	_, err := vecspace.Retrofit(ctx, m, g, vecspace.WithCheckpoint(store, "conceptnet"))
//	joined, err := vecspace.JoinRetrofit(ctx, store, "conceptnet", 6)
//
// # Merging
//
//	res, err := vecspace.InterpolateAll(ctx, glove, w2v)
//	res, err := vecspace.Intersect(ctx, []*space.Matrix{glove, w2v, fasttext}, 300)
//
// # Lookup
//
//	l, _ := vecspace.NewLookup(res.Matrix)
//	vec := l.GetVector("Ice Cream") // resolves /c/en/ice_cream
//
// # Errors
//
// Errors returned by the functions in this package match one of
// ErrConfiguration, ErrMalformedInput or ErrCoverageTooLow with errors.Is,
// while still wrapping the package error that caused them.
package vecspace
