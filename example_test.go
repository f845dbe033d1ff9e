package vecspace_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/vecspace"
	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/retrofit"
	"github.com/hupe1980/vecspace/space"
)

func exampleMatrix() *space.Matrix {
	b := space.NewBuilder(2)
	_ = b.Add("/c/en/cat", []float32{0, 1})
	_ = b.Add("/c/en/kitten", []float32{2, 1})
	_ = b.Add("/c/en/lion", []float32{10, 1})
	_ = b.Add("/c/en/rock", []float32{5, 1})
	return b.MustBuild()
}

// ExampleRetrofit pulls related labels towards each other.
func ExampleRetrofit() {
	ctx := context.Background()
	g, _, err := graph.Build(ctx, graph.SliceSource{
		{From: "/c/en/cat", To: "/c/en/kitten", Weight: 1},
		{From: "/c/en/kitten", To: "/c/en/lion", Weight: 1},
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := vecspace.Retrofit(ctx, exampleMatrix(), g,
		vecspace.WithRetrofitOptions(retrofit.WithIterations(2), retrofit.WithNumShards(2)),
	)
	if err != nil {
		log.Fatal(err)
	}
	for _, l := range res.Matrix.Labels() {
		v, _ := res.Matrix.Vector(l)
		fmt.Printf("%s %.1f\n", l, v[0])
	}
	fmt.Println("isolated:", res.Report.Isolated)
	// Output:
	// /c/en/cat 2.0
	// /c/en/kitten 3.0
	// /c/en/lion 7.0
	// /c/en/rock 5.0
	// isolated: 1
}

// ExampleJoinRetrofit persists a run and assembles it again.
func ExampleJoinRetrofit() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	g, _, _ := graph.Build(ctx, graph.SliceSource{{From: "/c/en/cat", To: "/c/en/lion", Weight: 0.5}})

	res, err := vecspace.Retrofit(ctx, exampleMatrix(), g,
		vecspace.WithCheckpoint(store, "numberbatch"),
		vecspace.WithRetrofitOptions(retrofit.WithNumShards(3)),
	)
	if err != nil {
		log.Fatal(err)
	}

	joined, err := vecspace.JoinRetrofit(ctx, store, "numberbatch", 3)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(joined.Len(), joined.Equal(res.Matrix))
	// Output: 4 true
}

// ExampleInterpolateAll blends two spaces with partly shared vocabularies.
func ExampleInterpolateAll() {
	a, _ := space.New(1, []string{"x", "y"}, []float32{1, 2})
	b, _ := space.New(1, []string{"y", "z"}, []float32{4, 8})

	res, err := vecspace.InterpolateAll(context.Background(), a, b,
		vecspace.WithMergeOptions(merge.WithVocabThreshold(1)),
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Matrix.Labels(), res.Matrix.Data())
	// Output: [x y z] [1 3 8]
}

// ExampleLookup resolves free text through the normalizer chain.
func ExampleLookup() {
	l, err := vecspace.NewLookup(exampleMatrix())
	if err != nil {
		log.Fatal(err)
	}
	r := l.Resolve("Kitten")
	fmt.Println(r.Label, r.Step)
	fmt.Println(l.GetVector("unicorn"))
	// Output:
	// /c/en/kitten normalized
	// [0 0]
}
