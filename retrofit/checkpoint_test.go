package retrofit

import (
	"context"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/codec"
	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/hupe1980/vecspace/internal/resource"
	"github.com/hupe1980/vecspace/space"
	"github.com/hupe1980/vecspace/testutil"
)

func checkpointRun(t *testing.T, store blobstore.Store, nshards int, optFns ...func(*CheckpointOptions)) (*space.Matrix, *Result) {
	t.Helper()
	rng := testutil.NewRNG(21)
	m := rng.Matrix(250, 8, "w")
	g := buildGraph(t, rng.Graph(m.Labels(), 3))

	e, err := New(WithNumShards(nshards), WithCheckpointer(NewCheckpointer(store, "runs/retro", optFns...)))
	require.NoError(t, err)
	res, err := e.Run(t.Context(), m, g)
	require.NoError(t, err)
	return m, res
}

func TestCheckpointRoundTrip(t *testing.T) {
	stores := map[string]blobstore.Store{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, res := checkpointRun(t, store, 6)

			man := res.Report.Checkpoint
			require.NotNil(t, man)
			assert.Equal(t, res.Report.RunID, man.RunID)
			assert.Equal(t, 6, man.NumShards)
			assert.Equal(t, 250, man.Rows)
			assert.Equal(t, "zstd", man.Compression)

			names, err := store.List(t.Context(), "runs/retro/")
			require.NoError(t, err)
			assert.Contains(t, names, "runs/retro/CURRENT")
			assert.Contains(t, names, path.Join("runs/retro", man.RunID, "MANIFEST.json"))
			assert.Contains(t, names, path.Join("runs/retro", man.RunID, "shard-0003-of-0006.rows"))

			got, err := Join(t.Context(), store, "runs/retro", 6)
			require.NoError(t, err)
			assert.True(t, res.Matrix.Equal(got))

			got, err = Join(t.Context(), store, "runs/retro", 0)
			require.NoError(t, err)
			assert.True(t, res.Matrix.Equal(got))
		})
	}
}

func TestCheckpointOptions(t *testing.T) {
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30})
	_, res := checkpointRun(t, store, 3,
		WithCheckpointCodec(codec.JSON{}),
		WithCheckpointCompression(compress.LZ4),
		WithCheckpointConcurrency(1),
		WithCheckpointController(rc),
	)
	assert.Equal(t, "lz4", res.Report.Checkpoint.Compression)

	cp := NewCheckpointer(store, "/runs/retro/", WithCheckpointCodec(codec.JSON{}))
	assert.Equal(t, "runs/retro", cp.Prefix())
	got, err := cp.Join(t.Context(), 3)
	require.NoError(t, err)
	assert.True(t, res.Matrix.Equal(got))
}

func TestCheckpointSaveDirect(t *testing.T) {
	store := blobstore.NewMemoryStore()
	m := smallMatrix(t)
	plan := mustPlan(t, m, 2)

	cp := NewCheckpointer(store, "")
	man, err := cp.Save(t.Context(), "run-1", 0, m, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, man.NumShards)

	cur, err := cp.Current(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "run-1", cur)

	got, err := cp.Join(t.Context(), 2)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
}

func TestJoinIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		damage func(t *testing.T, store *blobstore.MemoryStore, man *Manifest)
		n      int
	}{
		{
			name:   "shard count mismatch",
			damage: func(*testing.T, *blobstore.MemoryStore, *Manifest) {},
			n:      5,
		},
		{
			name: "missing shard",
			damage: func(t *testing.T, store *blobstore.MemoryStore, man *Manifest) {
				require.NoError(t, store.Delete(t.Context(), path.Join("runs/retro", man.RunID, man.Shards[2].Blob)))
			},
			n: 4,
		},
		{
			name: "corrupt shard",
			damage: func(t *testing.T, store *blobstore.MemoryStore, man *Manifest) {
				name := path.Join("runs/retro", man.RunID, man.Shards[1].Blob)
				data, err := blobstore.ReadAll(t.Context(), store, name)
				require.NoError(t, err)
				data[len(data)/2] ^= 0xff
				require.NoError(t, store.Put(t.Context(), name, data))
			},
			n: 4,
		},
		{
			name: "missing manifest",
			damage: func(t *testing.T, store *blobstore.MemoryStore, man *Manifest) {
				require.NoError(t, store.Delete(t.Context(), path.Join("runs/retro", man.RunID, "MANIFEST.json")))
			},
			n: 4,
		},
		{
			name: "shard listed twice",
			damage: func(t *testing.T, store *blobstore.MemoryStore, man *Manifest) {
				bad := *man
				bad.Shards = append([]ShardRecord(nil), man.Shards...)
				bad.Shards[3] = man.Shards[0]
				bad.Shards[3].Index = 3
				data, err := codec.Default.Marshal(&bad)
				require.NoError(t, err)
				require.NoError(t, store.Put(t.Context(), path.Join("runs/retro", man.RunID, "MANIFEST.json"), data))
			},
			n: 4,
		},
		{
			name: "garbage manifest",
			damage: func(t *testing.T, store *blobstore.MemoryStore, man *Manifest) {
				require.NoError(t, store.Put(t.Context(), path.Join("runs/retro", man.RunID, "MANIFEST.json"), []byte("{")))
			},
			n: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			_, res := checkpointRun(t, store, 4)
			tt.damage(t, store, res.Report.Checkpoint)

			got, err := Join(t.Context(), store, "runs/retro", tt.n)
			require.ErrorIs(t, err, ErrIncompleteCheckpoint)
			assert.Nil(t, got)
		})
	}
}

func TestJoinNoCheckpoint(t *testing.T) {
	_, err := Join(t.Context(), blobstore.NewMemoryStore(), "nothing", 0)
	require.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestCheckpointPrune(t *testing.T) {
	store := blobstore.NewMemoryStore()
	checkpointRun(t, store, 3)
	_, res := checkpointRun(t, store, 2)

	cp := NewCheckpointer(store, "runs/retro")
	n, err := cp.Prune(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	names, err := store.List(t.Context(), "runs/retro/")
	require.NoError(t, err)
	for _, name := range names {
		if !strings.HasSuffix(name, "/CURRENT") {
			assert.Contains(t, name, res.Report.RunID)
		}
	}

	got, err := cp.Join(t.Context(), 2)
	require.NoError(t, err)
	assert.True(t, res.Matrix.Equal(got))

	n, err = cp.Prune(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckpointCancelledSave(t *testing.T) {
	store := blobstore.NewMemoryStore()
	m := smallMatrix(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewCheckpointer(store, "x").Save(ctx, "run", 1, m, mustPlan(t, m, 2))
	require.ErrorIs(t, err, context.Canceled)

	ok, err := blobstore.Exists(t.Context(), store, "x/CURRENT")
	require.NoError(t, err)
	assert.False(t, ok)
}
