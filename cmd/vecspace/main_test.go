package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecspace"
	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/format"
	"github.com/hupe1980/vecspace/internal/config"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/space"
	"github.com/hupe1980/vecspace/testutil"
)

// run executes the CLI with an empty config directory and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeMatrix(t *testing.T, m *space.Matrix, path string) string {
	t.Helper()
	require.NoError(t, format.Save(context.Background(), m, path))
	return path
}

func readMatrix(t *testing.T, path string) *space.Matrix {
	t.Helper()
	m, err := format.Load(context.Background(), path)
	require.NoError(t, err)
	return m
}

func conceptMatrix(t *testing.T) *space.Matrix {
	t.Helper()
	m, err := space.New(2,
		[]string{"/c/en/cat", "/c/en/kitten", "/c/en/lion", "/c/en/rock"},
		[]float32{0, 1, 2, 1, 10, 1, 5, 1})
	require.NoError(t, err)
	return m
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	m := testutil.NewRNG(1).Matrix(20, 4, "w")
	in := writeMatrix(t, m, filepath.Join(dir, "in.txt"))
	out := filepath.Join(dir, "out.vsb")

	_, err := run(t, "convert", "-n", "5", in, out)
	require.NoError(t, err)

	got := readMatrix(t, out)
	assert.True(t, m.Select(m.Labels()[:5]).Equal(got))
}

func TestConvert_ExplicitFormats(t *testing.T) {
	dir := t.TempDir()
	m := testutil.NewRNG(2).Matrix(6, 3, "w")
	in := filepath.Join(dir, "in.data")
	w2v, err := format.ByName("word2vec")
	require.NoError(t, err)
	require.NoError(t, w2v.Save(context.Background(), m, in))
	out := filepath.Join(dir, "out.db")

	_, err = run(t, "--in-format", "w2v", "convert", in, out)
	require.NoError(t, err)
	assert.True(t, m.Equal(readMatrix(t, out)))

	_, err = run(t, "convert", in, out)
	require.ErrorIs(t, err, format.ErrUnknownFormat)
}

func TestShrink(t *testing.T) {
	dir := t.TempDir()
	in := writeMatrix(t, conceptMatrix(t), filepath.Join(dir, "in.vsb"))
	out := filepath.Join(dir, "out.vsb")

	_, err := run(t, "shrink", "-n", "3", "-k", "1", in, out)
	require.NoError(t, err)

	got := readMatrix(t, out)
	assert.Equal(t, []string{"/c/en/cat", "/c/en/kitten", "/c/en/lion"}, got.Labels())
	assert.Equal(t, 1, got.Dim())
	assert.Equal(t, []float32{0, 2, 10}, got.Data())
}

func TestRetrofitAndJoin(t *testing.T) {
	dir := t.TempDir()
	vectors := writeMatrix(t, conceptMatrix(t), filepath.Join(dir, "vectors.vsb"))
	graphPath := filepath.Join(dir, "edges.tsv")
	require.NoError(t, os.WriteFile(graphPath, []byte("/c/en/cat\t/c/en/kitten\t1\n/c/en/kitten\t/c/en/lion\n"), 0o600))
	ckpt := filepath.Join(dir, "ckpt")
	out := filepath.Join(dir, "retrofit.vsb")

	stdout, err := run(t, "retrofit", "-i", "2", "-s", "3", "--checkpoint", ckpt, vectors, graphPath, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 shards, 4 rows")

	got := readMatrix(t, out)
	for label, want := range map[string][]float32{
		"/c/en/cat": {2, 1}, "/c/en/kitten": {3, 1}, "/c/en/lion": {7, 1}, "/c/en/rock": {5, 1},
	} {
		v, ok := got.Vector(label)
		require.True(t, ok)
		testutil.AssertVectorsClose(t, want, v, 1e-6)
	}

	joined := filepath.Join(dir, "joined.vsb")
	_, err = run(t, "join-retrofit", "-s", "3", ckpt, joined)
	require.NoError(t, err)
	assert.True(t, got.Equal(readMatrix(t, joined)))

	_, err = run(t, "join-retrofit", "-s", "4", ckpt, joined)
	require.ErrorIs(t, err, vecspace.ErrMalformedInput)

	stdout, err = run(t, "prune-checkpoints", ckpt)
	require.NoError(t, err)
	assert.Equal(t, "removed 0 runs\n", stdout)
}

func TestRetrofit_Errors(t *testing.T) {
	dir := t.TempDir()
	vectors := writeMatrix(t, conceptMatrix(t), filepath.Join(dir, "vectors.vsb"))
	graphPath := filepath.Join(dir, "edges.tsv")
	require.NoError(t, os.WriteFile(graphPath, []byte("/c/en/cat\t/c/en/kitten\n"), 0o600))

	_, err := run(t, "retrofit", vectors, graphPath)
	require.Error(t, err)

	_, err = run(t, "retrofit", "-i", "0", vectors, graphPath, filepath.Join(dir, "o.vsb"))
	require.ErrorIs(t, err, vecspace.ErrConfiguration)

	_, err = run(t, "retrofit", "--policy", "random", vectors, graphPath, filepath.Join(dir, "o.vsb"))
	require.ErrorIs(t, err, vecspace.ErrConfiguration)

	_, err = run(t, "retrofit", "--graph-format", "rdf", vectors, graphPath, filepath.Join(dir, "o.vsb"))
	require.ErrorIs(t, err, vecspace.ErrConfiguration)
}

func TestInterpolateAll(t *testing.T) {
	dir := t.TempDir()
	a, err := space.New(1, []string{"x", "y"}, []float32{1, 2})
	require.NoError(t, err)
	b, err := space.New(1, []string{"y", "z"}, []float32{4, 8})
	require.NoError(t, err)
	pa := writeMatrix(t, a, filepath.Join(dir, "a.vsb"))
	pb := writeMatrix(t, b, filepath.Join(dir, "b.vsb"))
	out := filepath.Join(dir, "out.vsb")

	stdout, err := run(t, "interpolate-all", "-t", "1", pa, pb, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "blended 1")

	got := readMatrix(t, out)
	assert.Equal(t, []string{"x", "y", "z"}, got.Labels())
	assert.Equal(t, []float32{1, 3, 8}, got.Data())

	_, err = run(t, "interpolate-all", pa, pb, out)
	require.ErrorIs(t, err, vecspace.ErrCoverageTooLow)

	_, err = run(t, "interpolate-all", "-t", "1", "--blend", "weighted", "--weights", "3,1", pa, pb, out)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, 8}, readMatrix(t, out).Data())

	_, err = run(t, "interpolate-all", "-t", "1", "--blend", "average", "--weights", "3,1", pa, pb, out)
	require.ErrorIs(t, err, vecspace.ErrConfiguration)
	var cfgErr *vecspace.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "weights", cfgErr.Param)
}

func TestInterpolate_GraphTarget(t *testing.T) {
	dir := t.TempDir()
	a, err := space.New(1, []string{"x", "y", "q"}, []float32{1, 2, 9})
	require.NoError(t, err)
	pa := writeMatrix(t, a, filepath.Join(dir, "a.vsb"))
	pb := writeMatrix(t, a, filepath.Join(dir, "b.vsb"))
	graphPath := filepath.Join(dir, "g.tsv")
	require.NoError(t, os.WriteFile(graphPath, []byte("x\ty\n"), 0o600))
	out := filepath.Join(dir, "out.vsb")

	_, err = run(t, "interpolate", "-t", "2", pa, pb, graphPath, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, readMatrix(t, out).Labels())
}

func TestIntersect(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(4)
	a := writeMatrix(t, rng.Matrix(30, 5, "w"), filepath.Join(dir, "glove.vsb"))
	b := writeMatrix(t, rng.Matrix(30, 3, "w"), filepath.Join(dir, "w2v.vsb"))
	out := filepath.Join(dir, "out.vsb")
	proj := filepath.Join(dir, "proj.vsb")

	_, err := run(t, "intersect", "--dim", "4", "--projector", proj, a, b, out)
	require.NoError(t, err)
	assert.Equal(t, 4, readMatrix(t, out).Dim())

	ps, err := merge.ProjectorsFromMatrix(readMatrix(t, proj))
	require.NoError(t, err)
	require.Contains(t, ps, "glove")
	require.Contains(t, ps, "w2v")
	assert.Equal(t, 5, ps["glove"].InDim())
	assert.Equal(t, 4, ps["w2v"].OutDim())

	_, err = run(t, "intersect", a, out)
	require.Error(t, err)
}

func TestFilterWordVectors(t *testing.T) {
	dir := t.TempDir()
	vectors := writeMatrix(t, conceptMatrix(t), filepath.Join(dir, "v.vsb"))
	vocab := filepath.Join(dir, "vocab.txt")
	require.NoError(t, os.WriteFile(vocab, []byte("cat\n\nLion\nunicorn\n"), 0o600))

	stdout, err := run(t, "filter-word-vectors", vectors, vocab)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cat 0.000000 1.000000",
		"Lion 10.000000 1.000000",
		"unicorn 0.000000 0.000000",
	}, strings.Split(strings.TrimSpace(stdout), "\n"))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("merge:\n  vocab_threshold: 1\n"), 0o600))
	a, err := space.New(1, []string{"x"}, []float32{1})
	require.NoError(t, err)
	pa := writeMatrix(t, a, filepath.Join(dir, "a.vsb"))

	_, err = run(t, "--config", cfgPath, "interpolate-all", pa, pa, filepath.Join(dir, "o.vsb"))
	require.NoError(t, err)

	_, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "interpolate-all", pa, pa, filepath.Join(dir, "o.vsb"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "--log-format", "xml", "convert", pa, filepath.Join(dir, "o.vsb"))
	require.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	var cfg config.StorageConfig
	dir := t.TempDir()

	st, prefix, err := openStore(ctx, cfg, dir)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, st)
	assert.Empty(t, prefix)

	st, _, err = openStore(ctx, cfg, "file://"+dir)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, st)

	_, _, err = openStore(ctx, cfg, "minio://bucket/prefix")
	require.ErrorContains(t, err, "endpoint")

	_, _, err = openStore(ctx, cfg, "gs://bucket")
	require.ErrorContains(t, err, "unsupported scheme")

	_, _, err = openStore(ctx, cfg, "s3:///prefix")
	require.ErrorContains(t, err, "missing bucket")
}
