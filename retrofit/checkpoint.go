package retrofit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/codec"
	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/hupe1980/vecspace/internal/hash"
	"github.com/hupe1980/vecspace/internal/resource"
	"github.com/hupe1980/vecspace/internal/rowfile"
	"github.com/hupe1980/vecspace/shard"
	"github.com/hupe1980/vecspace/space"
)

// CheckpointOptions configures a Checkpointer.
type CheckpointOptions struct {
	// Codec encodes the manifest. Defaults to codec.Default.
	Codec codec.Codec
	// Compression is the block compression of shard blobs. Default zstd.
	Compression compress.Type
	// Concurrency caps parallel shard uploads and downloads. Default 4.
	Concurrency int
	Logger      *slog.Logger
	// Controller rate-limits blob IO. Defaults to the engine's controller.
	Controller *resource.Controller
}

// DefaultCheckpointOptions are the defaults used by NewCheckpointer.
var DefaultCheckpointOptions = CheckpointOptions{
	Codec:       codec.Default,
	Compression: compress.ZSTD,
	Concurrency: 4,
}

// WithCheckpointCodec sets the manifest codec.
func WithCheckpointCodec(c codec.Codec) func(*CheckpointOptions) {
	return func(o *CheckpointOptions) { o.Codec = c }
}

// WithCheckpointCompression sets the shard blob compression.
func WithCheckpointCompression(t compress.Type) func(*CheckpointOptions) {
	return func(o *CheckpointOptions) { o.Compression = t }
}

// WithCheckpointConcurrency caps parallel shard transfers.
func WithCheckpointConcurrency(n int) func(*CheckpointOptions) {
	return func(o *CheckpointOptions) { o.Concurrency = n }
}

// WithCheckpointLogger sets the logger.
func WithCheckpointLogger(l *slog.Logger) func(*CheckpointOptions) {
	return func(o *CheckpointOptions) { o.Logger = l }
}

// WithCheckpointController sets the resource controller used for IO limits.
func WithCheckpointController(rc *resource.Controller) func(*CheckpointOptions) {
	return func(o *CheckpointOptions) { o.Controller = rc }
}

// Checkpointer persists retrofit results as per-shard blobs plus a manifest
// under a prefix of a blobstore.Store, and joins them back.
//
// Layout:
//
//	<prefix>/<run>/shard-0000-of-0006.rows
//	<prefix>/<run>/MANIFEST.json
//	<prefix>/CURRENT
//
// CURRENT is written last and names the committed run.
type Checkpointer struct {
	store  blobstore.Store
	prefix string
	opts   CheckpointOptions
	logger *slog.Logger
}

// NewCheckpointer returns a Checkpointer writing under prefix.
func NewCheckpointer(store blobstore.Store, prefix string, optFns ...func(*CheckpointOptions)) *Checkpointer {
	opts := DefaultCheckpointOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checkpointer{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		opts:   opts,
		logger: logger,
	}
}

// Prefix returns the checkpoint prefix.
func (c *Checkpointer) Prefix() string { return c.prefix }

// Save writes m partitioned by plan as a new run and commits it.
func (c *Checkpointer) Save(ctx context.Context, runID string, iterations int, m *space.Matrix, plan *shard.Plan) (*Manifest, error) {
	man, _, err := c.save(ctx, nil, runID, iterations, m, plan)
	return man, err
}

func (c *Checkpointer) controller(fallback *resource.Controller) *resource.Controller {
	if c.opts.Controller != nil {
		return c.opts.Controller
	}
	return fallback
}

func (c *Checkpointer) save(ctx context.Context, rc *resource.Controller, runID string, iterations int, m *space.Matrix, plan *shard.Plan) (*Manifest, int64, error) {
	if plan.Len() != m.Len() {
		return nil, 0, fmt.Errorf("retrofit: plan covers %d rows, matrix has %d", plan.Len(), m.Len())
	}
	rc = c.controller(rc)
	n := plan.NumShards()

	man := &Manifest{
		Version:     ManifestVersion,
		RunID:       runID,
		Created:     time.Now().UTC(),
		NumShards:   n,
		Iterations:  iterations,
		Dim:         m.Dim(),
		Rows:        m.Len(),
		Compression: c.opts.Compression.String(),
		Shards:      make([]ShardRecord, n),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i := range n {
		g.Go(func() error {
			rec, err := c.writeShard(gctx, rc, runID, i, n, m, plan.Rows(i))
			if err != nil {
				return err
			}
			man.Shards[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	data, err := c.opts.Codec.Marshal(man)
	if err != nil {
		return nil, 0, fmt.Errorf("retrofit: encode manifest: %w", err)
	}
	if err := c.put(ctx, rc, manifestPath(c.prefix, runID), data); err != nil {
		return nil, 0, err
	}

	// Nothing is visible until CURRENT names the run.
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := c.put(ctx, rc, currentPath(c.prefix), []byte(runID)); err != nil {
		return nil, 0, err
	}

	total := man.TotalSize() + int64(len(data))
	c.logger.Info("checkpoint committed", "run_id", runID, "shards", n, "rows", man.Rows, "bytes", total)
	return man, total, nil
}

func (c *Checkpointer) writeShard(ctx context.Context, rc *resource.Controller, runID string, i, n int, m *space.Matrix, rows []uint32) (ShardRecord, error) {
	var buf bytes.Buffer
	w, err := rowfile.NewWriter(&buf, m.Dim(), rowfile.WithOrdinals(), rowfile.WithCompression(c.opts.Compression))
	if err != nil {
		return ShardRecord{}, err
	}
	for _, r := range rows {
		if err := w.Write(rowfile.Row{Ordinal: uint64(r), Label: m.Label(int(r)), Vector: m.Row(int(r))}); err != nil {
			return ShardRecord{}, fmt.Errorf("retrofit: shard %d: %w", i, err)
		}
	}
	if err := w.Close(); err != nil {
		return ShardRecord{}, fmt.Errorf("retrofit: shard %d: %w", i, err)
	}

	name := shardBlobName(c.prefix, runID, i, n)
	data := buf.Bytes()
	if err := c.put(ctx, rc, name, data); err != nil {
		return ShardRecord{}, err
	}
	return ShardRecord{
		Index:    i,
		Blob:     path.Base(name),
		Rows:     len(rows),
		Checksum: hash.CRC32C(data),
		Size:     int64(len(data)),
	}, nil
}

func (c *Checkpointer) put(ctx context.Context, rc *resource.Controller, name string, data []byte) error {
	if err := rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := c.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("retrofit: write %s: %w", name, err)
	}
	return nil
}

func (c *Checkpointer) get(ctx context.Context, rc *resource.Controller, name string) ([]byte, error) {
	data, err := blobstore.ReadAll(ctx, c.store, name)
	if err != nil {
		return nil, err
	}
	if err := rc.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Current returns the committed run id, or ErrNoCheckpoint.
func (c *Checkpointer) Current(ctx context.Context) (string, error) {
	data, err := blobstore.ReadAll(ctx, c.store, currentPath(c.prefix))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", fmt.Errorf("%w under %q", ErrNoCheckpoint, c.prefix)
		}
		return "", err
	}
	runID := strings.TrimSpace(string(data))
	if runID == "" {
		return "", fmt.Errorf("%w: empty %s", ErrNoCheckpoint, currentName)
	}
	return runID, nil
}

// Manifest reads the manifest of a run.
func (c *Checkpointer) Manifest(ctx context.Context, runID string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, c.store, manifestPath(c.prefix, runID))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: run %s has no manifest", ErrIncompleteCheckpoint, runID)
		}
		return nil, err
	}
	var man Manifest
	if err := c.opts.Codec.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrIncompleteCheckpoint, err)
	}
	if man.Version > ManifestVersion {
		return nil, fmt.Errorf("retrofit: unsupported manifest version %d", man.Version)
	}
	return &man, nil
}

// Join reassembles the committed run into one matrix in original row order.
// nshards must match the manifest; 0 accepts any shard count.
func (c *Checkpointer) Join(ctx context.Context, nshards int) (*space.Matrix, error) {
	start := time.Now()
	rc := c.controller(nil)

	runID, err := c.Current(ctx)
	if err != nil {
		return nil, err
	}
	man, err := c.Manifest(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := man.check(nshards); err != nil {
		return nil, err
	}

	tables := make([]*rowfile.Table, man.NumShards)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, rec := range man.Shards {
		g.Go(func() error {
			tbl, err := c.readShard(gctx, rc, runID, rec, man)
			if err != nil {
				return err
			}
			tables[rec.Index] = tbl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make([]*roaring.Bitmap, len(tables))
	var total uint64
	for i, tbl := range tables {
		bm := roaring.New()
		for _, ord := range tbl.Ordinals {
			if ord >= uint64(man.Rows) {
				return nil, fmt.Errorf("%w: shard %d: ordinal %d out of range", ErrIncompleteCheckpoint, i, ord)
			}
			if !bm.CheckedAdd(uint32(ord)) {
				return nil, fmt.Errorf("%w: shard %d: ordinal %d repeated", ErrIncompleteCheckpoint, i, ord)
			}
		}
		seen[i] = bm
		total += bm.GetCardinality()
	}
	union := roaring.FastOr(seen...)
	if total != union.GetCardinality() {
		return nil, fmt.Errorf("%w: %d ordinals owned by more than one shard", ErrIncompleteCheckpoint, total-union.GetCardinality())
	}
	if union.GetCardinality() != uint64(man.Rows) {
		return nil, fmt.Errorf("%w: %d of %d rows present", ErrIncompleteCheckpoint, union.GetCardinality(), man.Rows)
	}

	d := man.Dim
	labels := make([]string, man.Rows)
	data := make([]float32, man.Rows*d)
	for _, tbl := range tables {
		for k, ord := range tbl.Ordinals {
			labels[ord] = tbl.Labels[k]
			copy(data[int(ord)*d:(int(ord)+1)*d], tbl.Vector(k))
		}
	}

	m, err := space.New(d, labels, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteCheckpoint, err)
	}
	c.logger.Info("checkpoint joined", "run_id", runID, "shards", man.NumShards, "rows", m.Len(), "elapsed", time.Since(start))
	return m, nil
}

func (man *Manifest) check(nshards int) error {
	if nshards > 0 && nshards != man.NumShards {
		return fmt.Errorf("%w: run has %d shards, expected %d", ErrIncompleteCheckpoint, man.NumShards, nshards)
	}
	if len(man.Shards) != man.NumShards {
		return fmt.Errorf("%w: manifest lists %d of %d shards", ErrIncompleteCheckpoint, len(man.Shards), man.NumShards)
	}
	if man.Rows < 0 || man.Dim < 0 {
		return fmt.Errorf("%w: bad manifest shape %dx%d", ErrIncompleteCheckpoint, man.Rows, man.Dim)
	}
	for i, rec := range man.Shards {
		if rec.Index != i {
			return fmt.Errorf("%w: shard record %d has index %d", ErrIncompleteCheckpoint, i, rec.Index)
		}
	}
	return nil
}

func (c *Checkpointer) readShard(ctx context.Context, rc *resource.Controller, runID string, rec ShardRecord, man *Manifest) (*rowfile.Table, error) {
	name := path.Join(c.prefix, runID, rec.Blob)
	data, err := c.get(ctx, rc, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: missing %s", ErrIncompleteCheckpoint, name)
		}
		return nil, err
	}
	if int64(len(data)) != rec.Size || hash.CRC32C(data) != rec.Checksum {
		return nil, fmt.Errorf("%w: %s does not match its manifest checksum", ErrIncompleteCheckpoint, name)
	}

	tbl, err := rowfile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIncompleteCheckpoint, name, err)
	}
	switch {
	case !tbl.Header.HasOrdinals():
		return nil, fmt.Errorf("%w: %s has no row ordinals", ErrIncompleteCheckpoint, name)
	case tbl.Header.Dim != man.Dim:
		return nil, fmt.Errorf("%w: %s has dimension %d, manifest %d", ErrIncompleteCheckpoint, name, tbl.Header.Dim, man.Dim)
	case len(tbl.Labels) != rec.Rows:
		return nil, fmt.Errorf("%w: %s has %d rows, manifest %d", ErrIncompleteCheckpoint, name, len(tbl.Labels), rec.Rows)
	}
	return tbl, nil
}

// Prune deletes every run except the committed one and returns the number
// of runs removed.
func (c *Checkpointer) Prune(ctx context.Context) (int, error) {
	current, err := c.Current(ctx)
	if err != nil {
		return 0, err
	}

	listPrefix := c.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	names, err := c.store.List(ctx, listPrefix)
	if err != nil {
		return 0, err
	}

	runs := make(map[string]struct{})
	for _, name := range names {
		run, rest, ok := strings.Cut(strings.TrimPrefix(name, listPrefix), "/")
		if !ok || run == current || strings.Contains(rest, "/") {
			continue
		}
		if rest != manifestName && !strings.HasPrefix(rest, "shard-") {
			continue
		}
		if err := c.store.Delete(ctx, name); err != nil {
			return len(runs), fmt.Errorf("retrofit: prune %s: %w", name, err)
		}
		runs[run] = struct{}{}
	}
	if len(runs) > 0 {
		c.logger.Info("checkpoint runs pruned", "runs", len(runs), "current", current)
	}
	return len(runs), nil
}

// Join reassembles the committed checkpoint under prefix.
func Join(ctx context.Context, store blobstore.Store, prefix string, nshards int) (*space.Matrix, error) {
	return NewCheckpointer(store, prefix).Join(ctx, nshards)
}
