package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecspace"
	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/hupe1980/vecspace/internal/config"
	"github.com/hupe1980/vecspace/retrofit"
	"github.com/hupe1980/vecspace/shard"
)

type graphFlags struct {
	format    string
	languages []string
}

func (gf *graphFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&gf.format, "graph-format", "", "relation graph format: conceptnet or tsv (default by extension)")
	cmd.Flags().StringSliceVar(&gf.languages, "languages", nil, "keep only ConceptNet assertions between these languages")
}

func (a *app) loadGraph(cmd *cobra.Command, path string, gf graphFlags) (*graph.Graph, error) {
	kind := gf.format
	if kind == "" {
		kind = "conceptnet"
		if strings.Contains(strings.ToLower(filepath.Base(path)), ".tsv") {
			kind = "tsv"
		}
	}

	var src graph.EdgeSource
	switch kind {
	case "conceptnet":
		var opts []graph.ConceptNetOption
		if len(gf.languages) > 0 {
			opts = append(opts, graph.WithLanguages(gf.languages...))
		}
		src = graph.ConceptNetFile(path, opts...)
	case "tsv":
		src = graph.TSVFile(path)
	default:
		return nil, &vecspace.ConfigurationError{Param: "graph-format", Reason: fmt.Sprintf("unknown format %q", kind)}
	}

	g, stats, err := graph.Build(cmd.Context(), src, graph.WithLogger(a.logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	a.logger.Info("loaded graph",
		"path", path,
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
		"records", stats.Records,
		"skipped", stats.Skipped,
	)
	return g, nil
}

func (a *app) retrofitCmd() *cobra.Command {
	var (
		gf          graphFlags
		iterations  int
		nshards     int
		policy      string
		maxWorkers  int
		memoryLimit string
		ioLimit     string
		checkpoint  string
	)
	cmd := &cobra.Command{
		Use:   "retrofit <vectors> <graph> [output]",
		Short: "Propagate a relation graph into a vector space",
		Long: `Retrofit runs exactly --iterations rounds over --nshards row shards. Each
round every shard moves its rows towards the weighted mean of their graph
neighbors, anchored to the original vector.

With --checkpoint the result is also written shard by shard to a local
directory, s3://bucket/prefix or minio://bucket/prefix and committed;
join-retrofit assembles it later.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 && checkpoint == "" {
				return errors.New("retrofit needs an output path, --checkpoint, or both")
			}
			rc := a.cfg.Retrofit
			if cmd.Flags().Changed("iterations") {
				rc.Iterations = iterations
			}
			if cmd.Flags().Changed("nshards") {
				rc.NumShards = nshards
			}
			if cmd.Flags().Changed("policy") {
				rc.Policy = policy
			}
			if cmd.Flags().Changed("max-workers") {
				rc.MaxWorkers = maxWorkers
			}
			if cmd.Flags().Changed("memory-limit") {
				rc.MemoryLimit = memoryLimit
			}
			if cmd.Flags().Changed("io-limit") {
				rc.IOLimit = ioLimit
			}

			ropts, err := a.retrofitOptions(rc)
			if err != nil {
				return err
			}

			m, err := a.load(cmd, args[0], 0)
			if err != nil {
				return err
			}
			g, err := a.loadGraph(cmd, args[1], gf)
			if err != nil {
				return err
			}

			opts := []vecspace.Option{
				vecspace.WithLogger(a.logger),
				vecspace.WithRetrofitOptions(ropts...),
			}
			if checkpoint != "" {
				store, prefix, err := openStore(cmd.Context(), a.cfg.Storage, checkpoint)
				if err != nil {
					return err
				}
				comp, _ := compress.ParseType(rc.Compression)
				opts = append(opts, vecspace.WithCheckpoint(store, prefix, retrofit.WithCheckpointCompression(comp)))
			}

			res, err := vecspace.Retrofit(cmd.Context(), m, g, opts...)
			if err != nil {
				return err
			}
			if res.Report.Checkpoint != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "checkpoint %s: %d shards, %d rows\n",
					res.Report.RunID, res.Report.Checkpoint.NumShards, res.Report.Checkpoint.Rows)
			}
			if len(args) == 3 {
				return a.save(cmd, res.Matrix, args[2])
			}
			return nil
		},
	}
	gf.register(cmd)
	d := config.Default().Retrofit
	cmd.Flags().IntVarP(&iterations, "iterations", "i", d.Iterations, "number of rounds")
	cmd.Flags().IntVarP(&nshards, "nshards", "s", d.NumShards, "number of row shards")
	cmd.Flags().StringVar(&policy, "policy", d.Policy, "row partitioning: hash or balanced")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "concurrent shard workers (0: one per shard)")
	cmd.Flags().StringVar(&memoryLimit, "memory-limit", "", "shard working memory budget, e.g. 4GiB")
	cmd.Flags().StringVar(&ioLimit, "io-limit", "", "checkpoint upload rate per second, e.g. 50MiB")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint location: dir, s3://bucket/prefix or minio://bucket/prefix")
	return cmd
}

func (a *app) retrofitOptions(rc config.RetrofitConfig) ([]func(*retrofit.Options), error) {
	pol, err := shard.ParsePolicy(rc.Policy)
	if err != nil {
		return nil, &vecspace.ConfigurationError{Param: "policy", Reason: err.Error()}
	}
	mem, err := config.ParseBytes(rc.MemoryLimit)
	if err != nil {
		return nil, &vecspace.ConfigurationError{Param: "memory-limit", Reason: err.Error()}
	}
	ioLim, err := config.ParseBytes(rc.IOLimit)
	if err != nil {
		return nil, &vecspace.ConfigurationError{Param: "io-limit", Reason: err.Error()}
	}
	return []func(*retrofit.Options){
		retrofit.WithIterations(rc.Iterations),
		retrofit.WithNumShards(rc.NumShards),
		retrofit.WithPolicy(pol),
		retrofit.WithMaxWorkers(rc.MaxWorkers),
		retrofit.WithMemoryLimit(mem),
		retrofit.WithIOLimit(ioLim),
		retrofit.WithVerbosity(a.verbose),
	}, nil
}

func (a *app) joinRetrofitCmd() *cobra.Command {
	var nshards int
	cmd := &cobra.Command{
		Use:   "join-retrofit <checkpoint> <output>",
		Short: "Assemble a committed retrofit checkpoint into one matrix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, prefix, err := openStore(cmd.Context(), a.cfg.Storage, args[0])
			if err != nil {
				return err
			}
			m, err := vecspace.JoinRetrofit(cmd.Context(), store, prefix, nshards, vecspace.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return a.save(cmd, m, args[1])
		},
	}
	cmd.Flags().IntVarP(&nshards, "nshards", "s", config.Default().Retrofit.NumShards, "expected shard count (0: any)")
	return cmd
}

func (a *app) pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-checkpoints <checkpoint>",
		Short: "Delete checkpoint runs other than the committed one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, prefix, err := openStore(cmd.Context(), a.cfg.Storage, args[0])
			if err != nil {
				return err
			}
			cp := retrofit.NewCheckpointer(store, prefix, retrofit.WithCheckpointLogger(a.logger.Logger))
			n, err := cp.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d runs\n", n)
			return nil
		},
	}
}
