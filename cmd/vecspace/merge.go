package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecspace"
	"github.com/hupe1980/vecspace/internal/config"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/space"
)

type mergeFlags struct {
	threshold int
	blend     string
	weights   []float64
}

func (mf *mergeFlags) register(cmd *cobra.Command) {
	d := config.Default().Merge
	cmd.Flags().IntVarP(&mf.threshold, "threshold", "t", d.VocabThreshold, "minimum number of target terms each input must cover")
	cmd.Flags().StringVar(&mf.blend, "blend", d.Blend, "blend rule for labels in both inputs: average or weighted")
	cmd.Flags().Float64SliceVar(&mf.weights, "weights", nil, "input weights for --blend weighted, e.g. 2,1")
}

func (a *app) mergeOptions(cmd *cobra.Command, mf *mergeFlags) ([]func(*merge.Options), error) {
	mc := a.cfg.Merge
	if mf != nil {
		if cmd.Flags().Changed("threshold") {
			mc.VocabThreshold = mf.threshold
		}
		if cmd.Flags().Changed("blend") {
			mc.Blend = mf.blend
		}
		if cmd.Flags().Changed("weights") {
			mc.Weights = mf.weights
		}
	}

	blend, err := merge.ParseBlend(mc.Blend)
	if err != nil {
		return nil, &vecspace.ConfigurationError{Param: "blend", Reason: err.Error()}
	}
	opts := []func(*merge.Options){
		merge.WithVocabThreshold(mc.VocabThreshold),
		merge.WithBlend(blend),
		merge.WithRidge(mc.Ridge),
		merge.WithVerbosity(a.verbose),
	}
	if len(mc.Weights) > 0 {
		if blend == merge.BlendAverage && mf != nil && cmd.Flags().Changed("blend") {
			return nil, &vecspace.ConfigurationError{Param: "weights", Reason: "weights require --blend weighted"}
		}
		if len(mc.Weights) != 2 {
			return nil, &vecspace.ConfigurationError{Param: "weights", Reason: fmt.Sprintf("need two values, got %d", len(mc.Weights))}
		}
		opts = append(opts, merge.WithWeights(mc.Weights[0], mc.Weights[1]))
	}
	if mc.Normalize != nil {
		opts = append(opts, merge.WithNormalize(*mc.Normalize))
	}
	return opts, nil
}

func (a *app) interpolateCmd() *cobra.Command {
	var (
		mf mergeFlags
		gf graphFlags
	)
	cmd := &cobra.Command{
		Use:   "interpolate <input1> <input2> <graph> <output>",
		Short: "Merge two spaces over the vocabulary of a relation graph",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.mergeOptions(cmd, &mf)
			if err != nil {
				return err
			}
			a1, err := a.load(cmd, args[0], 0)
			if err != nil {
				return err
			}
			a2, err := a.load(cmd, args[1], 0)
			if err != nil {
				return err
			}
			g, err := a.loadGraph(cmd, args[2], gf)
			if err != nil {
				return err
			}
			res, err := vecspace.Interpolate(cmd.Context(), a1, a2, g.LabelSet(),
				vecspace.WithLogger(a.logger), vecspace.WithMergeOptions(opts...))
			if err != nil {
				return err
			}
			a.reportInterpolate(cmd, res)
			return a.save(cmd, res.Matrix, args[3])
		},
	}
	mf.register(cmd)
	gf.register(cmd)
	return cmd
}

func (a *app) interpolateAllCmd() *cobra.Command {
	var mf mergeFlags
	cmd := &cobra.Command{
		Use:   "interpolate-all <input1> <input2> <output>",
		Short: "Merge two spaces over the union of their vocabularies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.mergeOptions(cmd, &mf)
			if err != nil {
				return err
			}
			a1, err := a.load(cmd, args[0], 0)
			if err != nil {
				return err
			}
			a2, err := a.load(cmd, args[1], 0)
			if err != nil {
				return err
			}
			res, err := vecspace.InterpolateAll(cmd.Context(), a1, a2,
				vecspace.WithLogger(a.logger), vecspace.WithMergeOptions(opts...))
			if err != nil {
				return err
			}
			a.reportInterpolate(cmd, res)
			return a.save(cmd, res.Matrix, args[2])
		},
	}
	mf.register(cmd)
	return cmd
}

func (a *app) reportInterpolate(cmd *cobra.Command, res *merge.InterpolateResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "rows %d: blended %d, from input1 %d, from input2 %d, missing %d\n",
		res.Matrix.Len(), res.Blended, res.Carried[0], res.Carried[1], res.Missing)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(cmd.OutOrStdout(), "excluded input%d: %v\n", d.Input+1, d.Err)
	}
}

func (a *app) intersectCmd() *cobra.Command {
	var (
		dim       int
		projector string
	)
	cmd := &cobra.Command{
		Use:   "intersect <input>... <output>",
		Short: "Project the shared vocabulary of several spaces into one space",
		Long: `Intersect keeps the labels present in every input, concatenates their
vectors and projects them onto the top --dim principal directions. With
--projector the per-input projectors are saved as well, one row per input
dimension labeled <input-name>:<i>.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("dim") {
				dim = a.cfg.Merge.Dim
			}
			opts, err := a.mergeOptions(cmd, nil)
			if err != nil {
				return err
			}
			inputs, output := args[:len(args)-1], args[len(args)-1]

			mats := make([]*space.Matrix, len(inputs))
			for i, p := range inputs {
				if mats[i], err = a.load(cmd, p, 0); err != nil {
					return err
				}
			}
			res, err := vecspace.Intersect(cmd.Context(), mats, dim,
				vecspace.WithLogger(a.logger), vecspace.WithMergeOptions(opts...))
			if err != nil {
				return err
			}
			if err := a.save(cmd, res.Matrix, output); err != nil {
				return err
			}
			if projector == "" {
				return nil
			}
			names := make([]string, len(inputs))
			for i, p := range inputs {
				names[i] = inputName(p)
			}
			pm, err := merge.ExportProjectors(names, res.Projectors)
			if err != nil {
				return err
			}
			return a.save(cmd, pm, projector)
		},
	}
	cmd.Flags().IntVar(&dim, "dim", config.Default().Merge.Dim, "width of the common space")
	cmd.Flags().StringVar(&projector, "projector", "", "also save the per-input projectors to this path")
	return cmd
}

// inputName strips directories and extensions: "data/glove.840B.txt.gz"
// becomes "glove".
func inputName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
