package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecspace"
	"github.com/hupe1980/vecspace/format"
	"github.com/hupe1980/vecspace/internal/compress"
	"github.com/hupe1980/vecspace/internal/config"
	"github.com/hupe1980/vecspace/space"
)

// app is the state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    int
	inFormat   string
	outFormat  string

	cfg    *config.Config
	logger *vecspace.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "vecspace",
		Short: "Retrofit, merge and convert labeled word-vector spaces",
		Long: `vecspace maintains distributional word-vector spaces indexed by term label.

It propagates a weighted relation graph such as ConceptNet into a space
(retrofit, join-retrofit), merges spaces with different vocabularies and
widths (interpolate, interpolate-all, intersect) and converts between
file formats (convert, shrink, filter-word-vectors).`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/vecspace/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.CountVarP(&a.verbose, "verbose", "v", "progress output, repeat for per-shard lines")
	pf.StringVar(&a.inFormat, "in-format", "", "input format ("+strings.Join(format.Names(), ", ")+"), default by extension")
	pf.StringVar(&a.outFormat, "out-format", "", "output format, default by extension")

	root.AddCommand(
		a.retrofitCmd(),
		a.joinRetrofitCmd(),
		a.pruneCmd(),
		a.interpolateCmd(),
		a.interpolateAllCmd(),
		a.intersectCmd(),
		a.convertCmd(),
		a.shrinkCmd(),
		a.filterCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.verbose > 0 && level != "debug" {
		level = "info"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	logFormat := cfg.Log.Format
	if a.logFormat != "" {
		logFormat = a.logFormat
	}
	a.logger, err = newLogger(cmd.ErrOrStderr(), logFormat, lvl)
	if err != nil {
		return err
	}
	if a.verbose == 0 {
		a.verbose = cfg.Log.Verbosity
	}
	return nil
}

func newLogger(w io.Writer, logFormat string, level slog.Level) (*vecspace.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch logFormat {
	case "", "text":
		return vecspace.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return vecspace.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", logFormat)
	}
}

func (a *app) formatOptions(maxRows int) []func(*format.Options) {
	comp, _ := compress.ParseType(a.cfg.Retrofit.Compression)
	return []func(*format.Options){
		format.WithLogger(a.logger.Logger),
		format.WithMaxRows(maxRows),
		format.WithCompression(comp),
	}
}

func (a *app) load(cmd *cobra.Command, path string, maxRows int) (*space.Matrix, error) {
	f, err := format.Resolve(a.inFormat, path, a.formatOptions(maxRows)...)
	if err != nil {
		return nil, err
	}
	m, err := f.Load(cmd.Context(), path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	a.logger.Info("loaded matrix", "path", path, "format", f.Name(), "rows", m.Len(), "dimension", m.Dim())
	return m, nil
}

func (a *app) save(cmd *cobra.Command, m *space.Matrix, path string) error {
	f, err := format.Resolve(a.outFormat, path, a.formatOptions(0)...)
	if err != nil {
		return err
	}
	if err := f.Save(cmd.Context(), m, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	a.logger.Info("saved matrix", "path", path, "format", f.Name(), "rows", m.Len(), "dimension", m.Dim())
	return nil
}
