package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecspace"
	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/label"
	"github.com/hupe1980/vecspace/lookup"
)

func (a *app) convertCmd() *cobra.Command {
	var nrows int
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert between vector formats, keeping the first --nrows rows",
		Long: `Convert reads GloVe or word2vec text, word2vec binary, SQLite or vsb files
and writes any of them. Formats are chosen by extension unless --in-format
or --out-format is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd, args[0], nrows)
			if err != nil {
				return err
			}
			return a.save(cmd, m, args[1])
		},
	}
	cmd.Flags().IntVarP(&nrows, "nrows", "n", 500000, "maximum number of rows to keep (0: all)")
	return cmd
}

func (a *app) shrinkCmd() *cobra.Command {
	var n, k int
	cmd := &cobra.Command{
		Use:   "shrink <input> <output>",
		Short: "Truncate a space to n rows and k columns and sort it by label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd, args[0], 0)
			if err != nil {
				return err
			}
			shrunk, err := m.Truncate(n, k)
			if err != nil {
				return &vecspace.ConfigurationError{Param: "n/k", Reason: err.Error()}
			}
			return a.save(cmd, shrunk.SortByLabel(), args[1])
		},
	}
	cmd.Flags().IntVarP(&n, "rows", "n", 1000000, "number of rows to keep")
	cmd.Flags().IntVarP(&k, "columns", "k", 300, "number of columns to keep")
	return cmd
}

func (a *app) filterCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "filter-word-vectors <vectors> <vocabulary>",
		Short: "Print the vector of every word in a vocabulary file",
		Long: `For each line of the vocabulary file, filter-word-vectors looks up the word
as a concept of --language and prints "word v1 ... vk" with six decimals.
Words that resolve to nothing get a zero vector.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("language") {
				lang = a.cfg.Lookup.Language
			}
			m, err := a.load(cmd, args[0], 0)
			if err != nil {
				return err
			}
			l, err := vecspace.NewLookup(m,
				vecspace.WithLogger(a.logger),
				vecspace.WithLookupOptions(lookup.WithLanguage(lang), lookup.WithCacheSize(a.cfg.Lookup.CacheSize)),
			)
			if err != nil {
				return err
			}

			rc, err := graph.OpenFile(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			out := bufio.NewWriter(cmd.OutOrStdout())
			sc := bufio.NewScanner(rc)
			missing, words := 0, 0
			var line []byte
			for sc.Scan() {
				word := strings.TrimSpace(sc.Text())
				if word == "" {
					continue
				}
				words++
				vec, err := l.Vector(label.Join("c", lang, word))
				if err != nil {
					missing++
					vec = make([]float32, m.Dim())
				}
				line = append(line[:0], word...)
				for _, v := range vec {
					line = append(line, ' ')
					line = strconv.AppendFloat(line, float64(v), 'f', 6, 32)
				}
				line = append(line, '\n')
				if _, err := out.Write(line); err != nil {
					return err
				}
			}
			if err := sc.Err(); err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}
			a.logger.Info("filtered word vectors", "words", words, "missing", missing)
			return out.Flush()
		},
	}
	cmd.Flags().StringVar(&lang, "language", "en", "language of the vocabulary words")
	return cmd
}
