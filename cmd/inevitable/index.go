package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inevitablewiki/internal/search"
	"inevitablewiki/internal/tools/constellation"
)

var (
	indexOut string
	graphOut string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Write the search index and, optionally, the corpus graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closer, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx := cmd.Context()
		entries, err := search.Build(ctx, repo)
		if err != nil {
			return fmt.Errorf("build search index: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(indexOut), 0o755); err != nil {
			return err
		}
		f, err := os.Create(indexOut)
		if err != nil {
			return err
		}
		if err := search.WriteJSON(f, entries); err != nil {
			f.Close()
			return fmt.Errorf("write search index: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("search index written", zap.String("path", indexOut), zap.Int("entries", len(entries)))

		if graphOut != "" {
			graph, err := constellation.Export(ctx, repo, graphOut)
			if err != nil {
				return fmt.Errorf("export graph: %w", err)
			}
			logger.Info("graph written",
				zap.String("path", graphOut),
				zap.Int("articles", graph.Totals.Articles),
				zap.Int("clusters", graph.Totals.Clusters))
		}

		stats := repo.Stats()
		if stats.Skipped > 0 {
			logger.Warn("articles skipped", zap.Uint64("count", stats.Skipped))
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexOut, "out", "public/search-index.json", "search index output path")
	indexCmd.Flags().StringVar(&graphOut, "graph", "", "optional corpus graph output path")
}
