package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inevitablewiki/internal/app"
	"inevitablewiki/internal/content"
)

var (
	cfgFile string
	cfg     app.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "inevitable",
	Short: "Content engine for the inevitable wiki",
	Long: `inevitable loads markdown articles with YAML frontmatter, validates them and
derives navigation trees, related content, tags, a search index and a graph
of the corpus. It serves the result as a JSON API or as MCP tools.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = app.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = app.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "inevitable.yaml", "config file")
	rootCmd.AddCommand(serveCmd, indexCmd, checkCmd, importCmd, mcpCmd)
}

// openRepository opens the configured store. Callers close the returned
// closer when done.
func openRepository(cmd *cobra.Command) (*content.Repository, io.Closer, error) {
	repo, closer, err := app.NewRepository(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	return repo, closer, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
