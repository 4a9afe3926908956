package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"inevitablewiki/internal/app"
	"inevitablewiki/internal/tools/constellation"
)

func main() {
	outPath := flag.String("out", "public/constellation.json", "path to write constellation JSON")
	configPath := flag.String("config", "inevitable.yaml", "config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	repo, closer, err := app.NewRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closer.Close()

	g, err := constellation.Export(ctx, repo, *outPath)
	if err != nil {
		logger.Fatal("export constellation", zap.Error(err))
	}

	logger.Info("wrote constellation",
		zap.String("path", *outPath),
		zap.Int("clusters", len(g.Clusters)),
		zap.Int("articles", g.Totals.Articles),
		zap.Int("links", g.Totals.Links))
}
