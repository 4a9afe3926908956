package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inevitablewiki/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `serve exposes categories, articles, tags, search and the corpus graph over
HTTP. Send SIGHUP to drop the content cache after editing articles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closer, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		srv := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      app.NewServer(repo, cfg, logger),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		shutdownCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-hup:
					repo.Clear()
					logger.Info("content cache cleared", zap.Uint64("generation", repo.Generation()))
				case <-shutdownCtx.Done():
					return
				}
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("inevitable listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-shutdownCtx.Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
		return nil
	},
}
