package app

import (
	"context"
	"io"

	"go.uber.org/zap"

	"inevitablewiki/internal/content"
	"inevitablewiki/internal/content/fsstore"
	"inevitablewiki/internal/content/mysqlstore"
)

// OpenStore returns the configured backing store. The closer releases the
// database pool for the MySQL backend and is a no-op otherwise.
func OpenStore(ctx context.Context, cfg Config) (content.Store, io.Closer, error) {
	switch cfg.Store {
	case StoreMySQL:
		db, err := NewDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := mysqlstore.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	default:
		store, err := fsstore.Open(cfg.ContentDir)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	}
}

// NewRepository opens the store and wraps it in a repository validating
// against cfg.Categories.
func NewRepository(ctx context.Context, cfg Config, logger *zap.Logger) (*content.Repository, io.Closer, error) {
	store, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	repo := content.NewRepository(store,
		content.WithLogger(logger),
		content.WithSchema(content.NewSchema(cfg.Categories...)),
	)
	return repo, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
