// Package breadcrumb turns a (category, slug) pair into a navigable path.
package breadcrumb

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"inevitablewiki/internal/content"
)

// Crumb is one step of the path.
type Crumb struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Loader loads single articles.
type Loader interface {
	Load(ctx context.Context, category, slug string) (*content.Article, error)
}

// Resolver builds breadcrumbs. It never fails: articles that cannot be
// loaded are labelled with their raw slug.
type Resolver struct {
	loader Loader
	logger *zap.Logger
}

// New returns a Resolver. A nil logger discards output.
func New(loader Loader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{loader: loader, logger: logger}
}

// Resolve returns Home, the category and, when slug is set, the article.
func (r *Resolver) Resolve(ctx context.Context, category, slug string) []Crumb {
	crumbs := []Crumb{
		{Label: "Home", Path: "/"},
		{Label: content.CategoryLabel(category), Path: "/" + category},
	}
	if slug == "" {
		return crumbs
	}

	label := slug
	article, err := r.loader.Load(ctx, category, slug)
	switch {
	case err == nil:
		label = article.Title()
	case errors.Is(err, content.ErrNotFound):
	default:
		r.logger.Debug("breadcrumb falls back to slug",
			zap.String("source", category+"/"+slug),
			zap.Error(err))
	}
	return append(crumbs, Crumb{Label: label, Path: "/" + category + "/" + slug})
}
