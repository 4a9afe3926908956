// Package relations derives navigation structure from the loaded corpus:
// category trees, prev/next neighbours, related content, the tag index,
// prerequisites and broken internal links.
package relations

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"inevitablewiki/internal/content"
)

// Corpus is the read side of content.Repository.
type Corpus interface {
	Categories(ctx context.Context) ([]string, error)
	Load(ctx context.Context, category, slug string) (*content.Article, error)
	LoadAll(ctx context.Context, category string) ([]*content.Article, error)
	Generation() uint64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used when per-page helpers degrade.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver computes relationships over a Corpus. Results returned by Trees
// and Tree are shared and must not be modified.
type Resolver struct {
	corpus Corpus
	logger *zap.Logger

	mu       sync.Mutex
	trees    []CategoryTree
	treesGen uint64
	built    bool
	group    singleflight.Group
}

// NewResolver builds a resolver reading through corpus.
func NewResolver(corpus Corpus, opts ...Option) *Resolver {
	r := &Resolver{corpus: corpus, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// corpusIndex is a keyed view of LoadAll("").
type corpusIndex struct {
	categories []string
	articles   []*content.Article
	byKey      map[string]*content.Article
}

func (r *Resolver) index(ctx context.Context) (*corpusIndex, error) {
	categories, err := r.corpus.Categories(ctx)
	if err != nil {
		return nil, err
	}
	articles, err := r.corpus.LoadAll(ctx, "")
	if err != nil {
		return nil, err
	}
	idx := &corpusIndex{
		categories: categories,
		articles:   articles,
		byKey:      make(map[string]*content.Article, len(articles)),
	}
	for _, a := range articles {
		idx.byKey[a.Key()] = a
	}
	return idx, nil
}

func (idx *corpusIndex) get(category, slug string) *content.Article {
	return idx.byKey[category+"/"+slug]
}

// lookup finds slug in preferred, then in every other category in listing
// order. The first match wins.
func (idx *corpusIndex) lookup(preferred, slug string) *content.Article {
	if a := idx.get(preferred, slug); a != nil {
		return a
	}
	for _, category := range idx.categories {
		if category == preferred {
			continue
		}
		if a := idx.get(category, slug); a != nil {
			return a
		}
	}
	return nil
}
