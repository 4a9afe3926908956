package content

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const allCacheKey = "all"

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used to report skipped records.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSchema replaces the default schema.
func WithSchema(schema *Schema) Option {
	return func(r *Repository) {
		if schema != nil {
			r.schema = schema
		}
	}
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Skipped uint64
}

// Repository loads articles from a Store and memoizes bulk listings per
// category filter. It is safe for concurrent use; concurrent first callers
// for the same key share a single load.
type Repository struct {
	store  Store
	schema *Schema
	logger *zap.Logger

	mu         sync.RWMutex
	lists      map[string][]*Article
	generation uint64
	group      singleflight.Group

	hits    atomic.Uint64
	misses  atomic.Uint64
	skipped atomic.Uint64
}

// NewRepository builds a repository reading from store.
func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		schema: NewSchema(),
		logger: zap.NewNop(),
		lists:  make(map[string][]*Article),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema returns the schema records are validated against.
func (r *Repository) Schema() *Schema {
	return r.schema
}

// Categories lists the store partitions that are allowed schema categories,
// in store order. Other partitions are logged and left out.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	categories, err := r.storeCategories(ctx)
	if err != nil {
		return nil, err
	}
	allowed := make([]string, 0, len(categories))
	for _, category := range categories {
		if !r.schema.IsCategory(category) {
			r.logger.Warn("ignoring unknown category", zap.String("category", category))
			continue
		}
		allowed = append(allowed, category)
	}
	return allowed, nil
}

func (r *Repository) storeCategories(ctx context.Context) ([]string, error) {
	categories, err := r.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return dedupe(categories), nil
}

// Slugs lists the slugs of category. Unknown or empty categories yield an
// empty slice.
func (r *Repository) Slugs(ctx context.Context, category string) ([]string, error) {
	slugs, err := r.store.Slugs(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list slugs in %s: %w", category, err)
	}
	return dedupe(slugs), nil
}

// Load reads and validates one record. Absent records fail with an error
// matching ErrNotFound, invalid ones with a *ValidationError.
func (r *Repository) Load(ctx context.Context, category, slug string) (*Article, error) {
	raw, err := r.store.Get(ctx, category, slug)
	if err != nil {
		return nil, err
	}
	return r.decode(category, slug, raw, r.schema.Validate)
}

func (r *Repository) decode(category, slug string, raw []byte, validate func(Meta, string) (Frontmatter, error)) (*Article, error) {
	sourceID := category + "/" + slug
	meta, body, err := ParseDocument(raw)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.SourceID = sourceID
		}
		return nil, err
	}

	fm, err := validate(meta, sourceID)
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		return nil, err
	}

	if verr == nil {
		verr = &ValidationError{SourceID: sourceID}
	}
	if !r.schema.IsCategory(category) {
		verr.add("category", "partition", fmt.Sprintf("stored under %q, which is not an allowed category", category))
	} else if declared, ok := meta["category"].(string); ok && r.schema.IsCategory(declared) && declared != category {
		verr.add("category", "partition", fmt.Sprintf("declares %q but is stored under %q", declared, category))
	}
	if canonical, err := NormalizeSlug(slug); err != nil || canonical != slug {
		verr.add("slug", "slug", fmt.Sprintf("file name %q is not a canonical slug", slug))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return newArticle(category, slug, fm, body), nil
}

// LoadAll returns every valid article of category, or of all categories
// when category is empty. Results are cached per filter until Clear. Invalid
// or unreadable records are logged and skipped; listing failures are
// returned and leave the cache untouched.
func (r *Repository) LoadAll(ctx context.Context, category string) ([]*Article, error) {
	key := allCacheKey
	if category != "" {
		key = "category:" + category
	}

	r.mu.RLock()
	cached, ok := r.lists[key]
	generation := r.generation
	r.mu.RUnlock()
	if ok {
		r.hits.Add(1)
		return slices.Clone(cached), nil
	}
	r.misses.Add(1)

	v, err, _ := r.group.Do(fmt.Sprintf("%d/%s", generation, key), func() (any, error) {
		list, err := r.loadAll(ctx, category)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.generation == generation {
			r.lists[key] = list
		}
		r.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]*Article)), nil
}

func (r *Repository) loadAll(ctx context.Context, category string) ([]*Article, error) {
	if category == "" {
		categories, err := r.Categories(ctx)
		if err != nil {
			return nil, err
		}
		all := make([]*Article, 0)
		for _, cat := range categories {
			articles, err := r.LoadAll(ctx, cat)
			if err != nil {
				return nil, err
			}
			all = append(all, articles...)
		}
		return all, nil
	}

	slugs, err := r.Slugs(ctx, category)
	if err != nil {
		return nil, err
	}
	articles := make([]*Article, 0, len(slugs))
	for _, slug := range slugs {
		article, err := r.Load(ctx, category, slug)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.skipped.Add(1)
			r.logger.Warn("skipping article",
				zap.String("source", category+"/"+slug),
				zap.Error(err))
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// Audit validates every record of every store partition, allowed or not, and
// returns all validation failures. With partial set, records are checked
// with Schema.ValidatePartial.
func (r *Repository) Audit(ctx context.Context, partial bool) ([]*ValidationError, error) {
	validate := r.schema.Validate
	if partial {
		validate = r.schema.ValidatePartial
	}

	categories, err := r.storeCategories(ctx)
	if err != nil {
		return nil, err
	}
	var failures []*ValidationError
	for _, category := range categories {
		slugs, err := r.Slugs(ctx, category)
		if err != nil {
			return nil, err
		}
		for _, slug := range slugs {
			raw, err := r.store.Get(ctx, category, slug)
			if err != nil {
				return nil, fmt.Errorf("read %s/%s: %w", category, slug, err)
			}
			_, err = r.decode(category, slug, raw, validate)
			var verr *ValidationError
			if errors.As(err, &verr) {
				failures = append(failures, verr)
			} else if err != nil {
				return nil, err
			}
		}
	}
	return failures, nil
}

// Clear drops every cached listing and advances the generation so derived
// caches rebuild on next use.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = make(map[string][]*Article)
	r.generation++
}

// Generation increments on every Clear.
func (r *Repository) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Stats returns the cumulative cache counters.
func (r *Repository) Stats() Stats {
	return Stats{
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
		Skipped: r.skipped.Load(),
	}
}
