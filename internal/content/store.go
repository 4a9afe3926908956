package content

import "context"

// Store is a category-partitioned key-value source of raw article documents.
//
// Categories and Slugs return identifiers in the store's natural order.
// Get must return an error matching ErrNotFound when the record is absent.
type Store interface {
	Categories(ctx context.Context) ([]string, error)
	Slugs(ctx context.Context, category string) ([]string, error)
	Get(ctx context.Context, category, slug string) ([]byte, error)
}

// NotFound returns an error matching ErrNotFound for the given key. Store
// implementations use it so callers can rely on errors.Is.
func NotFound(category, slug string) error {
	return notFound(category, slug)
}
