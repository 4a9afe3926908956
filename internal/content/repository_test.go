package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	order   []string
	docs    map[string]map[string]string
	slugs   map[string][]string
	listErr error
	gets    atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]map[string]string{}, slugs: map[string][]string{}}
}

func (m *memStore) put(category, slug, doc string) {
	if _, ok := m.docs[category]; !ok {
		m.docs[category] = map[string]string{}
		m.order = append(m.order, category)
	}
	m.docs[category][slug] = doc
	m.slugs[category] = append(m.slugs[category], slug)
}

func (m *memStore) Categories(context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]string(nil), m.order...)
	sort.Strings(out)
	return out, nil
}

func (m *memStore) Slugs(_ context.Context, category string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.slugs[category]...), nil
}

func (m *memStore) Get(_ context.Context, category, slug string) ([]byte, error) {
	m.gets.Add(1)
	doc, ok := m.docs[category][slug]
	if !ok {
		return nil, NotFound(category, slug)
	}
	return []byte(doc), nil
}

func doc(title, extra string) string {
	return fmt.Sprintf("---\ntitle: %s\nupdated: 2024-01-01\n%s---\nSome body text.\n", title, extra)
}

func TestRepositorySkipsInvalidRecord(t *testing.T) {
	store := newMemStore()
	for i := 1; i <= 5; i++ {
		store.put("concepts", fmt.Sprintf("a%d", i), doc(fmt.Sprintf("Article %d", i), ""))
	}
	store.put("concepts", "untitled", "---\nupdated: 2024-01-01\n---\nbody\n")

	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRepository(store, WithLogger(zap.New(core)))
	ctx := context.Background()

	articles, err := repo.LoadAll(ctx, "concepts")
	require.NoError(t, err)
	assert.Len(t, articles, 5)
	for _, a := range articles {
		assert.NotEqual(t, "untitled", a.Slug)
	}

	entries := logs.FilterMessage("skipping article").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "concepts/untitled", entries[0].ContextMap()["source"])
	assert.Equal(t, uint64(1), repo.Stats().Skipped)

	_, err = repo.Load(ctx, "concepts", "untitled")
	require.ErrorIs(t, err, ErrInvalidFrontmatter)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("title"))
}

func TestRepositoryEverySlugLoadsOrIsInvalid(t *testing.T) {
	store := newMemStore()
	store.put("background", "history", doc("History", ""))
	store.put("background", "history", doc("History", ""))
	store.put("background", "broken", "---\ntitle: Broken\n---\n")
	repo := NewRepository(store)
	ctx := context.Background()

	slugs, err := repo.Slugs(ctx, "background")
	require.NoError(t, err)
	assert.Equal(t, []string{"history", "broken"}, slugs)

	all, err := repo.LoadAll(ctx, "background")
	require.NoError(t, err)
	loaded := map[string]bool{}
	for _, a := range all {
		loaded[a.Slug] = true
	}
	for _, slug := range slugs {
		_, err := repo.Load(ctx, "background", slug)
		if loaded[slug] {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrInvalidFrontmatter)
		}
	}
}

func TestRepositoryLoadNotFound(t *testing.T) {
	repo := NewRepository(newMemStore())
	_, err := repo.Load(context.Background(), "concepts", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryEmptyCategory(t *testing.T) {
	repo := NewRepository(newMemStore())
	slugs, err := repo.Slugs(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, slugs)

	articles, err := repo.LoadAll(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestRepositoryCategoryPartitionMismatch(t *testing.T) {
	store := newMemStore()
	store.put("concepts", "moved", doc("Moved", "category: ethereum\n"))
	store.put("concepts", "stays", doc("Stays", "category: concepts\n"))
	repo := NewRepository(store)

	_, err := repo.Load(context.Background(), "concepts", "moved")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "partition", verr.Violations[0].Rule)

	a, err := repo.Load(context.Background(), "concepts", "stays")
	require.NoError(t, err)
	assert.Equal(t, "concepts/stays", a.Key())
	assert.Equal(t, "/concepts/stays", a.Path())
}

func TestRepositoryUnknownPartition(t *testing.T) {
	store := newMemStore()
	store.put("concepts", "hashing", doc("Hashing", ""))
	store.put("misc", "foo", doc("Foo", ""))
	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRepository(store, WithLogger(zap.New(core)))
	ctx := context.Background()

	categories, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"concepts"}, categories)
	ignored := logs.FilterMessage("ignoring unknown category").All()
	require.Len(t, ignored, 1)
	assert.Equal(t, "misc", ignored[0].ContextMap()["category"])

	all, err := repo.LoadAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "concepts/hashing", all[0].Key())

	_, err = repo.Load(ctx, "misc", "foo")
	require.ErrorIs(t, err, ErrInvalidFrontmatter)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("category"))

	failures, err := repo.Audit(ctx, false)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "misc/foo", failures[0].SourceID)
}

func TestRepositoryCachesPerKey(t *testing.T) {
	store := newMemStore()
	store.put("background", "one", doc("One", ""))
	store.put("concepts", "two", doc("Two", ""))
	repo := NewRepository(store)
	ctx := context.Background()

	all, err := repo.LoadAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "background", all[0].Category)
	reads := store.gets.Load()

	again, err := repo.LoadAll(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, all, again)
	concepts, err := repo.LoadAll(ctx, "concepts")
	require.NoError(t, err)
	assert.Len(t, concepts, 1)
	assert.Equal(t, reads, store.gets.Load(), "cached listings must not re-read the store")

	generation := repo.Generation()
	repo.Clear()
	assert.Equal(t, generation+1, repo.Generation())
	_, err = repo.LoadAll(ctx, "concepts")
	require.NoError(t, err)
	assert.Greater(t, store.gets.Load(), reads)
	assert.NotZero(t, repo.Stats().Hits)
}

func TestRepositoryListingFailureNotCached(t *testing.T) {
	store := newMemStore()
	store.put("concepts", "one", doc("One", ""))
	store.listErr = errors.New("disk on fire")
	repo := NewRepository(store)
	ctx := context.Background()

	_, err := repo.LoadAll(ctx, "")
	require.Error(t, err)

	store.listErr = nil
	articles, err := repo.LoadAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestRepositoryConcurrentLoadAll(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 20; i++ {
		store.put("concepts", fmt.Sprintf("s%02d", i), doc(fmt.Sprintf("S%d", i), ""))
	}
	repo := NewRepository(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			articles, err := repo.LoadAll(context.Background(), "concepts")
			assert.NoError(t, err)
			assert.Len(t, articles, 20)
		}()
	}
	wg.Wait()
}

func TestRepositoryAudit(t *testing.T) {
	store := newMemStore()
	store.put("background", "ok", doc("Ok", "category: background\n"))
	store.put("background", "draft", "---\ntitle: Draft\ncategory: background\n---\n")
	store.put("concepts", "nameless", "---\ncategory: concepts\n---\n")
	repo := NewRepository(store)
	ctx := context.Background()

	failures, err := repo.Audit(ctx, false)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "background/draft", failures[0].SourceID)
	assert.Equal(t, "concepts/nameless", failures[1].SourceID)

	failures, err = repo.Audit(ctx, true)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "concepts/nameless", failures[0].SourceID)
}

func TestArticleReadingTime(t *testing.T) {
	store := newMemStore()
	store.put("concepts", "explicit", doc("Explicit", "readingTime: 12\n"))
	store.put("concepts", "computed", doc("Computed", "tags: [a, b]\n"))
	repo := NewRepository(store)

	explicit, err := repo.Load(context.Background(), "concepts", "explicit")
	require.NoError(t, err)
	assert.Equal(t, 12.0, explicit.ReadingTime)

	computed, err := repo.Load(context.Background(), "concepts", "computed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, computed.ReadingTime)
	assert.True(t, computed.HasTag("b"))
	assert.False(t, computed.HasTag("c"))
}
