package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inevitablewiki/internal/content"
)

func TestClassify(t *testing.T) {
	rec := Record{Category: "concepts", Slug: "hashing"}

	err := classify(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, rec)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "concepts/hashing")

	err = classify(fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1406}), rec)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "too large")

	plain := errors.New("connection reset")
	assert.Same(t, plain, classify(plain, rec))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	return db
}

func TestStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := New(db)
	require.NoError(t, store.EnsureSchema(ctx))

	category := "zz-test"
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM articles WHERE category = ?`, category)
	})

	doc := []byte("---\ntitle: Stored\nupdated: 2024-01-01\n---\nbody\n")
	require.NoError(t, store.Put(ctx, Record{Category: category, Slug: "b", Source: doc, Position: 2}, false))
	require.NoError(t, store.Put(ctx, Record{Category: category, Slug: "a", Source: doc, Position: 1}, false))

	err := store.Put(ctx, Record{Category: category, Slug: "a", Source: doc}, false)
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, store.Put(ctx, Record{Category: category, Slug: "a", Source: doc, Position: 3}, true))

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Contains(t, categories, category)

	slugs, err := store.Slugs(ctx, category)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, slugs)

	raw, err := store.Get(ctx, category, "a")
	require.NoError(t, err)
	assert.Equal(t, doc, raw)

	_, err = store.Get(ctx, category, "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)

	require.NoError(t, store.Delete(ctx, category, "b"))
	slugs, err = store.Slugs(ctx, category)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slugs)
}
