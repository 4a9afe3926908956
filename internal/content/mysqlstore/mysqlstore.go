// Package mysqlstore keeps article documents in a MySQL table so several
// instances can share one corpus.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysql "github.com/go-sql-driver/mysql"

	"inevitablewiki/internal/content"
)

// ErrDuplicate signals that a (category, slug) row already exists.
var ErrDuplicate = errors.New("duplicate article")

const (
	errDupEntry    = 1062
	errDataTooLong = 1406
)

const schema = `CREATE TABLE IF NOT EXISTS articles (
	category VARCHAR(64) NOT NULL,
	slug VARCHAR(191) NOT NULL,
	source MEDIUMTEXT NOT NULL,
	position INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	PRIMARY KEY (category, slug)
) DEFAULT CHARSET=utf8mb4`

// Record is one stored document.
type Record struct {
	Category string
	Slug     string
	Source   []byte
	Position int
}

// Store implements content.Store on top of *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the articles table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	return nil
}

// Categories returns the distinct categories alphabetically.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT category FROM articles ORDER BY category`
	return s.strings(ctx, query)
}

// Slugs returns the slugs of category by position, then slug.
func (s *Store) Slugs(ctx context.Context, category string) ([]string, error) {
	const query = `SELECT slug FROM articles WHERE category = ? ORDER BY position, slug`
	return s.strings(ctx, query, category)
}

// Get returns the stored source of (category, slug).
func (s *Store) Get(ctx context.Context, category, slug string) ([]byte, error) {
	const query = `SELECT source FROM articles WHERE category = ? AND slug = ?`
	row := s.db.QueryRowContext(ctx, query, category, slug)
	var source []byte
	if err := row.Scan(&source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, content.NotFound(category, slug)
		}
		return nil, err
	}
	return source, nil
}

// Put stores rec. Without overwrite an existing row yields ErrDuplicate.
func (s *Store) Put(ctx context.Context, rec Record, overwrite bool) error {
	const insert = `INSERT INTO articles (category, slug, source, position) VALUES (?, ?, ?, ?)`
	const upsert = insert + ` ON DUPLICATE KEY UPDATE source = VALUES(source), position = VALUES(position)`

	stmt := insert
	if overwrite {
		stmt = upsert
	}
	if _, err := s.db.ExecContext(ctx, stmt, rec.Category, rec.Slug, rec.Source, rec.Position); err != nil {
		return classify(err, rec)
	}
	return nil
}

// Delete removes (category, slug). Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, category, slug string) error {
	const stmt = `DELETE FROM articles WHERE category = ? AND slug = ?`
	_, err := s.db.ExecContext(ctx, stmt, category, slug)
	return err
}

func (s *Store) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func classify(err error, rec Record) error {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return err
	}
	switch mysqlErr.Number {
	case errDupEntry:
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, rec.Category, rec.Slug)
	case errDataTooLong:
		return fmt.Errorf("store %s/%s: document too large: %w", rec.Category, rec.Slug, err)
	}
	return err
}
