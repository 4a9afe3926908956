// Package fsstore serves article documents from a directory tree laid out as
// <category>/<slug>.mdx (or .md).
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"inevitablewiki/internal/content"
)

// Extensions are tried in order when reading a slug.
var Extensions = []string{".mdx", ".md"}

// Store reads documents from an fs.FS.
type Store struct {
	fsys fs.FS
}

// New wraps fsys. Top-level directories are categories.
func New(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Open is New over os.DirFS(dir).
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open content dir: %s is not a directory", dir)
	}
	return New(os.DirFS(dir)), nil
}

// Categories lists top-level directories alphabetically, skipping hidden ones.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		categories = append(categories, entry.Name())
	}
	return categories, nil
}

// Slugs lists document stems in category. Stems that are not canonical slugs
// are listed too so the repository can report them.
func (s *Store) Slugs(ctx context.Context, category string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validElement(category) {
		return []string{}, nil
	}
	entries, err := fs.ReadDir(s.fsys, category)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	slugs := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		stem, ok := trimExtension(entry.Name())
		if !ok {
			continue
		}
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		slugs = append(slugs, stem)
	}
	return slugs, nil
}

// Get reads the raw document for (category, slug).
func (s *Store) Get(ctx context.Context, category, slug string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validElement(category) {
		return nil, content.NotFound(category, slug)
	}
	if !validElement(slug) {
		return nil, content.NotFound(category, slug)
	}

	for _, ext := range Extensions {
		raw, err := fs.ReadFile(s.fsys, path.Join(category, slug+ext))
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s/%s: %w", category, slug, err)
		}
	}
	return nil, content.NotFound(category, slug)
}

func trimExtension(name string) (string, bool) {
	for _, ext := range Extensions {
		if stem, ok := strings.CutSuffix(name, ext); ok && stem != "" {
			return stem, true
		}
	}
	return "", false
}

// validElement reports whether name is a single visible path element.
func validElement(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && fs.ValidPath(name) && !hidden(name)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
