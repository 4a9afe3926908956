// Package search builds the client-side search index and answers simple
// server-side queries over the corpus.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"inevitablewiki/internal/content"
)

// MaxHeadings bounds the headings kept per entry.
const MaxHeadings = 10

// Source lists the corpus.
type Source interface {
	LoadAll(ctx context.Context, category string) ([]*content.Article, error)
}

// Entry is one article projected for fuzzy matching. It carries no body
// text.
type Entry struct {
	Category    string             `json:"category"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Tags        []string           `json:"tags"`
	Difficulty  content.Difficulty `json:"difficulty,omitempty"`
	ReadingTime *float64           `json:"readingTime,omitempty"`
	Updated     string             `json:"updated"`
	Headings    []string           `json:"headings"`
}

// Build returns one entry per article of LoadAll(""), in the same order.
func Build(ctx context.Context, src Source) ([]Entry, error) {
	articles, err := src.LoadAll(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	entries := make([]Entry, 0, len(articles))
	for _, a := range articles {
		entries = append(entries, NewEntry(a))
	}
	return entries, nil
}

// NewEntry projects a single article.
func NewEntry(a *content.Article) Entry {
	tags := a.Frontmatter.Tags
	if tags == nil {
		tags = []string{}
	}
	return Entry{
		Category:    a.Category,
		Slug:        a.Slug,
		Title:       a.Title(),
		Description: a.Frontmatter.Summary(),
		Tags:        slices.Clone(tags),
		Difficulty:  a.Frontmatter.Difficulty,
		ReadingTime: a.Frontmatter.ReadingTime,
		Updated:     a.Frontmatter.Updated,
		Headings:    content.HeadingTexts(a.Body, MaxHeadings),
	}
}

// WriteJSON writes entries as one compact JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Filters narrow a Filter query. Zero values match everything; Tags match
// when any of them is present.
type Filters struct {
	Category   string
	Difficulty content.Difficulty
	Tags       []string
}

// Filter returns the articles whose title, description or tags contain
// query case-insensitively, after applying filters. An empty query keeps
// every filtered article.
func Filter(ctx context.Context, src Source, query string, filters Filters) ([]*content.Article, error) {
	articles, err := src.LoadAll(ctx, filters.Category)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	out := make([]*content.Article, 0)
	for _, a := range articles {
		if filters.Difficulty != "" && a.Frontmatter.Difficulty != filters.Difficulty {
			continue
		}
		if len(filters.Tags) > 0 && !slices.ContainsFunc(filters.Tags, a.HasTag) {
			continue
		}
		if needle != "" && !matches(a, needle) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func matches(a *content.Article, needle string) bool {
	if strings.Contains(strings.ToLower(a.Title()), needle) ||
		strings.Contains(strings.ToLower(a.Frontmatter.Summary()), needle) {
		return true
	}
	for _, tag := range a.Frontmatter.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
