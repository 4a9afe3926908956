package relations

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"inevitablewiki/internal/content"
)

// Neighbors are the adjacent articles in a category's listing order.
type Neighbors struct {
	Prev *content.Article `json:"prev"`
	Next *content.Article `json:"next"`
}

// PrevNext locates slug in LoadAll(category) order. Unknown slugs and load
// failures yield empty neighbours.
func (r *Resolver) PrevNext(ctx context.Context, category, slug string) Neighbors {
	articles, err := r.corpus.LoadAll(ctx, category)
	if err != nil {
		r.logger.Warn("prev/next unavailable", zap.String("category", category), zap.Error(err))
		return Neighbors{}
	}
	for i, a := range articles {
		if a.Slug != slug {
			continue
		}
		var n Neighbors
		if i > 0 {
			n.Prev = articles[i-1]
		}
		if i < len(articles)-1 {
			n.Next = articles[i+1]
		}
		return n
	}
	return Neighbors{}
}

// Related returns up to limit articles for (category, slug): first the
// explicit related entries, then same-category articles ranked by shared
// tags. The article itself and duplicates are never included, and the
// result is never padded with unrelated articles.
func (r *Resolver) Related(ctx context.Context, category, slug string, limit int) []*content.Article {
	if limit <= 0 {
		return []*content.Article{}
	}
	current, err := r.corpus.Load(ctx, category, slug)
	if err != nil {
		r.logger.Warn("related unavailable", zap.String("source", category+"/"+slug), zap.Error(err))
		return []*content.Article{}
	}
	idx, err := r.index(ctx)
	if err != nil {
		r.logger.Warn("related unavailable", zap.String("source", current.Key()), zap.Error(err))
		return []*content.Article{}
	}

	out := make([]*content.Article, 0, limit)
	seen := map[string]bool{current.Key(): true}
	add := func(a *content.Article) {
		if a == nil || seen[a.Key()] || len(out) >= limit {
			return
		}
		seen[a.Key()] = true
		out = append(out, a)
	}

	for _, ref := range current.Frontmatter.Related {
		add(idx.resolveRef(category, ref))
	}

	if len(out) < limit && len(current.Frontmatter.Tags) > 0 {
		peers, err := r.corpus.LoadAll(ctx, category)
		if err != nil {
			r.logger.Warn("tag fallback unavailable", zap.String("category", category), zap.Error(err))
			return out
		}
		for _, a := range rankBySharedTags(current, peers) {
			add(a)
		}
	}
	return out
}

// resolveRef resolves a related entry. Qualified entries name their
// category; bare entries prefer the current one and fall back to the rest.
func (idx *corpusIndex) resolveRef(category, ref string) *content.Article {
	ref = strings.TrimSpace(ref)
	if cat, slug, ok := strings.Cut(ref, "/"); ok {
		return idx.get(cat, slug)
	}
	return idx.lookup(category, ref)
}

// rankBySharedTags orders peers sharing at least one tag with current by
// descending overlap, keeping corpus order for ties.
func rankBySharedTags(current *content.Article, peers []*content.Article) []*content.Article {
	tags := make(map[string]struct{}, len(current.Frontmatter.Tags))
	for _, t := range current.Frontmatter.Tags {
		tags[t] = struct{}{}
	}

	type match struct {
		article *content.Article
		shared  int
	}
	matches := make([]match, 0, len(peers))
	for _, peer := range peers {
		if peer.Key() == current.Key() {
			continue
		}
		shared := 0
		for _, t := range peer.Frontmatter.Tags {
			if _, ok := tags[t]; ok {
				shared++
			}
		}
		if shared > 0 {
			matches = append(matches, match{article: peer, shared: shared})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].shared > matches[j].shared })

	out := make([]*content.Article, len(matches))
	for i, m := range matches {
		out[i] = m.article
	}
	return out
}

// Prerequisites resolves the article's prerequisite slugs, preferring its
// own category. Unresolvable entries are dropped.
func (r *Resolver) Prerequisites(ctx context.Context, article *content.Article) []*content.Article {
	out := make([]*content.Article, 0, len(article.Frontmatter.Prerequisites))
	if len(article.Frontmatter.Prerequisites) == 0 {
		return out
	}
	idx, err := r.index(ctx)
	if err != nil {
		r.logger.Warn("prerequisites unavailable", zap.String("source", article.Key()), zap.Error(err))
		return out
	}
	seen := map[string]bool{article.Key(): true}
	for _, slug := range article.Frontmatter.Prerequisites {
		a := idx.lookup(article.Category, slug)
		if a == nil || seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	return out
}
