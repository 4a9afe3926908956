package relations

import (
	"context"
	"sort"

	"inevitablewiki/internal/content"
)

// TagInfo aggregates the articles carrying a tag across all categories.
type TagInfo struct {
	Tag      string             `json:"tag"`
	Count    int                `json:"count"`
	Articles []*content.Article `json:"articles"`
}

// RelatedTag is a tag seen alongside another one.
type RelatedTag struct {
	TagInfo
	CoOccurrence int `json:"coOccurrence"`
}

// Tags returns the global tag index by descending count, ties in discovery
// order. Each tag's articles are ordered by most recent update.
func (r *Resolver) Tags(ctx context.Context) ([]TagInfo, error) {
	articles, err := r.corpus.LoadAll(ctx, "")
	if err != nil {
		return nil, err
	}
	return buildTagIndex(articles), nil
}

func buildTagIndex(articles []*content.Article) []TagInfo {
	var order []string
	byTag := make(map[string][]*content.Article)
	for _, a := range articles {
		for _, tag := range a.Frontmatter.Tags {
			if _, ok := byTag[tag]; !ok {
				order = append(order, tag)
			}
			byTag[tag] = append(byTag[tag], a)
		}
	}

	tags := make([]TagInfo, 0, len(order))
	for _, tag := range order {
		tagged := byTag[tag]
		sortByUpdated(tagged)
		tags = append(tags, TagInfo{Tag: tag, Count: len(tagged), Articles: tagged})
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })
	return tags
}

// ArticlesByTag returns the articles carrying tag, most recently updated
// first.
func (r *Resolver) ArticlesByTag(ctx context.Context, tag string) ([]*content.Article, error) {
	articles, err := r.corpus.LoadAll(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]*content.Article, 0)
	for _, a := range articles {
		if a.HasTag(tag) {
			out = append(out, a)
		}
	}
	sortByUpdated(out)
	return out, nil
}

// RelatedTags counts how often other tags appear on articles carrying tag
// and returns the limit most frequent.
func (r *Resolver) RelatedTags(ctx context.Context, tag string, limit int) ([]RelatedTag, error) {
	if limit <= 0 {
		return []RelatedTag{}, nil
	}
	articles, err := r.corpus.LoadAll(ctx, "")
	if err != nil {
		return nil, err
	}

	var order []string
	counts := make(map[string]int)
	for _, a := range articles {
		if !a.HasTag(tag) {
			continue
		}
		for _, other := range a.Frontmatter.Tags {
			if other == tag {
				continue
			}
			if _, ok := counts[other]; !ok {
				order = append(order, other)
			}
			counts[other]++
		}
	}

	infos := make(map[string]TagInfo)
	for _, info := range buildTagIndex(articles) {
		infos[info.Tag] = info
	}

	related := make([]RelatedTag, 0, len(order))
	for _, other := range order {
		related = append(related, RelatedTag{TagInfo: infos[other], CoOccurrence: counts[other]})
	}
	sort.SliceStable(related, func(i, j int) bool { return related[i].CoOccurrence > related[j].CoOccurrence })
	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

// sortByUpdated orders by the updated field, newest first. Dates share the
// YYYY-MM-DD prefix so string order is chronological.
func sortByUpdated(articles []*content.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Frontmatter.Updated > articles[j].Frontmatter.Updated
	})
}
