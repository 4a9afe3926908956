package relations

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"inevitablewiki/internal/content"
)

// ArticleNode is the navigation projection of an article.
type ArticleNode struct {
	Title      string             `json:"title"`
	Slug       string             `json:"slug"`
	Difficulty content.Difficulty `json:"difficulty"`
	Parent     string             `json:"parent,omitempty"`
	Children   []ArticleNode      `json:"children"`
}

// CategoryTree is the navigation forest of one category.
type CategoryTree struct {
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Count    int           `json:"count"`
	Articles []ArticleNode `json:"articles"`
}

// Trees returns one tree per category in listing order. The result is cached
// until the corpus generation changes.
func (r *Resolver) Trees(ctx context.Context) ([]CategoryTree, error) {
	generation := r.corpus.Generation()

	r.mu.Lock()
	if r.built && r.treesGen == generation {
		trees := r.trees
		r.mu.Unlock()
		return trees, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do("trees/"+strconv.FormatUint(generation, 10), func() (any, error) {
		trees, err := r.buildTrees(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.corpus.Generation() == generation {
			r.trees, r.treesGen, r.built = trees, generation, true
		}
		r.mu.Unlock()
		return trees, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]CategoryTree), nil
}

// Tree returns the tree of one category, or an error matching
// content.ErrNotFound when the category is not listed.
func (r *Resolver) Tree(ctx context.Context, category string) (CategoryTree, error) {
	trees, err := r.Trees(ctx)
	if err != nil {
		return CategoryTree{}, err
	}
	for _, tree := range trees {
		if tree.Slug == category {
			return tree, nil
		}
	}
	return CategoryTree{}, fmt.Errorf("%w: category %s", content.ErrNotFound, category)
}

func (r *Resolver) buildTrees(ctx context.Context) ([]CategoryTree, error) {
	categories, err := r.corpus.Categories(ctx)
	if err != nil {
		return nil, err
	}
	trees := make([]CategoryTree, 0, len(categories))
	for _, category := range categories {
		articles, err := r.corpus.LoadAll(ctx, category)
		if err != nil {
			return nil, err
		}
		trees = append(trees, CategoryTree{
			Name:     content.CategoryLabel(category),
			Slug:     category,
			Count:    len(articles),
			Articles: BuildForest(articles),
		})
	}
	return trees, nil
}

// BuildForest arranges the articles of one category by their parent field.
// Articles without a parent, with a parent outside the set, or pointing at
// themselves are roots. Parent cycles are broken by promoting the member
// that sorts first. Every level is ordered by title, then slug.
func BuildForest(articles []*content.Article) []ArticleNode {
	cmp := newTitleOrder()

	bySlug := make(map[string]*content.Article, len(articles))
	for _, a := range articles {
		if _, dup := bySlug[a.Slug]; !dup {
			bySlug[a.Slug] = a
		}
	}

	parentOf := make(map[string]string, len(bySlug))
	for slug, a := range bySlug {
		parent := a.Frontmatter.Parent
		if _, ok := bySlug[parent]; ok && parent != slug {
			parentOf[slug] = parent
		}
	}
	breakCycles(bySlug, parentOf, cmp)

	children := make(map[string][]string, len(parentOf))
	roots := make([]string, 0)
	for slug := range bySlug {
		if parent, ok := parentOf[slug]; ok {
			children[parent] = append(children[parent], slug)
		} else {
			roots = append(roots, slug)
		}
	}

	var build func(slug string) ArticleNode
	build = func(slug string) ArticleNode {
		a := bySlug[slug]
		kids := make([]ArticleNode, 0, len(children[slug]))
		for _, child := range children[slug] {
			kids = append(kids, build(child))
		}
		cmp.sort(kids)
		return ArticleNode{
			Title:      a.Title(),
			Slug:       a.Slug,
			Difficulty: a.Frontmatter.Difficulty,
			Parent:     parentOf[slug],
			Children:   kids,
		}
	}

	forest := make([]ArticleNode, 0, len(roots))
	for _, slug := range roots {
		forest = append(forest, build(slug))
	}
	cmp.sort(forest)
	return forest
}

// breakCycles walks every parent chain once. When a walk revisits a node
// of its own path, the cycle member that sorts first loses its parent.
func breakCycles(bySlug map[string]*content.Article, parentOf map[string]string, cmp *titleOrder) {
	slugs := make([]string, 0, len(bySlug))
	for slug := range bySlug {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	settled := make(map[string]bool, len(slugs))
	for _, start := range slugs {
		onPath := make(map[string]int)
		var path []string
		for cur, ok := start, true; ok; cur, ok = parentOf[cur] {
			if settled[cur] {
				break
			}
			if at, seen := onPath[cur]; seen {
				cycle := path[at:]
				first := cycle[0]
				for _, slug := range cycle[1:] {
					if cmp.less(bySlug[slug].Title(), slug, bySlug[first].Title(), first) {
						first = slug
					}
				}
				delete(parentOf, first)
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)
		}
		for _, slug := range path {
			settled[slug] = true
		}
	}
}

// titleOrder compares titles with English collation. A collator is not safe
// for concurrent use, so each forest build gets its own.
type titleOrder struct {
	collator *collate.Collator
}

func newTitleOrder() *titleOrder {
	return &titleOrder{collator: collate.New(language.English)}
}

func (o *titleOrder) less(titleA, slugA, titleB, slugB string) bool {
	if c := o.collator.CompareString(titleA, titleB); c != 0 {
		return c < 0
	}
	return slugA < slugB
}

func (o *titleOrder) sort(nodes []ArticleNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return o.less(nodes[i].Title, nodes[i].Slug, nodes[j].Title, nodes[j].Slug)
	})
}
