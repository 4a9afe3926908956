package relations

import (
	"context"
	"strings"

	"inevitablewiki/internal/content"
)

// StaticRoutes are site paths that exist without an article behind them.
var StaticRoutes = []string{"/", "/about", "/search", "/random", "/tags", "/visualize"}

// BrokenLink is an internal link that resolves to nothing.
type BrokenLink struct {
	Source string `json:"source"`
	Link   string `json:"link"`
}

// BrokenLinks scans every article body for internal links that match no
// article, category, tag page, StaticRoutes entry or extra route.
func (r *Resolver) BrokenLinks(ctx context.Context, extraRoutes ...string) ([]BrokenLink, error) {
	idx, err := r.index(ctx)
	if err != nil {
		return nil, err
	}

	valid := make(map[string]struct{}, len(idx.articles)+len(StaticRoutes)+len(extraRoutes))
	for _, route := range append(append([]string{}, StaticRoutes...), extraRoutes...) {
		valid[route] = struct{}{}
	}
	for _, category := range idx.categories {
		valid["/"+category] = struct{}{}
	}
	for _, a := range idx.articles {
		valid[a.Path()] = struct{}{}
		for _, tag := range a.Frontmatter.Tags {
			valid["/tags/"+tag] = struct{}{}
		}
	}

	broken := make([]BrokenLink, 0)
	for _, a := range idx.articles {
		for _, link := range content.ExtractLinks(a.Body) {
			if _, ok := valid[trimSlash(link)]; ok {
				continue
			}
			broken = append(broken, BrokenLink{Source: a.Key(), Link: link})
		}
	}
	return broken, nil
}

func trimSlash(link string) string {
	if len(link) > 1 {
		return strings.TrimSuffix(link, "/")
	}
	return link
}
