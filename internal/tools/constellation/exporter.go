// Package constellation exports the article graph for visualization:
// category hubs, parent/related/link edges and Louvain communities.
package constellation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"inevitablewiki/internal/content"
)

const maxClusterSample = 40

// Edge kinds.
const (
	KindCategory = "category"
	KindParent   = "parent"
	KindRelated  = "related"
	KindLink     = "link"
)

type Node struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Category   string             `json:"category"`
	Slug       string             `json:"slug,omitempty"`
	Title      string             `json:"title"`
	Difficulty content.Difficulty `json:"difficulty,omitempty"`
	Cluster    int                `json:"cluster"`
	Degree     int                `json:"degree"`
}

type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

type ClusterMember struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Degree  int    `json:"degree"`
	Updated string `json:"updated"`
}

type Cluster struct {
	ID            int             `json:"id"`
	Size          int             `json:"size"`
	Sample        []ClusterMember `json:"sample"`
	InternalLinks int             `json:"internal_links"`
	ExternalLinks int             `json:"external_links"`
	OldestUpdated string          `json:"oldest_updated"`
	NewestUpdated string          `json:"newest_updated"`
}

type ClusterLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Weight int `json:"weight"`
}

type Totals struct {
	Articles   int `json:"articles"`
	Categories int `json:"categories"`
	Edges      int `json:"edges"`
	Links      int `json:"links"`
	Clusters   int `json:"clusters"`
}

type Graph struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Totals      Totals        `json:"totals"`
	Nodes       []Node        `json:"nodes"`
	Edges       []Edge        `json:"edges"`
	Clusters    []Cluster     `json:"clusters"`
	Links       []ClusterLink `json:"links"`
}

// Source lists the corpus.
type Source interface {
	LoadAll(ctx context.Context, category string) ([]*content.Article, error)
}

type clusterStats struct {
	members       []ClusterMember
	internalLinks int
	externalLinks int
	oldest        string
	newest        string
}

type clusterPair struct {
	a int
	b int
}

// Export builds the graph of every loaded article and writes it to outPath
// when set.
func Export(ctx context.Context, src Source, outPath string) (Graph, error) {
	articles, err := src.LoadAll(ctx, "")
	if err != nil {
		return Graph{}, err
	}
	g := Build(articles)
	if outPath != "" {
		if err := write(outPath, g); err != nil {
			return Graph{}, err
		}
	}
	return g, nil
}

// Build derives the graph. Apart from GeneratedAt the output depends only on
// the input order of articles.
func Build(articles []*content.Article) Graph {
	byKey := make(map[string]*content.Article, len(articles))
	var categories []string
	for _, a := range articles {
		if _, ok := byKey[a.Key()]; ok {
			continue
		}
		if !slices.Contains(categories, a.Category) {
			categories = append(categories, a.Category)
		}
		byKey[a.Key()] = a
	}

	hierarchy := make([]Edge, 0, len(articles))
	links := make([]Edge, 0)
	keys := make([]string, 0, len(byKey))
	seenArticle := make(map[string]bool, len(byKey))
	for _, a := range articles {
		if seenArticle[a.Key()] {
			continue
		}
		seenArticle[a.Key()] = true
		keys = append(keys, a.Key())

		parent := a.Frontmatter.Parent
		if _, ok := byKey[a.Category+"/"+parent]; ok && parent != a.Slug {
			hierarchy = append(hierarchy, Edge{Source: a.Category + "/" + parent, Target: a.Key(), Kind: KindParent})
		} else {
			hierarchy = append(hierarchy, Edge{Source: hubID(a.Category), Target: a.Key(), Kind: KindCategory})
		}
		links = append(links, outboundEdges(a, byKey, categories)...)
	}

	articleEdges := make([]Edge, 0, len(hierarchy)+len(links))
	for _, e := range hierarchy {
		if e.Kind == KindParent {
			articleEdges = append(articleEdges, e)
		}
	}
	articleEdges = append(articleEdges, links...)

	assignments := communities(keys, articleEdges, Seed)
	degree := make(map[string]int, len(keys))
	for _, e := range articleEdges {
		degree[e.Source]++
		degree[e.Target]++
	}

	nodes := make([]Node, 0, len(categories)+len(keys))
	for _, category := range categories {
		nodes = append(nodes, Node{
			ID:       hubID(category),
			Kind:     KindCategory,
			Category: category,
			Title:    content.CategoryLabel(category),
			Cluster:  -1,
		})
	}
	for _, key := range keys {
		a := byKey[key]
		nodes = append(nodes, Node{
			ID:         key,
			Kind:       "article",
			Category:   a.Category,
			Slug:       a.Slug,
			Title:      a.Title(),
			Difficulty: a.Frontmatter.Difficulty,
			Cluster:    assignments[key],
			Degree:     degree[key],
		})
	}

	clusters, clusterLinks := summarize(keys, byKey, articleEdges, assignments, degree)

	return Graph{
		GeneratedAt: time.Now().UTC(),
		Totals: Totals{
			Articles:   len(keys),
			Categories: len(categories),
			Edges:      len(hierarchy) + len(links),
			Links:      len(articleEdges),
			Clusters:   len(clusters),
		},
		Nodes:    nodes,
		Edges:    slices.Concat(hierarchy, links),
		Clusters: clusters,
		Links:    clusterLinks,
	}
}

// outboundEdges returns the related and body-link edges of a, skipping
// self references, unknown targets and repeats.
func outboundEdges(a *content.Article, byKey map[string]*content.Article, categories []string) []Edge {
	seen := make(map[string]struct{})
	edges := make([]Edge, 0)
	add := func(target *content.Article, kind string) {
		if target == nil || target.Key() == a.Key() {
			return
		}
		if _, ok := seen[target.Key()]; ok {
			return
		}
		seen[target.Key()] = struct{}{}
		edges = append(edges, Edge{Source: a.Key(), Target: target.Key(), Kind: kind})
	}

	for _, ref := range a.Frontmatter.Related {
		if category, slug, ok := strings.Cut(ref, "/"); ok {
			add(byKey[category+"/"+slug], KindRelated)
			continue
		}
		target := byKey[a.Category+"/"+ref]
		for _, category := range categories {
			if target != nil {
				break
			}
			target = byKey[category+"/"+ref]
		}
		add(target, KindRelated)
	}
	for _, link := range content.ExtractLinks(a.Body) {
		add(byKey[strings.Trim(link, "/")], KindLink)
	}
	return edges
}

func summarize(keys []string, byKey map[string]*content.Article, edges []Edge, assignments map[string]int, degree map[string]int) ([]Cluster, []ClusterLink) {
	statsByCluster := make(map[int]*clusterStats)
	for _, key := range keys {
		id := assignments[key]
		stats := statsByCluster[id]
		if stats == nil {
			stats = &clusterStats{}
			statsByCluster[id] = stats
		}
		a := byKey[key]
		member := ClusterMember{Key: key, Title: a.Title(), Degree: degree[key], Updated: a.Frontmatter.Updated}
		stats.members = append(stats.members, member)
		if member.Updated != "" {
			if stats.oldest == "" || member.Updated < stats.oldest {
				stats.oldest = member.Updated
			}
			if member.Updated > stats.newest {
				stats.newest = member.Updated
			}
		}
	}

	linkWeights := make(map[clusterPair]int)
	for _, edge := range edges {
		src, dst := assignments[edge.Source], assignments[edge.Target]
		if src == dst {
			statsByCluster[src].internalLinks++
			continue
		}
		pair := clusterPair{a: src, b: dst}
		if pair.a > pair.b {
			pair.a, pair.b = pair.b, pair.a
		}
		linkWeights[pair]++
		statsByCluster[src].externalLinks++
		statsByCluster[dst].externalLinks++
	}

	clusterIDs := make([]int, 0, len(statsByCluster))
	for id := range statsByCluster {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Slice(clusterIDs, func(i, j int) bool {
		sizeI, sizeJ := len(statsByCluster[clusterIDs[i]].members), len(statsByCluster[clusterIDs[j]].members)
		if sizeI == sizeJ {
			return clusterIDs[i] < clusterIDs[j]
		}
		return sizeI > sizeJ
	})

	clusters := make([]Cluster, 0, len(clusterIDs))
	for _, id := range clusterIDs {
		stats := statsByCluster[id]
		sort.Slice(stats.members, func(i, j int) bool {
			if stats.members[i].Degree == stats.members[j].Degree {
				return stats.members[i].Key < stats.members[j].Key
			}
			return stats.members[i].Degree > stats.members[j].Degree
		})
		sample := stats.members
		if len(sample) > maxClusterSample {
			sample = sample[:maxClusterSample]
		}

		clusters = append(clusters, Cluster{
			ID:            id,
			Size:          len(stats.members),
			Sample:        append([]ClusterMember(nil), sample...),
			InternalLinks: stats.internalLinks,
			ExternalLinks: stats.externalLinks,
			OldestUpdated: stats.oldest,
			NewestUpdated: stats.newest,
		})
	}

	links := make([]ClusterLink, 0, len(linkWeights))
	for pair, weight := range linkWeights {
		links = append(links, ClusterLink{Source: pair.a, Target: pair.b, Weight: weight})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Weight == links[j].Weight {
			if links[i].Source == links[j].Source {
				return links[i].Target < links[j].Target
			}
			return links[i].Source < links[j].Source
		}
		return links[i].Weight > links[j].Weight
	})
	return clusters, links
}

func hubID(category string) string {
	return "category:" + category
}

func write(outPath string, g Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(outPath, data, 0o644)
}
