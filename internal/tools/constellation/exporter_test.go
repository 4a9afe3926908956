package constellation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inevitablewiki/internal/content"
	"inevitablewiki/internal/content/fsstore"
)

func fixture(t *testing.T) *content.Repository {
	t.Helper()
	fsys := fstest.MapFS{
		"concepts/hashing.mdx": {Data: []byte(`---
title: Hashing
updated: 2024-01-01
related: [merkle-trees]
---
Gas is priced per [operation](/ethereum/gas).
`)},
		"concepts/merkle-trees.mdx": {Data: []byte("---\ntitle: Merkle Trees\nparent: hashing\nupdated: 2024-02-01\n---\n")},
		"ethereum/evm.mdx":          {Data: []byte("---\ntitle: EVM\nparent: missing\nupdated: 2024-04-01\n---\nSee [this page](/ethereum/evm).\n")},
		"ethereum/gas.mdx":          {Data: []byte("---\ntitle: Gas\nupdated: 2024-03-01\nrelated: [concepts/hashing, gas]\n---\n")},
	}
	return content.NewRepository(fsstore.New(fsys))
}

func buildFixture(t *testing.T) Graph {
	t.Helper()
	articles, err := fixture(t).LoadAll(context.Background(), "")
	require.NoError(t, err)
	return Build(articles)
}

func TestBuildEdges(t *testing.T) {
	g := buildFixture(t)

	assert.Equal(t, []Edge{
		{Source: "category:concepts", Target: "concepts/hashing", Kind: KindCategory},
		{Source: "concepts/hashing", Target: "concepts/merkle-trees", Kind: KindParent},
		{Source: "category:ethereum", Target: "ethereum/evm", Kind: KindCategory},
		{Source: "category:ethereum", Target: "ethereum/gas", Kind: KindCategory},
		{Source: "concepts/hashing", Target: "concepts/merkle-trees", Kind: KindRelated},
		{Source: "concepts/hashing", Target: "ethereum/gas", Kind: KindLink},
		{Source: "ethereum/gas", Target: "concepts/hashing", Kind: KindRelated},
	}, g.Edges)

	assert.Equal(t, Totals{Articles: 4, Categories: 2, Edges: 7, Links: 4, Clusters: len(g.Clusters)}, g.Totals)
}

func TestBuildNodes(t *testing.T) {
	g := buildFixture(t)
	require.Len(t, g.Nodes, 6)

	assert.Equal(t, Node{ID: "category:concepts", Kind: KindCategory, Category: "concepts", Title: "Concepts", Cluster: -1}, g.Nodes[0])
	assert.Equal(t, "category:ethereum", g.Nodes[1].ID)

	degrees := map[string]int{}
	for _, n := range g.Nodes[2:] {
		assert.Equal(t, "article", n.Kind)
		assert.GreaterOrEqual(t, n.Cluster, 0)
		degrees[n.ID] = n.Degree
	}
	assert.Equal(t, map[string]int{
		"concepts/hashing":      4,
		"concepts/merkle-trees": 2,
		"ethereum/evm":          0,
		"ethereum/gas":          2,
	}, degrees)
}

func TestBuildClusters(t *testing.T) {
	g := buildFixture(t)

	size := 0
	internal, external := 0, 0
	for i, c := range g.Clusters {
		size += c.Size
		internal += c.InternalLinks
		external += c.ExternalLinks
		assert.LessOrEqual(t, c.OldestUpdated, c.NewestUpdated)
		if i > 0 {
			assert.GreaterOrEqual(t, g.Clusters[i-1].Size, c.Size)
		}
	}
	assert.Equal(t, 4, size)

	crossing := 0
	for _, l := range g.Links {
		assert.Less(t, l.Source, l.Target)
		crossing += l.Weight
	}
	assert.Equal(t, g.Totals.Links, internal+crossing)
	assert.Equal(t, 2*crossing, external)
}

func TestBuildDeterministic(t *testing.T) {
	first := buildFixture(t)
	second := buildFixture(t)
	first.GeneratedAt = time.Time{}
	second.GeneratedAt = time.Time{}
	assert.Equal(t, first, second)
}

func TestExportWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public", "constellation.json")

	g, err := Export(context.Background(), fixture(t), out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded Graph
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, g.Totals, decoded.Totals)
	assert.Len(t, decoded.Nodes, len(g.Nodes))
}
