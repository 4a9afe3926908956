package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inevitablewiki/internal/content"
	"inevitablewiki/internal/content/fsstore"
	"inevitablewiki/internal/relations"
)

func fixture() (*content.Repository, *relations.Resolver) {
	fsys := fstest.MapFS{
		"concepts/hashing.mdx":      {Data: []byte("---\ntitle: Hashing\ndescription: Fingerprints for data.\ntags: [crypto]\nupdated: 2024-01-01\n---\n## Properties\n")},
		"concepts/merkle-trees.mdx": {Data: []byte("---\ntitle: Merkle Trees\nparent: hashing\ntags: [crypto]\nupdated: 2024-02-01\n---\n")},
		"concepts/broken.mdx":       {Data: []byte("---\ntitle: [not, a, string]\n---\n")},
	}
	repo := content.NewRepository(fsstore.New(fsys))
	return repo, relations.NewResolver(repo)
}

func request(name string, args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params:  mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNewServer(t *testing.T) {
	repo, resolver := fixture()
	assert.NotNil(t, NewServer(repo, resolver))
}

func TestGetArticleHandler(t *testing.T) {
	repo, _ := fixture()
	handler := getArticleHandler(repo)
	ctx := context.Background()

	args := GetArticleRequest{Category: "concepts", Slug: "hashing"}
	result, err := handler(ctx, request("getArticle", args), args)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp GetArticleResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &resp))
	assert.Equal(t, "Hashing", resp.Article.Title())
	assert.Equal(t, []content.Heading{{Level: 2, Text: "Properties"}}, resp.Headings)

	for _, args := range []GetArticleRequest{
		{Category: "concepts", Slug: "missing"},
		{Category: "concepts", Slug: "broken"},
		{Category: "concepts"},
	} {
		result, err := handler(ctx, request("getArticle", args), args)
		require.NoError(t, err)
		assert.True(t, result.IsError, args)
	}
}

func TestRelatedHandler(t *testing.T) {
	repo, resolver := fixture()
	handler := relatedHandler(repo, resolver)

	args := RelatedRequest{Category: "concepts", Slug: "hashing"}
	result, err := handler(context.Background(), request("related", args), args)
	require.NoError(t, err)

	var got []Summary
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "concepts/merkle-trees", got[0].Key)
}

func TestTagHandlers(t *testing.T) {
	_, resolver := fixture()
	ctx := context.Background()

	result, err := listTagsHandler(resolver)(ctx, request("listTags", nil), struct{}{})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"tag":"crypto","count":2}]`, text(t, result))

	args := TagRequest{Tag: "crypto"}
	result, err = articlesByTagHandler(resolver)(ctx, request("articlesByTag", args), args)
	require.NoError(t, err)
	var got []Summary
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "concepts/merkle-trees", got[0].Key)

	result, err = articlesByTagHandler(resolver)(ctx, request("articlesByTag", TagRequest{}), TagRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchAndTreeHandlers(t *testing.T) {
	repo, resolver := fixture()
	ctx := context.Background()

	args := SearchRequest{Query: "fingerprint"}
	result, err := searchHandler(repo)(ctx, request("search", args), args)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "concepts/hashing")

	args = SearchRequest{Category: "recipes"}
	result, err = searchHandler(repo)(ctx, request("search", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	tree := TreeRequest{Category: "concepts"}
	result, err = treeHandler(resolver)(ctx, request("tree", tree), tree)
	require.NoError(t, err)
	var got relations.CategoryTree
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &got))
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "hashing", got.Articles[0].Slug)

	tree = TreeRequest{Category: "unknown"}
	result, err = treeHandler(resolver)(ctx, request("tree", tree), tree)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
