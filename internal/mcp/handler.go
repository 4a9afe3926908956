// Package mcp exposes the content engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"inevitablewiki/internal/content"
	"inevitablewiki/internal/relations"
	"inevitablewiki/internal/search"
)

const Version = "0.1.0"

const defaultLimit = 5

type GetArticleRequest struct {
	Category string `json:"category"` // Category partition, e.g. "concepts"
	Slug     string `json:"slug"`     // Article slug within the category
}

type GetArticleResponse struct {
	Article  *content.Article  `json:"article"`
	Body     string            `json:"body"`
	Headings []content.Heading `json:"headings"`
}

type RelatedRequest struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
	Limit    int    `json:"limit"` // Defaults to 5
}

type TagRequest struct {
	Tag string `json:"tag"`
}

type SearchRequest struct {
	Query      string `json:"query"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

type TreeRequest struct {
	Category string `json:"category"`
}

// Summary is the compact article form returned by list tools.
type Summary struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// NewServer creates an MCP server with the article, related, tag, search
// and tree tools.
func NewServer(repo *content.Repository, resolver *relations.Resolver) *server.MCPServer {
	s := server.NewMCPServer(
		"Inevitable Wiki",
		Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("getArticle",
		mcp.WithDescription("Get one article with its metadata, markdown body and section headings"),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category of the article (e.g. 'concepts')")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the article (e.g. 'merkle-trees')")),
	), mcp.NewTypedToolHandler(getArticleHandler(repo)))

	s.AddTool(mcp.NewTool("related",
		mcp.WithDescription("List articles related to an article: explicit references first, then shared tags"),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category of the article")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the article")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.Min(1), mcp.Max(50)),
	), mcp.NewTypedToolHandler(relatedHandler(repo, resolver)))

	s.AddTool(mcp.NewTool("listTags",
		mcp.WithDescription("List every tag with the number of articles carrying it"),
	), mcp.NewTypedToolHandler(listTagsHandler(resolver)))

	s.AddTool(mcp.NewTool("articlesByTag",
		mcp.WithDescription("List the articles carrying a tag, most recently updated first"),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to look up")),
	), mcp.NewTypedToolHandler(articlesByTagHandler(resolver)))

	s.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search article titles, descriptions and tags"),
		mcp.WithString("query", mcp.Description("Case-insensitive substring")),
		mcp.WithString("category", mcp.Description("Restrict to one category")),
		mcp.WithString("difficulty", mcp.Description("intro, intermediate or advanced")),
	), mcp.NewTypedToolHandler(searchHandler(repo)))

	s.AddTool(mcp.NewTool("tree",
		mcp.WithDescription("Get the parent/child navigation tree of a category"),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category to describe")),
	), mcp.NewTypedToolHandler(treeHandler(resolver)))

	return s
}

func getArticleHandler(repo *content.Repository) func(context.Context, mcp.CallToolRequest, GetArticleRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetArticleRequest) (*mcp.CallToolResult, error) {
		if args.Category == "" || args.Slug == "" {
			return mcp.NewToolResultError("category and slug are required"), nil
		}
		article, err := repo.Load(ctx, args.Category, args.Slug)
		if err != nil {
			return lookupError(args.Category+"/"+args.Slug, err), nil
		}
		return jsonResult(GetArticleResponse{
			Article:  article,
			Body:     article.Body,
			Headings: content.ExtractHeadings(article.Body, 0),
		})
	}
}

func relatedHandler(repo *content.Repository, resolver *relations.Resolver) func(context.Context, mcp.CallToolRequest, RelatedRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args RelatedRequest) (*mcp.CallToolResult, error) {
		if args.Category == "" || args.Slug == "" {
			return mcp.NewToolResultError("category and slug are required"), nil
		}
		if _, err := repo.Load(ctx, args.Category, args.Slug); err != nil {
			return lookupError(args.Category+"/"+args.Slug, err), nil
		}
		limit := args.Limit
		if limit <= 0 {
			limit = defaultLimit
		}
		return jsonResult(summaries(resolver.Related(ctx, args.Category, args.Slug, limit)))
	}
}

func listTagsHandler(resolver *relations.Resolver) func(context.Context, mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
		tags, err := resolver.Tags(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tags: %v", err)), nil
		}
		out := make([]tagCount, len(tags))
		for i, t := range tags {
			out[i] = tagCount{Tag: t.Tag, Count: t.Count}
		}
		return jsonResult(out)
	}
}

func articlesByTagHandler(resolver *relations.Resolver) func(context.Context, mcp.CallToolRequest, TagRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args TagRequest) (*mcp.CallToolResult, error) {
		if args.Tag == "" {
			return mcp.NewToolResultError("tag is required"), nil
		}
		articles, err := resolver.ArticlesByTag(ctx, args.Tag)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load tag: %v", err)), nil
		}
		return jsonResult(summaries(articles))
	}
}

func searchHandler(repo *content.Repository) func(context.Context, mcp.CallToolRequest, SearchRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SearchRequest) (*mcp.CallToolResult, error) {
		if args.Category != "" && !repo.Schema().IsCategory(args.Category) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", args.Category)), nil
		}
		articles, err := search.Filter(ctx, repo, args.Query, search.Filters{
			Category:   args.Category,
			Difficulty: content.Difficulty(args.Difficulty),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return jsonResult(summaries(articles))
	}
}

func treeHandler(resolver *relations.Resolver) func(context.Context, mcp.CallToolRequest, TreeRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args TreeRequest) (*mcp.CallToolResult, error) {
		tree, err := resolver.Tree(ctx, args.Category)
		if err != nil {
			return lookupError(args.Category, err), nil
		}
		return jsonResult(tree)
	}
}

func lookupError(what string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s not found", what))
	case errors.Is(err, content.ErrInvalidFrontmatter):
		return mcp.NewToolResultError(fmt.Sprintf("%s has invalid frontmatter: %v", what, err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("failed to load %s: %v", what, err))
	}
}

func summaries(articles []*content.Article) []Summary {
	out := make([]Summary, len(articles))
	for i, a := range articles {
		out[i] = Summary{Key: a.Key(), Title: a.Title(), Description: a.Frontmatter.Summary(), Path: a.Path()}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
