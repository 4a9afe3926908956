package app

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"inevitablewiki/internal/breadcrumb"
	"inevitablewiki/internal/content"
	"inevitablewiki/internal/relations"
	"inevitablewiki/internal/search"
	"inevitablewiki/internal/tools/constellation"
)

const (
	maxQueryLength  = 128
	relatedTagLimit = 10
)

// Server wires the content engine into a JSON API.
type Server struct {
	cfg      Config
	repo     *content.Repository
	resolver *relations.Resolver
	crumbs   *breadcrumb.Resolver
	metrics  *Metrics
	logger   *zap.Logger
	router   chi.Router
}

// ArticleRef is the compact form used in listings.
type ArticleRef struct {
	Category    string             `json:"category"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Difficulty  content.Difficulty `json:"difficulty,omitempty"`
	Updated     string             `json:"updated,omitempty"`
	Path        string             `json:"path"`
}

// ArticleView is the full response for a single article.
type ArticleView struct {
	Category      string              `json:"category"`
	Slug          string              `json:"slug"`
	Frontmatter   content.Frontmatter `json:"frontmatter"`
	ReadingTime   float64             `json:"readingTime"`
	Body          string              `json:"body"`
	Headings      []content.Heading   `json:"headings"`
	Breadcrumbs   []breadcrumb.Crumb  `json:"breadcrumbs"`
	Prev          *ArticleRef         `json:"prev"`
	Next          *ArticleRef         `json:"next"`
	Related       []ArticleRef        `json:"related"`
	Prerequisites []ArticleRef        `json:"prerequisites"`
}

type tagSummary struct {
	Tag      string       `json:"tag"`
	Count    int          `json:"count"`
	Articles []ArticleRef `json:"articles,omitempty"`
}

type relatedTagSummary struct {
	Tag          string `json:"tag"`
	Count        int    `json:"count"`
	CoOccurrence int    `json:"coOccurrence"`
}

// NewServer constructs an HTTP handler serving repo.
func NewServer(repo *content.Repository, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		cfg:      cfg,
		repo:     repo,
		resolver: relations.NewResolver(repo, relations.WithLogger(logger)),
		crumbs:   breadcrumb.New(repo, logger),
		metrics:  NewMetrics(repo),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(srv.metrics.Middleware)

	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", srv.metrics.Handler())
	r.Get("/random", srv.handleRandomArticle)
	r.Get("/recent", srv.handleRecentArticle)
	r.Get("/search-index.json", srv.handleSearchIndex)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", srv.handleCategories)
		r.Get("/categories/{category}", srv.handleCategory)
		r.Get("/articles/{category}/{slug}", srv.handleArticle)
		r.Get("/tags", srv.handleTags)
		r.Get("/tags/{tag}", srv.handleTag)
		r.Get("/search", srv.handleSearch)
		r.Get("/graph", srv.handleGraph)
	})

	srv.router = r
	return srv
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"generation": s.repo.Generation(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	trees, err := s.resolver.Trees(r.Context())
	if err != nil {
		s.fail(w, r, "load trees", err)
		return
	}
	writeJSON(w, http.StatusOK, trees)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	tree, err := s.resolver.Tree(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		s.fail(w, r, "load tree", err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category, slug := chi.URLParam(r, "category"), chi.URLParam(r, "slug")

	article, err := s.repo.Load(ctx, category, slug)
	if err != nil {
		s.fail(w, r, "load article", err)
		return
	}

	neighbors := s.resolver.PrevNext(ctx, category, slug)
	view := ArticleView{
		Category:      article.Category,
		Slug:          article.Slug,
		Frontmatter:   article.Frontmatter,
		ReadingTime:   article.ReadingTime,
		Body:          article.Body,
		Headings:      content.ExtractHeadings(article.Body, 0),
		Breadcrumbs:   s.crumbs.Resolve(ctx, category, slug),
		Prev:          refOrNil(neighbors.Prev),
		Next:          refOrNil(neighbors.Next),
		Related:       refs(s.resolver.Related(ctx, category, slug, s.cfg.RelatedLimit)),
		Prerequisites: refs(s.resolver.Prerequisites(ctx, article)),
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.resolver.Tags(r.Context())
	if err != nil {
		s.fail(w, r, "load tags", err)
		return
	}
	out := make([]tagSummary, len(tags))
	for i, t := range tags {
		out[i] = tagSummary{Tag: t.Tag, Count: t.Count}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tag := chi.URLParam(r, "tag")

	articles, err := s.resolver.ArticlesByTag(ctx, tag)
	if err != nil {
		s.fail(w, r, "load tag", err)
		return
	}
	if len(articles) == 0 {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}
	related, err := s.resolver.RelatedTags(ctx, tag, relatedTagLimit)
	if err != nil {
		s.fail(w, r, "load related tags", err)
		return
	}

	relatedOut := make([]relatedTagSummary, len(related))
	for i, rt := range related {
		relatedOut[i] = relatedTagSummary{Tag: rt.Tag, Count: rt.Count, CoOccurrence: rt.CoOccurrence}
	}
	writeJSON(w, http.StatusOK, struct {
		tagSummary
		Related []relatedTagSummary `json:"related"`
	}{
		tagSummary: tagSummary{Tag: tag, Count: len(articles), Articles: refs(articles)},
		Related:    relatedOut,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength]
	}
	filters := search.Filters{
		Category:   q.Get("category"),
		Difficulty: content.Difficulty(q.Get("difficulty")),
		Tags:       q["tag"],
	}
	if filters.Category != "" && !s.repo.Schema().IsCategory(filters.Category) {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	results, err := search.Filter(r.Context(), s.repo, query, filters)
	if err != nil {
		s.fail(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": refs(results),
	})
}

func (s *Server) handleSearchIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := search.Build(r.Context(), s.repo)
	if err != nil {
		s.fail(w, r, "build search index", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := search.WriteJSON(w, entries); err != nil {
		s.logger.Warn("write search index", zap.Error(err))
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := constellation.Export(r.Context(), s.repo, "")
	if err != nil {
		s.fail(w, r, "build graph", err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func (s *Server) handleRandomArticle(w http.ResponseWriter, r *http.Request) {
	articles, err := s.repo.LoadAll(r.Context(), "")
	if err != nil {
		s.fail(w, r, "random article", err)
		return
	}
	if len(articles) == 0 {
		http.Redirect(w, r, s.cfg.BaseURL+"/", http.StatusFound)
		return
	}
	http.Redirect(w, r, s.cfg.BaseURL+articles[rand.IntN(len(articles))].Path(), http.StatusFound)
}

func (s *Server) handleRecentArticle(w http.ResponseWriter, r *http.Request) {
	articles, err := s.repo.LoadAll(r.Context(), "")
	if err != nil {
		s.fail(w, r, "recent article", err)
		return
	}
	var recent *content.Article
	for _, a := range articles {
		if recent == nil || a.Frontmatter.Updated > recent.Frontmatter.Updated {
			recent = a
		}
	}
	if recent == nil {
		http.Redirect(w, r, s.cfg.BaseURL+"/", http.StatusFound)
		return
	}
	http.Redirect(w, r, s.cfg.BaseURL+recent.Path(), http.StatusFound)
}

// fail maps not-found and invalid records to 404 and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, content.ErrInvalidFrontmatter):
		s.logger.Info(op, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, r.Context().Err()):
		s.logger.Debug(op, zap.String("path", r.URL.Path), zap.Error(err))
	default:
		s.logger.Error(op, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func refOf(a *content.Article) ArticleRef {
	return ArticleRef{
		Category:    a.Category,
		Slug:        a.Slug,
		Title:       a.Title(),
		Description: a.Frontmatter.Summary(),
		Difficulty:  a.Frontmatter.Difficulty,
		Updated:     a.Frontmatter.Updated,
		Path:        a.Path(),
	}
}

func refOrNil(a *content.Article) *ArticleRef {
	if a == nil {
		return nil
	}
	ref := refOf(a)
	return &ref
}

func refs(articles []*content.Article) []ArticleRef {
	out := make([]ArticleRef, len(articles))
	for i, a := range articles {
		out[i] = refOf(a)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
