package content

// Article is one loaded and validated record.
type Article struct {
	Category    string      `json:"category"`
	Slug        string      `json:"slug"`
	Frontmatter Frontmatter `json:"frontmatter"`
	Body        string      `json:"-"`
	// ReadingTime is the explicit readingTime, or the body estimate when absent.
	ReadingTime float64 `json:"readingTime"`
}

// Key is the "category/slug" primary key.
func (a *Article) Key() string {
	return a.Category + "/" + a.Slug
}

// Path is the site path of the article.
func (a *Article) Path() string {
	return "/" + a.Category + "/" + a.Slug
}

// Title is shorthand for the frontmatter title.
func (a *Article) Title() string {
	return a.Frontmatter.Title
}

// HasTag reports whether the article carries tag.
func (a *Article) HasTag(tag string) bool {
	for _, t := range a.Frontmatter.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func newArticle(category, slug string, fm Frontmatter, body string) *Article {
	a := &Article{Category: category, Slug: slug, Frontmatter: fm, Body: body}
	if fm.ReadingTime != nil {
		a.ReadingTime = *fm.ReadingTime
	} else {
		a.ReadingTime = float64(ReadingMinutes(body))
	}
	return a
}
