package content

import (
	"math"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// WordsPerMinute is the reading speed used for computed reading times.
const WordsPerMinute = 200

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// atxHeading matches a level 2 to 4 heading line that goldmark left inside
// an HTML block, such as a heading wrapped in a <Callout> component.
var atxHeading = regexp.MustCompile(`^ {0,3}(#{2,4})[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)

// Heading is a section title found in an article body.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func parseBody(body string) (ast.Node, []byte) {
	src := []byte(body)
	return markdown.Parser().Parse(text.NewReader(src)), src
}

// ExtractHeadings returns headings of level 2 to 4 in document order. A max
// of zero or less means no cap.
func ExtractHeadings(body string, max int) []Heading {
	doc, src := parseBody(body)
	headings := make([]Heading, 0)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch h := n.(type) {
		case *ast.Heading:
			if h.Level >= 2 && h.Level <= 4 {
				if title := strings.TrimSpace(inlineText(h, src)); title != "" {
					headings = append(headings, Heading{Level: h.Level, Text: title})
				}
			}
		case *ast.HTMLBlock:
			headings = append(headings, htmlBlockHeadings(h, src)...)
		default:
			return ast.WalkContinue, nil
		}
		if max > 0 && len(headings) >= max {
			headings = headings[:max]
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// htmlBlockHeadings scans the raw lines of a component block for headings.
// Raw text blocks (<pre>, <script>, <style>) and comments are not scanned.
func htmlBlockHeadings(block *ast.HTMLBlock, src []byte) []Heading {
	if block.HTMLBlockType == ast.HTMLBlockType1 || block.HTMLBlockType == ast.HTMLBlockType2 {
		return nil
	}
	var headings []Heading
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(src)), "\r\n")
		m := atxHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if title := strings.TrimSpace(m[2]); title != "" {
			headings = append(headings, Heading{Level: len(m[1]), Text: title})
		}
	}
	return headings
}

// HeadingTexts is ExtractHeadings without levels.
func HeadingTexts(body string, max int) []string {
	headings := ExtractHeadings(body, max)
	out := make([]string, len(headings))
	for i, h := range headings {
		out[i] = h.Text
	}
	return out
}

// ExtractLinks returns site-internal link destinations (leading "/", not
// protocol-relative) with query and fragment removed.
func ExtractLinks(body string) []string {
	doc, _ := parseBody(body)
	links := make([]string, 0)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		if dest, ok := internalPath(string(link.Destination)); ok {
			links = append(links, dest)
		}
		return ast.WalkContinue, nil
	})
	return links
}

// ExtractImages returns image destinations in document order.
func ExtractImages(body string) []string {
	doc, _ := parseBody(body)
	images := make([]string, 0)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			images = append(images, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return images
}

// CountWords counts whitespace separated words of the raw body.
func CountWords(body string) int {
	return len(strings.Fields(body))
}

// ReadingMinutes estimates reading time at WordsPerMinute, rounding up.
func ReadingMinutes(body string) int {
	words := CountWords(body)
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

func internalPath(dest string) (string, bool) {
	if !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") {
		return "", false
	}
	if idx := strings.IndexAny(dest, "#?"); idx >= 0 {
		dest = dest[:idx]
	}
	if dest == "" {
		return "", false
	}
	return dest, true
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, src))
		}
	}
	return b.String()
}
