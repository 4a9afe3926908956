package content

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugAllowed   = regexp.MustCompile(`^[a-z0-9_\-]+$`)
	dashRun       = regexp.MustCompile(`-+`)
	errEmptySlug  = errors.New("empty slug")
	errSlugPath   = errors.New("slug contains invalid path characters")
	errSlugFormat = errors.New("slug contains invalid characters")
)

// NormalizeSlug turns raw input (a URL segment or a file stem) into the
// canonical kebab-case slug, rejecting anything that could escape a
// category partition.
func NormalizeSlug(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if strings.ContainsAny(trimmed, "/\\?&:#'\"") || strings.Contains(trimmed, "..") {
		return "", errSlugPath
	}

	trimmed = stripDiacritics(trimmed)
	trimmed = strings.ReplaceAll(trimmed, "%20", " ")
	trimmed = normalizeRunes(trimmed)
	trimmed = dashRun.ReplaceAllString(trimmed, "-")
	trimmed = strings.Trim(trimmed, "-")

	if trimmed == "" {
		return "", errEmptySlug
	}
	if !slugAllowed.MatchString(trimmed) {
		return "", errSlugFormat
	}
	return trimmed, nil
}

func normalizeRunes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '_':
			b.WriteRune('_')
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	return b.String()
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return stripped
}

// CategoryLabel converts a category identifier into its display name.
func CategoryLabel(category string) string {
	words := strings.FieldsFunc(category, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}
