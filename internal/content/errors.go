package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals that a (category, slug) pair has no backing record.
	ErrNotFound = errors.New("content not found")
	// ErrInvalidFrontmatter signals that a record exists but fails schema validation.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")
)

// Violation describes one failed field constraint.
type Violation struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "(document)"
	}
	return fmt.Sprintf("%s: %s", path, v.Message)
}

// ValidationError aggregates every violation found in a single record.
type ValidationError struct {
	SourceID   string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid frontmatter")
	if e.SourceID != "" {
		b.WriteString(" in ")
		b.WriteString(e.SourceID)
	}
	b.WriteString(":")
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrInvalidFrontmatter.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidFrontmatter
}

// Has reports whether any violation is recorded for path.
func (e *ValidationError) Has(path string) bool {
	for _, v := range e.Violations {
		if v.Path == path {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(path, rule, message string) {
	e.Violations = append(e.Violations, Violation{Path: path, Rule: rule, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

func notFound(category, slug string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, category, slug)
}
