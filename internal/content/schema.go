package content

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Difficulty is the ordinal reading level of an article.
type Difficulty string

const (
	DifficultyIntro        Difficulty = "intro"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// DefaultCategories is the category enumeration used when a schema is built
// without an explicit list.
var DefaultCategories = []string{"background", "concepts", "ethereum"}

// Source is one cited reference.
type Source struct {
	Title  string `yaml:"title" json:"title" validate:"required"`
	URL    string `yaml:"url" json:"url" validate:"required,url"`
	Author string `yaml:"author,omitempty" json:"author,omitempty"`
}

// Frontmatter is the validated metadata of an article.
type Frontmatter struct {
	Title         string            `json:"title"`
	Description   *string           `json:"description,omitempty"`
	Category      string            `json:"category,omitempty"`
	Subcategory   []string          `json:"subcategory,omitempty"`
	Tags          []string          `json:"tags"`
	Difficulty    Difficulty        `json:"difficulty"`
	Parent        string            `json:"parent,omitempty"`
	Updated       string            `json:"updated"`
	ReadingTime   *float64          `json:"readingTime,omitempty"`
	Sources       []Source          `json:"sources,omitempty"`
	Related       []string          `json:"related"`
	Prerequisites []string          `json:"prerequisites,omitempty"`
	Hero          string            `json:"hero,omitempty"`
	Infobox       map[string]string `json:"infobox,omitempty"`
	TOC           bool              `json:"toc"`
	Extra         map[string]any    `json:"extra,omitempty"`
}

// Summary returns the description or an empty string.
func (f Frontmatter) Summary() string {
	if f.Description == nil {
		return ""
	}
	return *f.Description
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindStringList
	kindBool
	kindNumber
	kindStringMap
	kindSourceList
)

func (k fieldKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindStringList:
		return "list of strings"
	case kindBool:
		return "boolean"
	case kindNumber:
		return "number"
	case kindStringMap:
		return "map of strings"
	case kindSourceList:
		return "list of sources"
	default:
		return "unknown"
	}
}

// fieldSpec declares one recognised metadata field. rule is a validator tag
// applied to the value, or to each item for list kinds.
type fieldSpec struct {
	name     string
	kind     fieldKind
	required bool
	rule     string
	def      func(fm *Frontmatter)
	assign   func(fm *Frontmatter, v any)
}

func (s fieldSpec) requiredAs(required bool) fieldSpec {
	s.required = required
	return s
}

var primaryFields = []fieldSpec{
	{name: "title", kind: kindString, required: true, rule: "required",
		assign: func(fm *Frontmatter, v any) { fm.Title = v.(string) }},
	{name: "description", kind: kindString, rule: "min=10",
		assign: func(fm *Frontmatter, v any) { s := v.(string); fm.Description = &s }},
	{name: "category", kind: kindString, rule: "category",
		assign: func(fm *Frontmatter, v any) { fm.Category = v.(string) }},
	{name: "subcategory", kind: kindStringList, rule: "required",
		assign: func(fm *Frontmatter, v any) { fm.Subcategory = v.([]string) }},
	{name: "tags", kind: kindStringList, rule: "required",
		def:    func(fm *Frontmatter) { fm.Tags = []string{} },
		assign: func(fm *Frontmatter, v any) { fm.Tags = dedupe(v.([]string)) }},
	{name: "difficulty", kind: kindString, rule: "oneof=intro intermediate advanced",
		def:    func(fm *Frontmatter) { fm.Difficulty = DifficultyIntro },
		assign: func(fm *Frontmatter, v any) { fm.Difficulty = Difficulty(v.(string)) }},
	{name: "parent", kind: kindString,
		assign: func(fm *Frontmatter, v any) { fm.Parent = v.(string) }},
	{name: "updated", kind: kindString, required: true, rule: "datepattern",
		assign: func(fm *Frontmatter, v any) { fm.Updated = v.(string) }},
	{name: "readingTime", kind: kindNumber, rule: "gt=0",
		assign: func(fm *Frontmatter, v any) { n := v.(float64); fm.ReadingTime = &n }},
	{name: "sources", kind: kindSourceList,
		assign: func(fm *Frontmatter, v any) { fm.Sources = v.([]Source) }},
	{name: "related", kind: kindStringList, rule: "required",
		def:    func(fm *Frontmatter) { fm.Related = []string{} },
		assign: func(fm *Frontmatter, v any) { fm.Related = v.([]string) }},
	{name: "prerequisites", kind: kindStringList, rule: "required",
		assign: func(fm *Frontmatter, v any) { fm.Prerequisites = v.([]string) }},
	{name: "hero", kind: kindString,
		assign: func(fm *Frontmatter, v any) { fm.Hero = v.(string) }},
	{name: "infobox", kind: kindStringMap,
		assign: func(fm *Frontmatter, v any) { fm.Infobox = v.(map[string]string) }},
	{name: "toc", kind: kindBool,
		def:    func(fm *Frontmatter) { fm.TOC = true },
		assign: func(fm *Frontmatter, v any) { fm.TOC = v.(bool) }},
}

// partialFields relaxes the primary table for migration workflows: only
// title and category are mandatory.
var partialFields = func() []fieldSpec {
	out := make([]fieldSpec, len(primaryFields))
	for i, f := range primaryFields {
		switch f.name {
		case "title", "category":
			out[i] = f.requiredAs(true)
		default:
			out[i] = f.requiredAs(false)
		}
	}
	return out
}()

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Schema validates metadata blocks against the frontmatter contract.
type Schema struct {
	categories []string
	validate   *validator.Validate
}

// NewSchema builds a schema accepting the given categories, or
// DefaultCategories when none are given.
func NewSchema(categories ...string) *Schema {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	s := &Schema{
		categories: slices.Clone(categories),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	s.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = s.validate.RegisterValidation("datepattern", func(fl validator.FieldLevel) bool {
		return datePattern.MatchString(fl.Field().String())
	})
	_ = s.validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return s.IsCategory(fl.Field().String())
	})
	return s
}

// Categories returns the accepted category enumeration.
func (s *Schema) Categories() []string {
	return slices.Clone(s.categories)
}

// IsCategory reports whether name belongs to the enumeration.
func (s *Schema) IsCategory(name string) bool {
	return slices.Contains(s.categories, name)
}

// Validate checks meta against the full contract, applying defaults to
// absent optional fields. Every violation is reported in one
// *ValidationError tagged with sourceID.
func (s *Schema) Validate(meta Meta, sourceID string) (Frontmatter, error) {
	return s.check(primaryFields, meta, sourceID)
}

// ValidatePartial checks meta for bulk migrations: only title and category
// are required, present fields still obey their type and format rules.
func (s *Schema) ValidatePartial(meta Meta, sourceID string) (Frontmatter, error) {
	return s.check(partialFields, meta, sourceID)
}

func (s *Schema) check(fields []fieldSpec, meta Meta, sourceID string) (Frontmatter, error) {
	var fm Frontmatter
	verr := &ValidationError{SourceID: sourceID}
	known := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		known[f.name] = struct{}{}
		raw, present := meta[f.name]
		if !present {
			if f.required {
				verr.add(f.name, "required", "is required")
			} else if f.def != nil {
				f.def(&fm)
			}
			continue
		}

		value, ok := s.decodeField(f, raw, verr)
		if !ok {
			continue
		}
		if f.required && isBlank(value) {
			verr.add(f.name, "required", "must not be empty")
			continue
		}
		if !s.checkRules(f, value, verr) {
			continue
		}
		f.assign(&fm, value)
	}

	for _, key := range meta.Keys() {
		if _, ok := known[key]; ok {
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]any)
		}
		fm.Extra[key] = meta[key]
	}

	if err := verr.orNil(); err != nil {
		return Frontmatter{}, err
	}
	return fm, nil
}

// decodeField type-checks raw against the field kind.
func (s *Schema) decodeField(f fieldSpec, raw any, verr *ValidationError) (any, bool) {
	mismatch := func(path string, got any, want string) {
		verr.add(path, "type", fmt.Sprintf("expected %s, got %s", want, typeName(got)))
	}

	switch f.kind {
	case kindString:
		v, ok := raw.(string)
		if !ok {
			mismatch(f.name, raw, f.kind.String())
		}
		return v, ok
	case kindBool:
		v, ok := raw.(bool)
		if !ok {
			mismatch(f.name, raw, f.kind.String())
		}
		return v, ok
	case kindNumber:
		v, ok := raw.(float64)
		if !ok {
			mismatch(f.name, raw, f.kind.String())
		}
		return v, ok
	case kindStringList:
		items, ok := raw.([]any)
		if !ok {
			mismatch(f.name, raw, f.kind.String())
			return nil, false
		}
		out := make([]string, 0, len(items))
		valid := true
		for i, item := range items {
			str, ok := item.(string)
			if !ok {
				mismatch(fmt.Sprintf("%s.%d", f.name, i), item, "string")
				valid = false
				continue
			}
			out = append(out, str)
		}
		return out, valid
	case kindStringMap:
		entries, ok := raw.(map[string]any)
		if !ok {
			mismatch(f.name, raw, f.kind.String())
			return nil, false
		}
		out := make(map[string]string, len(entries))
		valid := true
		for k, item := range entries {
			str, ok := item.(string)
			if !ok {
				mismatch(f.name+"."+k, item, "string")
				valid = false
				continue
			}
			out[k] = str
		}
		return out, valid
	case kindSourceList:
		items, ok := raw.([]any)
		if !ok {
			mismatch(f.name, raw, f.kind.String())
			return nil, false
		}
		out := make([]Source, 0, len(items))
		valid := true
		for i, item := range items {
			path := fmt.Sprintf("%s.%d", f.name, i)
			entry, ok := item.(map[string]any)
			if !ok {
				mismatch(path, item, "source object")
				valid = false
				continue
			}
			var src Source
			fields := []struct {
				key    string
				target *string
			}{{"title", &src.Title}, {"url", &src.URL}, {"author", &src.Author}}
			for _, field := range fields {
				key, target := field.key, field.target
				v, present := entry[key]
				if !present {
					continue
				}
				str, ok := v.(string)
				if !ok {
					mismatch(path+"."+key, v, "string")
					valid = false
					continue
				}
				*target = str
			}
			out = append(out, src)
		}
		return out, valid
	}
	return nil, false
}

// checkRules applies the validator tags and records violations.
func (s *Schema) checkRules(f fieldSpec, value any, verr *ValidationError) bool {
	before := len(verr.Violations)

	switch f.kind {
	case kindStringList:
		if f.rule == "" {
			break
		}
		for i, item := range value.([]string) {
			s.recordVar(fmt.Sprintf("%s.%d", f.name, i), item, f.rule, verr)
		}
	case kindSourceList:
		for i, src := range value.([]Source) {
			err := s.validate.Struct(src)
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					verr.add(fmt.Sprintf("%s.%d.%s", f.name, i, fe.Field()), fe.Tag(), s.describe(fe))
				}
			}
		}
	default:
		if f.rule != "" {
			s.recordVar(f.name, value, f.rule, verr)
		}
	}

	return len(verr.Violations) == before
}

func (s *Schema) recordVar(path string, value any, rule string, verr *ValidationError) {
	err := s.validate.Var(value, rule)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		verr.add(path, fe.Tag(), s.describe(fe))
	}
}

func (s *Schema) describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a valid URL"
	case "datepattern":
		return "must be a date in YYYY-MM-DD format"
	case "category":
		return fmt.Sprintf("must be one of [%s]", strings.Join(s.categories, " "))
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
