package content

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Meta is the decoded metadata block of a document. Leaves are restricted to
// string, float64, bool and nil; containers are []any and map[string]any.
type Meta map[string]any

// Keys returns the field names in sorted order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var yamlBlock = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// ParseDocument splits raw into its metadata block and body. Documents
// without a metadata block yield an empty Meta and the full input as body.
func ParseDocument(raw []byte) (Meta, string, error) {
	decoded := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &decoded, yamlBlock)
	if err != nil {
		verr := &ValidationError{}
		verr.add("", "syntax", fmt.Sprintf("metadata block is not valid YAML: %v", err))
		return nil, "", verr
	}

	meta := make(Meta, len(decoded))
	for k, v := range decoded {
		meta[k] = normalizeValue(v)
	}
	return meta, string(body), nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}
