package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	raw := `---
title: Gas
updated: 2024-02-10
readingTime: 4
toc: true
tags: [fees, evm]
infobox:
  unit: gwei
---
## Pricing

Gas is paid in ether.
`
	meta, body, err := ParseDocument([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Gas", meta["title"])
	assert.Equal(t, "2024-02-10", meta["updated"])
	assert.Equal(t, 4.0, meta["readingTime"])
	assert.Equal(t, true, meta["toc"])
	assert.Equal(t, []any{"fees", "evm"}, meta["tags"])
	assert.Equal(t, map[string]any{"unit": "gwei"}, meta["infobox"])
	assert.Equal(t, []string{"infobox", "readingTime", "tags", "title", "toc", "updated"}, meta.Keys())
	assert.Contains(t, body, "## Pricing")
	assert.NotContains(t, body, "title: Gas")
}

func TestParseDocumentKeepsTimestampsLiteral(t *testing.T) {
	raw := "---\nupdated: !!timestamp 2024-03-05\npublished: 2024-03-05T10:00:00Z\nnested:\n  - 2024-01-01\n---\n"
	meta, _, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", meta["updated"])
	assert.Equal(t, "2024-03-05T10:00:00Z", meta["published"])
	assert.Equal(t, []any{"2024-01-01"}, meta["nested"])
}

func TestParseDocumentWithoutBlock(t *testing.T) {
	meta, body, err := ParseDocument([]byte("# Just text\n"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "# Just text\n", body)
}

func TestParseDocumentMalformed(t *testing.T) {
	_, _, err := ParseDocument([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFrontmatter))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "syntax", verr.Violations[0].Rule)
}
