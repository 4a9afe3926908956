package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMeta(t *testing.T, doc string) Meta {
	t.Helper()
	meta, _, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	return meta
}

func TestValidateAppliesDefaultsOnly(t *testing.T) {
	meta := mustMeta(t, "---\ntitle: Merkle Trees\nupdated: 2024-03-01\n---\nbody\n")

	fm, err := NewSchema().Validate(meta, "concepts/merkle-trees")
	require.NoError(t, err)

	want := Frontmatter{
		Title:      "Merkle Trees",
		Updated:    "2024-03-01",
		Tags:       []string{},
		Difficulty: DifficultyIntro,
		Related:    []string{},
		TOC:        true,
	}
	assert.Equal(t, want, fm)
}

func TestValidateKeepsPresentValues(t *testing.T) {
	meta := mustMeta(t, `---
title: Proof of Stake
description: How validators secure the chain.
category: ethereum
tags: [consensus, staking, consensus]
difficulty: advanced
parent: consensus
updated: "2024-05-20"
readingTime: 7
related: [concepts/merkle-trees, slashing]
prerequisites: [proof-of-work]
toc: false
infobox:
  launched: "2022"
sources:
  - title: Gasper
    url: https://arxiv.org/abs/2003.03052
    author: Buterin
published: 2020-01-01
---
text`)

	fm, err := NewSchema().Validate(meta, "ethereum/proof-of-stake")
	require.NoError(t, err)

	assert.Equal(t, "How validators secure the chain.", fm.Summary())
	assert.Equal(t, []string{"consensus", "staking"}, fm.Tags)
	assert.Equal(t, DifficultyAdvanced, fm.Difficulty)
	assert.Equal(t, "consensus", fm.Parent)
	require.NotNil(t, fm.ReadingTime)
	assert.Equal(t, 7.0, *fm.ReadingTime)
	assert.Equal(t, []string{"concepts/merkle-trees", "slashing"}, fm.Related)
	assert.Equal(t, []string{"proof-of-work"}, fm.Prerequisites)
	assert.False(t, fm.TOC)
	assert.Equal(t, map[string]string{"launched": "2022"}, fm.Infobox)
	require.Len(t, fm.Sources, 1)
	assert.Equal(t, "Buterin", fm.Sources[0].Author)
	assert.Equal(t, "2020-01-01", fm.Extra["published"])
}

func TestValidateAggregatesViolations(t *testing.T) {
	meta := mustMeta(t, `---
description: short
difficulty: expert
updated: yesterday
readingTime: -2
toc: "yes"
tags: [ok, 3]
sources:
  - title: Missing url
---
`)

	_, err := NewSchema().Validate(meta, "concepts/broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFrontmatter))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "concepts/broken", verr.SourceID)
	for _, path := range []string{"title", "description", "difficulty", "updated", "readingTime", "toc", "tags.1", "sources.0.url"} {
		assert.True(t, verr.Has(path), "expected violation for %s in %v", path, verr.Violations)
	}
	assert.Contains(t, err.Error(), "concepts/broken")
}

func TestValidateNeverCoercesPresentInvalid(t *testing.T) {
	meta := mustMeta(t, "---\ntitle: T\nupdated: 2024-01-01\ndifficulty: null\n---\n")

	_, err := NewSchema().Validate(meta, "x")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "difficulty", verr.Violations[0].Path)
	assert.Equal(t, "type", verr.Violations[0].Rule)
}

func TestValidateRejectsBlankTitle(t *testing.T) {
	meta := mustMeta(t, "---\ntitle: \"  \"\nupdated: 2024-01-01\n---\n")

	_, err := NewSchema().Validate(meta, "x")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("title"))
}

func TestValidateCategoryEnum(t *testing.T) {
	schema := NewSchema("guides", "reference")
	meta := mustMeta(t, "---\ntitle: T\nupdated: 2024-01-01\ncategory: concepts\n---\n")

	_, err := schema.Validate(meta, "x")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("category"))
	assert.Equal(t, []string{"guides", "reference"}, schema.Categories())
	assert.True(t, schema.IsCategory("guides"))
}

func TestValidatePartial(t *testing.T) {
	schema := NewSchema()

	t.Run("title and category suffice", func(t *testing.T) {
		meta := mustMeta(t, "---\ntitle: Draft\ncategory: background\n---\n")
		fm, err := schema.ValidatePartial(meta, "background/draft")
		require.NoError(t, err)
		assert.Equal(t, "Draft", fm.Title)
		assert.Equal(t, "background", fm.Category)
		assert.Empty(t, fm.Updated)
	})

	t.Run("category required", func(t *testing.T) {
		meta := mustMeta(t, "---\ntitle: Draft\nupdated: 2024-01-01\n---\n")
		_, err := schema.ValidatePartial(meta, "background/draft")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("category"))
		assert.False(t, verr.Has("updated"))
	})

	t.Run("present fields still checked", func(t *testing.T) {
		meta := mustMeta(t, "---\ntitle: Draft\ncategory: background\nupdated: soon\n---\n")
		_, err := schema.ValidatePartial(meta, "background/draft")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("updated"))
	})

	t.Run("primary contract unchanged", func(t *testing.T) {
		meta := mustMeta(t, "---\ntitle: Draft\ncategory: background\n---\n")
		_, err := schema.Validate(meta, "background/draft")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("updated"))
	})
}
