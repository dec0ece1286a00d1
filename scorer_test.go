package cssync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheet(path, content string) *StylesheetFile {
	return &StylesheetFile{Path: path, RawContent: content, Rules: Parse(content)}
}

func TestScoreExactMatch(t *testing.T) {
	cfg := DefaultMatcherConfig()
	assert.Equal(t, ExactMatchScore, Score(".btn", ".btn", []string{"btn"}, cfg))
	assert.Equal(t, ExactMatchScore, Score("div > .a", "div > .a", nil, cfg))
	// Raw equality only; normalization does not apply to the short-circuit.
	assert.NotEqual(t, ExactMatchScore, Score("div  >  .a", "div > .a", nil, cfg))
}

func TestScoreClassContainment(t *testing.T) {
	cfg := DefaultMatcherConfig()

	// ".btn" appears in the rule selector: +30. The variation token ".btn"
	// is not among the rule's tokens, so no token bonus.
	assert.Equal(t, 30, Score(".btn-primary", ".btn", []string{"btn"}, cfg))

	// Both classes contained: +60; token ".btn" also present: +20.
	assert.Equal(t, 80, Score(".btn .btn-primary", ".btn", []string{"btn", "btn-primary"}, cfg))
}

func TestScoreTokenOverlap(t *testing.T) {
	cfg := DefaultMatcherConfig()

	// No classes given; ".content" is a token of both: +20.
	assert.Equal(t, 20, Score(".nav > .content", ".content", nil, cfg))

	// Two shared tokens: +40.
	assert.Equal(t, 40, Score("div .content", "div .content extra", nil, cfg))
}

func TestScoreShortSelectorPenalty(t *testing.T) {
	cfg := DefaultMatcherConfig()
	assert.Equal(t, 0, Score("a", ".link", []string{"link"}, cfg))
	assert.Equal(t, 0, Score("*", ".anything", nil, cfg))
}

func TestScoreWhitespaceNormalization(t *testing.T) {
	cfg := DefaultMatcherConfig()
	// Collapsed whitespace lets tokens line up: "div" and ".a" both match.
	assert.Equal(t, 40, Score("div   >   .a", "div > .a", nil, cfg))
}

func TestFindBestMatchExactWins(t *testing.T) {
	cfg := DefaultMatcherConfig()
	space := []*StylesheetFile{
		sheet("/p/a.css", ".btn-primary { margin: 0; }\n.btn { color: red; }"),
	}
	vars := GenerateVariations(ChangeEvent{
		Selector:  ".btn",
		ClassList: []string{"btn"},
	})

	match, ok := FindBestMatch(vars, []string{"btn"}, space, cfg)
	require.True(t, ok)
	assert.Equal(t, ".btn", match.Rule.Selector)
	assert.Equal(t, ExactMatchScore, match.Score)
	assert.Equal(t, "/p/a.css", match.Path)
}

func TestFindBestMatchEvaluatesFullCrossProduct(t *testing.T) {
	// The best pair must win even when it comes from a lower-priority
	// variation: variation priority seeds generation order only.
	cfg := DefaultMatcherConfig()
	space := []*StylesheetFile{
		sheet("/p/a.css", ".btn { font-size: 14px; }\n.btn-primary { margin: 0; }"),
	}
	vars := GenerateVariations(ChangeEvent{
		Selector:  "div > button",
		ClassList: []string{"btn", "btn-primary"},
	})

	match, ok := FindBestMatch(vars, []string{"btn", "btn-primary"}, space, cfg)
	require.True(t, ok)
	// Both rules match their own class variation exactly (100); the tie
	// keeps the first-found rule in scan order.
	assert.Equal(t, ".btn", match.Rule.Selector)
	assert.Equal(t, ExactMatchScore, match.Score)
}

func TestFindBestMatchThresholdGate(t *testing.T) {
	cfg := DefaultMatcherConfig()
	space := []*StylesheetFile{
		sheet("/p/a.css", ".unrelated { color: red; }\n.card-primary { margin: 0; }"),
	}
	vars := GenerateVariations(ChangeEvent{
		Selector:  ".new-component",
		ClassList: nil,
	})

	_, ok := FindBestMatch(vars, nil, space, cfg)
	assert.False(t, ok, "scores at or below the threshold must report no match")
}

func TestFindBestMatchScoreJustAboveThreshold(t *testing.T) {
	cfg := DefaultMatcherConfig()
	// ".btn" contained (+30) and token overlap on ".btn" (+20) would be
	// exactly 50 — not enough. An exact containment of two classes (+60)
	// crosses the gate.
	space := []*StylesheetFile{
		sheet("/p/a.css", ".btn.btn-large { padding: 8px; }"),
	}
	vars := []SelectorVariation{{Selector: ".none-of-these", Priority: 1, Kind: VariationOriginal}}

	match, ok := FindBestMatch(vars, []string{"btn", "btn-large"}, space, cfg)
	require.True(t, ok)
	assert.Equal(t, 60, match.Score)
}

func TestFindBestMatchEmptySpace(t *testing.T) {
	vars := []SelectorVariation{{Selector: ".a", Priority: 1}}
	_, ok := FindBestMatch(vars, nil, nil, DefaultMatcherConfig())
	assert.False(t, ok)
}

func TestFindBestMatchStableTieAcrossFiles(t *testing.T) {
	cfg := DefaultMatcherConfig()
	space := []*StylesheetFile{
		sheet("/p/first.css", ".btn { color: red; }"),
		sheet("/p/second.css", ".btn { color: green; }"),
	}
	vars := []SelectorVariation{{Selector: ".btn", Priority: 10}}

	match, ok := FindBestMatch(vars, []string{"btn"}, space, cfg)
	require.True(t, ok)
	assert.Equal(t, "/p/first.css", match.Path, "ties keep the first file in insertion order")
}
