package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMarkdown_Sections(t *testing.T) {
	doc := `# Binary Search

Halve the range on every comparison.

## Example

Searching 7 in [1 3 5 7 9].

## Practice Problems

## Summary

O(log n) time.
`
	got := SplitMarkdown(doc, 0)
	require.Len(t, got, 3, "heading-only sections are dropped")

	assert.Equal(t, "Binary Search", got[0].Heading)
	assert.Equal(t, "concept", got[0].Type)
	assert.Contains(t, got[0].Content, "Halve the range")

	assert.Equal(t, "example", got[1].Type)
	assert.Equal(t, "summary", got[2].Type)
}

func TestSplitMarkdown_IgnoresHeadingsInFences(t *testing.T) {
	doc := "# Shell\n\nRun this:\n\n```sh\n# not a heading\necho hi\n```\n"
	got := SplitMarkdown(doc, 0)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "# not a heading")
}

func TestSplitMarkdown_PacksToLimit(t *testing.T) {
	para := strings.Repeat("word ", 30) // 150 chars
	doc := "# Long\n\n" + strings.Repeat(para+"\n\n", 10)

	got := SplitMarkdown(doc, 400)
	require.Greater(t, len(got), 1)
	for _, p := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(p.Content), 400)
	}
}

func TestSplitText_HardSplitsLongParagraphs(t *testing.T) {
	got := SplitText(strings.Repeat("é", 250), 100)
	require.Len(t, got, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(got[0].Content))
	assert.Equal(t, 50, utf8.RuneCountInString(got[2].Content))
}

func TestSplitText_Empty(t *testing.T) {
	assert.Empty(t, SplitText("  \n\n  ", 100))
}

func TestClassifyHeading(t *testing.T) {
	tests := map[string]string{
		"Worked Example":        "example",
		"Practice":              "problem",
		"Key Points":            "summary",
		"Interview Questions":   "interview",
		"Introduction to Heaps": "concept",
		"":                      "concept",
	}
	for heading, want := range tests {
		assert.Equal(t, want, classifyHeading(heading), heading)
	}
}
