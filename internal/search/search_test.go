package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResults(t *testing.T) {
	snippets := []Snippet{
		{Title: "First", URL: "https://example.com/1", Snippet: "one"},
		{Title: "Second", URL: "https://example.com/2", Snippet: "two"},
	}

	want := "Result 1:\n" +
		"Title: First\n" +
		"URL: https://example.com/1\n" +
		"Snippet: one\n\n" +
		"Result 2:\n" +
		"Title: Second\n" +
		"URL: https://example.com/2\n" +
		"Snippet: two\n"

	assert.Equal(t, want, FormatResults(snippets))
}

func TestFormatResults_Empty(t *testing.T) {
	assert.Equal(t, "", FormatResults(nil))
}
