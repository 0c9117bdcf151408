// Package search is the web-search service boundary used by the search tool.
package search

import (
	"context"
	"fmt"
	"strings"
)

// Snippet is one ranked search result.
type Snippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Service performs a web search and returns ranked result snippets.
type Service interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
}

// FormatResults renders snippets in the block format appended to prompts.
func FormatResults(snippets []Snippet) string {
	var b strings.Builder
	for i, s := range snippets {
		fmt.Fprintf(&b, "Result %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
		fmt.Fprintf(&b, "URL: %s\n", s.URL)
		fmt.Fprintf(&b, "Snippet: %s\n\n", s.Snippet)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
