package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/relay/internal/logging"
	"github.com/soyeahso/relay/internal/search"
)

type fakeSearch struct {
	results []search.Snippet
	err     error
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]search.Snippet, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestAugment_AppendsResults(t *testing.T) {
	svc := &fakeSearch{results: []search.Snippet{
		{Title: "Go", URL: "https://go.dev", Snippet: "the go website"},
	}}
	a := NewAugmenter(svc, logging.New(nil, "silent"))

	out, warn := a.Augment(context.Background(), "latest go release")
	assert.Empty(t, warn)
	assert.Equal(t, []string{"latest go release"}, svc.queries)
	assert.Contains(t, out, "latest go release\n\nWeb search results:\n")
	assert.Contains(t, out, "Title: Go")
}

func TestAugment_ErrorLeavesPromptUnmodified(t *testing.T) {
	svc := &fakeSearch{err: errors.New("timeout")}
	a := NewAugmenter(svc, logging.New(nil, "silent"))

	out, warn := a.Augment(context.Background(), "query")
	assert.Equal(t, "query", out)
	assert.Contains(t, warn, "web search failed")
	assert.Contains(t, warn, "timeout")
}

func TestAugment_EmptyResults(t *testing.T) {
	a := NewAugmenter(&fakeSearch{}, logging.New(nil, "silent"))

	out, warn := a.Augment(context.Background(), "query")
	assert.Equal(t, "query", out)
	assert.Contains(t, warn, "no results")
}

func TestAugment_NoServiceConfigured(t *testing.T) {
	a := NewAugmenter(nil, logging.New(nil, "silent"))

	out, warn := a.Augment(context.Background(), "query")
	assert.Equal(t, "query", out)
	assert.Contains(t, warn, "no search provider")
}
