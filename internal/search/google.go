package search

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// GoogleClient implements Service against the Google Custom Search JSON API.
type GoogleClient struct {
	svc        *customsearch.Service
	engineID   string
	maxResults int
}

// NewGoogleClient creates a Custom Search client. engineID is the search
// engine ID (cx); maxResults is clamped to the API limit of 10.
func NewGoogleClient(ctx context.Context, apiKey, engineID string, maxResults int) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	if engineID == "" {
		return nil, fmt.Errorf("search engine ID is required")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if maxResults > 10 {
		maxResults = 10
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating customsearch service: %w", err)
	}

	return &GoogleClient{
		svc:        svc,
		engineID:   engineID,
		maxResults: maxResults,
	}, nil
}

// Search runs the query and returns ranked snippets.
func (g *GoogleClient) Search(ctx context.Context, query string) ([]Snippet, error) {
	resp, err := g.svc.Cse.List().
		Cx(g.engineID).
		Q(query).
		Num(int64(g.maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}

	snippets := make([]Snippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		snippets = append(snippets, Snippet{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return snippets, nil
}
