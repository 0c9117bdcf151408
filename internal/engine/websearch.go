package engine

import (
	"context"
	"fmt"

	"github.com/soyeahso/relay/internal/logging"
	"github.com/soyeahso/relay/internal/search"
)

// Augmenter appends web search results to a resolved prompt. Search is a
// best-effort enrichment step; any failure leaves the prompt unmodified and
// is surfaced as a warning rather than an error.
type Augmenter struct {
	svc search.Service
	log *logging.Logger
}

// NewAugmenter creates a web-search augmenter. svc may be nil when no search
// back-end is configured; Augment then degrades to a no-op with a warning.
func NewAugmenter(svc search.Service, log *logging.Logger) *Augmenter {
	return &Augmenter{svc: svc, log: log.Sub("engine.websearch")}
}

// Augment runs the resolved prompt verbatim as the search query and appends a
// formatted results block. The returned warning is empty on success.
func (a *Augmenter) Augment(ctx context.Context, prompt string) (string, string) {
	if a.svc == nil {
		warn := "web search requested but no search provider is configured"
		a.log.Warn().Msg(warn)
		return prompt, warn
	}

	results, err := a.svc.Search(ctx, prompt)
	if err != nil {
		warn := fmt.Sprintf("web search failed: %s", err.Error())
		a.log.Warn().Err(err).Msg("search request failed")
		return prompt, warn
	}
	if len(results) == 0 {
		warn := "web search returned no results"
		a.log.Warn().Msg(warn)
		return prompt, warn
	}

	a.log.Debug().Int("results", len(results)).Msg("search results appended")
	return prompt + "\n\nWeb search results:\n" + search.FormatResults(results), ""
}
