package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/news"
)

const llmSystemPrompt = "You are a news research assistant. Answer with a JSON array only, no prose."

type LLMSearchOptions struct {
	MaxRequests        int
	MaxItemsPerRequest int
	Timeout            time.Duration
}

// LLMSearch asks a generative backend for recent articles about batches of
// companies.
type LLMSearch struct {
	generator Generator
	opts      LLMSearchOptions
	logger    zerolog.Logger
}

func NewLLMSearch(generator Generator, opts LLMSearchOptions, logger zerolog.Logger) *LLMSearch {
	if opts.MaxRequests < 1 {
		opts.MaxRequests = 8
	}
	if opts.MaxItemsPerRequest < 1 {
		opts.MaxItemsPerRequest = 10
	}
	return &LLMSearch{
		generator: generator,
		opts:      opts,
		logger:    logger.With().Str("source", NameLLMSearch).Logger(),
	}
}

func (s *LLMSearch) Name() string {
	return NameLLMSearch
}

func (s *LLMSearch) Fetch(ctx context.Context, aliases []string, since time.Time) ([]news.CandidateItem, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("%s: generative backend is not configured", NameLLMSearch)
	}

	batches := batchAliases(aliases, s.opts.MaxRequests)
	var (
		items []news.CandidateItem
		errs  []error
	)
	for i, batch := range batches {
		batchItems, err := s.fetchBatch(ctx, batch, since)
		if err != nil {
			s.logger.Warn().Err(err).Int("batch", i).Strs("companies", batch).Msg("batch request failed")
			errs = append(errs, fmt.Errorf("batch %d (%s): %w", i, strings.Join(batch, ", "), err))
			continue
		}
		items = append(items, batchItems...)
	}

	if err := batchFailure(len(batches), errs); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *LLMSearch) fetchBatch(ctx context.Context, companies []string, since time.Time) ([]news.CandidateItem, error) {
	callCtx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.generator.Generate(callCtx, llmSystemPrompt, buildSearchPrompt(companies, since, s.opts.MaxItemsPerRequest))
	if err != nil {
		return nil, err
	}

	parsed := ParseArticles(text, companies, globaltime.UTC())
	if parsed.Fallback {
		s.logger.Warn().
			Strs("companies", companies).
			Int("urls", len(parsed.Items)).
			Msg("response was not JSON, using url fallback")
	}
	for _, rejected := range parsed.Rejected {
		s.logger.Debug().Err(rejected.Err).Int("element", rejected.Index).Msg("dropped invalid element")
	}

	for i := range parsed.Items {
		if parsed.Items[i].CompanyMention == "" {
			parsed.Items[i].CompanyMention = firstCompanyIn(parsed.Items[i].Title, companies)
		}
	}
	return parsed.Items, nil
}

func buildSearchPrompt(companies []string, since time.Time, maxItems int) string {
	return fmt.Sprintf(`Find up to %d news articles published on or after %s about these companies: %s.

Return a JSON array. Each element must have:
- "title": the headline
- "url": the canonical article URL
- "source_domain": the publisher domain, e.g. "reuters.com"
- "published_at": ISO-8601 publication time
- "company_mentioned": which of the companies above the article is about

Only include articles you can cite with a real URL. Return [] if there are none.`,
		maxItems,
		since.UTC().Format("2006-01-02"),
		strings.Join(companies, ", "),
	)
}
