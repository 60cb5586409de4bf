package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/news"
)

const (
	DefaultPerplexityEndpoint = "https://api.perplexity.ai/chat/completions"
	DefaultPerplexityModel    = "llama-3.1-sonar-small-128k-online"
)

// DefaultPerplexityDomains is the allow-list sent as search_domain_filter.
var DefaultPerplexityDomains = []string{
	"techcrunch.com",
	"theverge.com",
	"engadget.com",
	"androidcentral.com",
	"reuters.com",
	"bloomberg.com",
	"cnbc.com",
	"wsj.com",
}

type PerplexityOptions struct {
	Endpoint    string
	APIKey      string
	Model       string
	Domains     []string
	MaxRequests int
	Timeout     time.Duration
}

// Perplexity is the legacy search source. It batches companies the same way
// LLMSearch does but restricts results to an allow-list of outlets.
type Perplexity struct {
	opts   PerplexityOptions
	client *http.Client
	logger zerolog.Logger
}

func NewPerplexity(opts PerplexityOptions, logger zerolog.Logger) (*Perplexity, error) {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.APIKey == "" {
		return nil, fmt.Errorf("PPLX_API_KEY is required for the %s source", NamePerplexity)
	}
	if strings.TrimSpace(opts.Endpoint) == "" {
		opts.Endpoint = DefaultPerplexityEndpoint
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultPerplexityModel
	}
	if len(opts.Domains) == 0 {
		opts.Domains = DefaultPerplexityDomains
	}
	if opts.MaxRequests < 1 {
		opts.MaxRequests = 8
	}
	return &Perplexity{
		opts:   opts,
		client: newHTTPClient(),
		logger: logger.With().Str("source", NamePerplexity).Logger(),
	}, nil
}

func (p *Perplexity) Name() string {
	return NamePerplexity
}

func (p *Perplexity) Fetch(ctx context.Context, aliases []string, since time.Time) ([]news.CandidateItem, error) {
	batches := batchAliases(aliases, p.opts.MaxRequests)
	var (
		items []news.CandidateItem
		errs  []error
	)
	for i, batch := range batches {
		text, err := p.complete(ctx, buildPerplexityPrompt(batch, since))
		if err != nil {
			p.logger.Warn().Err(err).Int("batch", i).Strs("companies", batch).Msg("batch request failed")
			errs = append(errs, fmt.Errorf("batch %d (%s): %w", i, strings.Join(batch, ", "), err))
			continue
		}

		parsed := ParseArticles(text, batch, globaltime.UTC())
		if parsed.Fallback {
			p.logger.Warn().Strs("companies", batch).Int("urls", len(parsed.Items)).Msg("response was not JSON, using url fallback")
		}
		for _, item := range parsed.Items {
			if item.CompanyMention == "" {
				item.CompanyMention = companyFromTitle(item.Title, batch)
			}
			items = append(items, item)
		}
	}

	if err := batchFailure(len(batches), errs); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Perplexity) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "Be precise and concise. Respond with a JSON array only."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:          2000,
		Temperature:        0.1,
		SearchDomainFilter: p.opts.Domains,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)

	respBody, err := doRequest(p.client, req)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response missing choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildPerplexityPrompt(companies []string, since time.Time) string {
	return fmt.Sprintf(`List recent news articles published since %s about: %s.
Return a JSON array of objects with "title", "url", "source_domain", "published_at" (ISO-8601) and "company_mentioned".`,
		since.UTC().Format("2006-01-02"),
		strings.Join(companies, ", "),
	)
}

type chatRequest struct {
	Model              string        `json:"model"`
	Messages           []chatMessage `json:"messages"`
	MaxTokens          int           `json:"max_tokens,omitempty"`
	Temperature        float64       `json:"temperature"`
	SearchDomainFilter []string      `json:"search_domain_filter,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
