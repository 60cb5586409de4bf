package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/cache"
	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/news"
	"github.com/vmud/newshub/internal/normalize"
)

const (
	DefaultGDELTBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"
	gdeltTimeLayout     = "20060102150405"
	gdeltMaxRecords     = 50
)

var whitespaceRun = regexp.MustCompile(`\s+`)

type GDELTOptions struct {
	BaseURL   string
	UserAgent string
	// MaxLinks caps items returned per run across all aliases.
	MaxLinks int
	CacheTTL time.Duration
	Timeout  time.Duration
}

// GDELT queries the GDELT DOC 2.0 article list one alias at a time. Responses
// are cached per alias and window.
type GDELT struct {
	opts   GDELTOptions
	cache  cache.Cache
	client *http.Client
	logger zerolog.Logger
}

func NewGDELT(opts GDELTOptions, responses cache.Cache, logger zerolog.Logger) *GDELT {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultGDELTBaseURL
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "NewsHub/1.0"
	}
	if opts.MaxLinks < 1 {
		opts.MaxLinks = 25
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &GDELT{
		opts:   opts,
		cache:  responses,
		client: newHTTPClient(),
		logger: logger.With().Str("source", NameGDELT).Logger(),
	}
}

func (g *GDELT) Name() string {
	return NameGDELT
}

func (g *GDELT) Fetch(ctx context.Context, aliases []string, since time.Time) ([]news.CandidateItem, error) {
	if len(aliases) == 0 {
		return nil, nil
	}

	// Hour granularity keeps the cache key stable for repeated runs.
	end := globaltime.UTC().Truncate(time.Hour)
	start := since.UTC().Truncate(time.Hour)
	if !start.Before(end) {
		start = end.Add(-time.Hour)
	}

	share := g.opts.MaxLinks / len(aliases)
	if share < 1 {
		share = 1
	}

	var (
		items     []news.CandidateItem
		errs      []error
		attempted int
	)
	for _, alias := range aliases {
		if len(items) >= g.opts.MaxLinks {
			break
		}
		attempted++
		found, err := g.fetchAlias(ctx, alias, start, end)
		if err != nil {
			g.logger.Warn().Err(err).Str("alias", alias).Msg("alias query failed")
			errs = append(errs, fmt.Errorf("alias %q: %w", alias, err))
			continue
		}
		if len(found) > share {
			found = found[:share]
		}
		if room := g.opts.MaxLinks - len(items); len(found) > room {
			found = found[:room]
		}
		items = append(items, found...)
	}

	if err := batchFailure(attempted, errs); err != nil {
		return nil, err
	}
	return items, nil
}

func (g *GDELT) fetchAlias(ctx context.Context, alias string, start, end time.Time) ([]news.CandidateItem, error) {
	startStamp := start.Format(gdeltTimeLayout)
	endStamp := end.Format(gdeltTimeLayout)
	key := cache.Key(NameGDELT, strings.ToLower(alias), startStamp, endStamp)

	if g.cache != nil {
		cached, hit, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		} else if hit {
			g.logger.Debug().Str("alias", alias).Int("items", len(cached)).Msg("cache hit")
			return cached, nil
		}
	}

	items, err := g.query(ctx, alias, startStamp, endStamp)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, items, g.opts.CacheTTL); err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return items, nil
}

func (g *GDELT) query(ctx context.Context, alias, startStamp, endStamp string) ([]news.CandidateItem, error) {
	callCtx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", `"`+strings.TrimSpace(alias)+`"`)
	params.Set("mode", "artlist")
	params.Set("format", "json")
	params.Set("sort", "DateDesc")
	params.Set("maxrecords", strconv.Itoa(gdeltMaxRecords))
	params.Set("startdatetime", startStamp)
	params.Set("enddatetime", endStamp)

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, g.opts.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build gdelt request: %w", err)
	}
	req.Header.Set("User-Agent", g.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(g.client, req)
	if err != nil {
		return nil, err
	}

	// GDELT answers an empty result set with an empty body.
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var payload gdeltResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode gdelt json: %w", err)
	}

	items := make([]news.CandidateItem, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		item, err := article.candidate(alias)
		if err != nil {
			g.logger.Debug().Err(err).Str("url", article.URL).Msg("skipping gdelt article")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	URL           string `json:"url"`
	URLMobile     string `json:"url_mobile"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	SocialImage   string `json:"socialimage"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

var errIncompleteArticle = errors.New("article is missing title, url, domain or seendate")

func (a gdeltArticle) candidate(alias string) (news.CandidateItem, error) {
	title := cleanTitle(a.Title)
	if title == "" || strings.TrimSpace(a.URL) == "" || strings.TrimSpace(a.Domain) == "" || strings.TrimSpace(a.SeenDate) == "" {
		return news.CandidateItem{}, errIncompleteArticle
	}

	published := strings.TrimSpace(a.SeenDate)
	if parsed, ok := normalize.ParsePublishedAt(published); ok {
		published = parsed.Format(time.RFC3339)
	}

	raw, err := json.Marshal(a)
	if err != nil {
		return news.CandidateItem{}, err
	}
	return news.CandidateItem{
		Title:          title,
		URL:            strings.TrimSpace(a.URL),
		SourceDomain:   normalize.CleanDomain(a.Domain),
		PublishedAt:    published,
		CompanyMention: alias,
		RawPayload:     raw,
	}, nil
}

func cleanTitle(raw string) string {
	collapsed := whitespaceRun.ReplaceAllString(raw, " ")
	return strings.Trim(strings.TrimSpace(collapsed), "|- ")
}
