package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/news"
)

const (
	DefaultEDGARBaseURL = "https://www.sec.gov"
	edgarDomain         = "sec.gov"
	edgarDateLayout     = "2006-01-02"
)

type EDGAROptions struct {
	BaseURL   string
	UserAgent string
	// CIKs maps lowercased aliases to a company's central index key.
	CIKs          map[string]string
	MaxPerCompany int
	// DefaultLookback applies when Fetch is called with a zero since.
	DefaultLookback time.Duration
	Timeout         time.Duration
}

// EDGAR lists recent regulatory filings from the SEC company browse pages.
// Aliases without a configured CIK are skipped.
type EDGAR struct {
	opts   EDGAROptions
	client *http.Client
	logger zerolog.Logger
}

func NewEDGAR(opts EDGAROptions, logger zerolog.Logger) *EDGAR {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultEDGARBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "NewsHub/1.0"
	}
	if opts.MaxPerCompany < 1 {
		opts.MaxPerCompany = 10
	}
	if opts.DefaultLookback <= 0 {
		opts.DefaultLookback = 30 * 24 * time.Hour
	}
	ciks := make(map[string]string, len(opts.CIKs))
	for alias, cik := range opts.CIKs {
		ciks[strings.ToLower(strings.TrimSpace(alias))] = strings.TrimSpace(cik)
	}
	opts.CIKs = ciks

	return &EDGAR{
		opts:   opts,
		client: newHTTPClient(),
		logger: logger.With().Str("source", NameEDGAR).Logger(),
	}
}

func (e *EDGAR) Name() string {
	return NameEDGAR
}

func (e *EDGAR) Fetch(ctx context.Context, aliases []string, since time.Time) ([]news.CandidateItem, error) {
	if since.IsZero() {
		since = globaltime.UTC().Add(-e.opts.DefaultLookback)
	}
	sinceDay := since.UTC().Truncate(24 * time.Hour)

	var (
		items     []news.CandidateItem
		errs      []error
		attempted int
	)
	fetched := map[string]struct{}{}
	for _, alias := range aliases {
		cik, ok := e.opts.CIKs[strings.ToLower(strings.TrimSpace(alias))]
		if !ok || cik == "" {
			continue
		}
		if _, done := fetched[cik]; done {
			continue
		}
		fetched[cik] = struct{}{}
		attempted++

		filings, err := e.fetchCompany(ctx, alias, cik, sinceDay)
		if err != nil {
			e.logger.Warn().Err(err).Str("alias", alias).Str("cik", cik).Msg("filings lookup failed")
			errs = append(errs, fmt.Errorf("cik %s (%s): %w", cik, alias, err))
			continue
		}
		items = append(items, filings...)
	}

	if err := batchFailure(attempted, errs); err != nil {
		return nil, err
	}
	return items, nil
}

func (e *EDGAR) fetchCompany(ctx context.Context, company, cik string, since time.Time) ([]news.CandidateItem, error) {
	callCtx, cancel := withTimeout(ctx, e.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("action", "getcompany")
	params.Set("CIK", cik)
	params.Set("type", "")
	params.Set("dateb", "")
	params.Set("owner", "include")
	params.Set("count", "40")

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, e.opts.BaseURL+"/cgi-bin/browse-edgar?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build edgar request: %w", err)
	}
	// SEC rejects requests without a descriptive User-Agent.
	req.Header.Set("User-Agent", e.opts.UserAgent)

	body, err := doRequest(e.client, req)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse edgar document: %w", err)
	}
	return e.extractFilings(doc, company, cik, since), nil
}

func (e *EDGAR) extractFilings(doc *goquery.Document, company, cik string, since time.Time) []news.CandidateItem {
	var items []news.CandidateItem
	doc.Find("table.tableFile2 tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return true
		}

		form := collapseSpace(cells.Eq(0).Text())
		filed, err := time.Parse(edgarDateLayout, collapseSpace(cells.Eq(3).Text()))
		if err != nil || form == "" {
			return true
		}
		// Rows are newest first.
		if filed.Before(since) {
			return false
		}

		href, ok := cells.Eq(1).Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		link := e.absoluteURL(href)
		description := filingDescription(cells.Eq(2).Text())

		raw, _ := json.Marshal(map[string]string{
			"cik":         cik,
			"form":        form,
			"description": description,
			"filed":       filed.Format(edgarDateLayout),
		})
		title := fmt.Sprintf("%s %s filing", company, form)
		if description != "" {
			title += ": " + description
		}
		items = append(items, news.CandidateItem{
			Title:          title,
			URL:            link,
			SourceDomain:   edgarDomain,
			PublishedAt:    filed.UTC().Format(time.RFC3339),
			CompanyMention: company,
			RawPayload:     raw,
		})
		return len(items) < e.opts.MaxPerCompany
	})
	return items
}

func (e *EDGAR) absoluteURL(href string) string {
	trimmed := strings.TrimSpace(href)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return e.opts.BaseURL + trimmed
}

// filingDescription drops the accession and size trailer EDGAR appends.
func filingDescription(raw string) string {
	text := collapseSpace(raw)
	if idx := strings.Index(text, "Acc-no:"); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	return text
}

func collapseSpace(raw string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
}
