// Package normalize validates raw candidates and derives the dedup key.
// Everything here is a pure function of its input.
package normalize

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/vmud/newshub/internal/news"
)

// Reason explains why a candidate was rejected. The zero value means the
// candidate is usable.
type Reason string

const (
	ReasonOK             Reason = ""
	ReasonInvalidTitle   Reason = "invalid_title"
	ReasonInvalidURL     Reason = "invalid_url"
	ReasonPlaceholderURL Reason = "placeholder_url"
	ReasonMissingDomain  Reason = "missing_domain"
	ReasonMissingDate    Reason = "missing_date"
)

// UnknownDomain is returned by ExtractDomain when no host can be read.
const UnknownDomain = "unknown"

const minTitleLength = 3

// Query keys are dropped when they start with any of these, ignoring case.
var trackingKeyPrefixes = []string{
	"utm_",
	"fbclid",
	"gclid",
	"ref",
	"source",
	"cmpid",
	"_ga",
}

// Generated content loves these hosts; nothing real lives there.
var placeholderDomains = []string{
	"example.com",
	"example.org",
	"example.net",
}

var compactDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"20060102T150405Z",
	"20060102150405",
}

// Validate returns the first failing check in precedence order, or ReasonOK.
func Validate(c news.CandidateItem) Reason {
	if len([]rune(strings.TrimSpace(c.Title))) < minTitleLength {
		return ReasonInvalidTitle
	}
	if !isHTTPURL(c.URL) {
		return ReasonInvalidURL
	}
	if isPlaceholderURL(c.URL) {
		return ReasonPlaceholderURL
	}
	if strings.TrimSpace(c.SourceDomain) == "" {
		return ReasonMissingDomain
	}
	if _, ok := ParsePublishedAt(c.PublishedAt); !ok {
		return ReasonMissingDate
	}
	return ReasonOK
}

// Normalize validates c and builds the normalized item attributed to provider.
func Normalize(c news.CandidateItem, provider string) (news.NormalizedItem, Reason) {
	if reason := Validate(c); reason != ReasonOK {
		return news.NormalizedItem{}, reason
	}

	publishedAt, _ := ParsePublishedAt(c.PublishedAt)
	rawURL := strings.TrimSpace(c.URL)
	return news.NormalizedItem{
		Title:         strings.TrimSpace(c.Title),
		URL:           rawURL,
		URLNorm:       CanonicalizeURL(rawURL),
		SourceDomain:  CleanDomain(c.SourceDomain),
		PublishedAt:   publishedAt.UTC(),
		CompanySlug:   strings.ToLower(strings.TrimSpace(c.CompanyMention)),
		Provider:      provider,
		RawPayload:    c.RawPayload,
		LowConfidence: c.LowConfidence,
	}, ReasonOK
}

// CanonicalizeURL builds the dedup key: tracking parameters removed, remaining
// parameters sorted, fragment dropped, everything lowercased. Input that does
// not parse as an absolute URL is lowercased as-is.
func CanonicalizeURL(raw string) string {
	// Lowercase first so parameter ordering is stable across repeated calls.
	lowered := strings.ToLower(strings.TrimSpace(raw))
	parsed, err := url.Parse(lowered)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return lowered
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""

	parsed.RawQuery = canonicalQuery(parsed.RawQuery)
	if parsed.RawQuery == "" {
		parsed.ForceQuery = false
	}

	return strings.ToLower(parsed.String())
}

// ExtractDomain returns the lowercase host of raw without a leading "www.".
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Hostname() == "" {
		return UnknownDomain
	}
	return CleanDomain(parsed.Hostname())
}

// CleanDomain lowercases a bare domain and strips "www.".
func CleanDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// ParsePublishedAt accepts RFC 3339, GDELT compact stamps, and whatever else
// dateparse understands. Zone-less inputs are read as UTC.
func ParsePublishedAt(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range compactDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return parseLoose(value)
}

// dateparse can panic on some malformed inputs.
func parseLoose(value string) (parsed time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			parsed, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// canonicalQuery keeps every non-tracking pair byte for byte, ordered by key.
// Pairs are split on "&" only, so ";" and malformed escapes stay in the key.
func canonicalQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	type pair struct {
		key string
		raw string
	}
	var kept []pair
	for _, raw := range strings.Split(rawQuery, "&") {
		if raw == "" {
			continue
		}
		key, _, _ := strings.Cut(raw, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if isTrackingKey(key) {
			continue
		}
		kept = append(kept, pair{key: key, raw: raw})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].key < kept[j].key
	})

	parts := make([]string, len(kept))
	for i, p := range kept {
		parts[i] = p.raw
	}
	return strings.Join(parts, "&")
}

func isTrackingKey(key string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range trackingKeyPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

func isPlaceholderURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, domain := range placeholderDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}
