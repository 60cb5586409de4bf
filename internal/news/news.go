// Package news holds the records that flow through one ingestion run, from
// the raw candidates an adapter returns to the per-run summary.
package news

import (
	"encoding/json"
	"time"
)

// CandidateItem is what a source adapter returns before any validation.
// Fields are kept as raw strings; the normalizer decides what is usable.
type CandidateItem struct {
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	SourceDomain   string          `json:"source_domain"`
	PublishedAt    string          `json:"published_at"`
	CompanyMention string          `json:"company_mentioned"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty"`
	// LowConfidence marks items synthesized from free text rather than parsed
	// from a structured upstream payload.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

type NormalizedItem struct {
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	URLNorm       string          `json:"url_norm"`
	SourceDomain  string          `json:"source_domain"`
	PublishedAt   time.Time       `json:"published_at"`
	CompanySlug   string          `json:"company_slug"`
	Provider      string          `json:"provider"`
	RawPayload    json.RawMessage `json:"raw_payload,omitempty"`
	LowConfidence bool            `json:"low_confidence,omitempty"`
}

type Company struct {
	ID            int64    `json:"id"`
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases,omitempty"`
}

type StoredArticle struct {
	CompanyID     int64
	Title         string
	URL           string
	URLNorm       string
	SourceDomain  string
	PublishedAt   time.Time
	Priority      int
	Provider      string
	RawPayload    json.RawMessage
	LowConfidence bool
}

// ErrorKind is the failure class assigned to an adapter error.
type ErrorKind string

const (
	ErrorTimeout    ErrorKind = "timeout"
	ErrorRateLimit  ErrorKind = "rate_limit"
	ErrorNetwork    ErrorKind = "network"
	ErrorSchema     ErrorKind = "schema"
	ErrorAPICredits ErrorKind = "api_credits"
	ErrorDatabase   ErrorKind = "database"
	ErrorUnknown    ErrorKind = "unknown"
)

type IngestionResult struct {
	Provider      string           `json:"provider"`
	ItemCount     int              `json:"item_count"`
	DedupeRatePct float64          `json:"dedupe_rate_pct"`
	Submitted     int              `json:"submitted"`
	Duplicates    int              `json:"duplicates"`
	Items         []NormalizedItem `json:"items"`
	Errors        []string         `json:"errors"`
	// Failed is set when the adapter's fetch itself failed.
	Failed    bool      `json:"failed"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

type ProviderError struct {
	Provider string    `json:"provider"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

// Outcome is the run status surfaced to whoever triggered the run.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeFailure        Outcome = "failure"
)

type RunSummary struct {
	RunID                 string            `json:"run_id"`
	ProviderCounts        map[string]int    `json:"provider_counts"`
	TotalItems            int               `json:"total_items"`
	AvgDedupeRatePct      float64           `json:"avg_dedupe_rate_pct"`
	WeightedDedupeRatePct float64           `json:"weighted_dedupe_rate_pct"`
	StartedAt             time.Time         `json:"started_at"`
	FinishedAt            time.Time         `json:"finished_at"`
	Scheduled             bool              `json:"scheduled"`
	Errors                []string          `json:"errors"`
	ProviderErrors        []ProviderError   `json:"provider_errors,omitempty"`
	Results               []IngestionResult `json:"results,omitempty"`
}

// Outcome maps the summary onto the three externally visible states. A run
// with errors and no items is a failure; errors with some items is a partial
// success; anything else, including a quiet run with nothing new, is a success.
func (s RunSummary) Outcome() Outcome {
	if len(s.Errors) == 0 {
		return OutcomeSuccess
	}
	if s.TotalItems > 0 {
		return OutcomePartialSuccess
	}
	return OutcomeFailure
}

// Successful reports whether at least one provider produced an item.
func (s RunSummary) Successful() bool {
	for _, count := range s.ProviderCounts {
		if count > 0 {
			return true
		}
	}
	return false
}
