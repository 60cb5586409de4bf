package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPerplexityFetchSendsAllowListAndParses(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer pplx-test" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"[{\"title\":\"Best Buy holiday sales jump\",\"url\":\"https://www.wsj.com/bby\",\"published_at\":\"2024-01-14T00:00:00Z\"}]"}}]}`)
	}))
	defer srv.Close()

	p, err := NewPerplexity(PerplexityOptions{Endpoint: srv.URL, APIKey: "pplx-test", MaxRequests: 4}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPerplexity() error = %v", err)
	}

	items, err := p.Fetch(context.Background(), []string{"Best Buy"}, time.Now())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].CompanyMention != "Best Buy" || items[0].SourceDomain != "wsj.com" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if got.Model != DefaultPerplexityModel || len(got.SearchDomainFilter) != len(DefaultPerplexityDomains) {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.MaxTokens != 2000 || got.Temperature != 0.1 {
		t.Fatalf("unexpected sampling settings: %+v", got)
	}
}

func TestPerplexityFetchSurfacesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, `{"error":{"message":"insufficient credits"}}`)
	}))
	defer srv.Close()

	p, err := NewPerplexity(PerplexityOptions{Endpoint: srv.URL, APIKey: "k"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPerplexity() error = %v", err)
	}
	_, err = p.Fetch(context.Background(), []string{"Qualcomm"}, time.Now())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected HTTPError 402, got %v", err)
	}
}

func TestNewPerplexityRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewPerplexity(PerplexityOptions{APIKey: " "}, zerolog.Nop()); err == nil {
		t.Fatalf("expected missing key error")
	}
}
