package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/db"
	"github.com/vmud/newshub/internal/ingest"
	"github.com/vmud/newshub/internal/news"
)

type stubRunner struct {
	summary news.RunSummary
	err     error
	got     ingest.RunOptions
	calls   int
}

func (r *stubRunner) Run(_ context.Context, opts ingest.RunOptions) (news.RunSummary, error) {
	r.calls++
	r.got = opts
	return r.summary, r.err
}

type stubRuns struct {
	records []db.IngestionRunRecord
	err     error
	limit   int
}

func (s *stubRuns) RecentIngestionRuns(_ context.Context, limit int) ([]db.IngestionRunRecord, error) {
	s.limit = limit
	return s.records, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(runner Runner, runs RunLister, database Pinger) http.Handler {
	return NewServer(runner, runs, database, zerolog.Nop(), Options{}).Handler()
}

func serve(t *testing.T, h http.Handler, req *http.Request) (int, jsendResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestIngestStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		summary    news.RunSummary
		err        error
		wantCode   int
		wantStatus string
	}{
		{
			name:       "success",
			summary:    news.RunSummary{ProviderCounts: map[string]int{"gdelt": 3}, TotalItems: 3},
			wantCode:   http.StatusOK,
			wantStatus: "success",
		},
		{
			name:       "quiet run",
			summary:    news.RunSummary{ProviderCounts: map[string]int{"gdelt": 0}},
			wantCode:   http.StatusOK,
			wantStatus: "success",
		},
		{
			name:       "partial",
			summary:    news.RunSummary{ProviderCounts: map[string]int{"gdelt": 2}, TotalItems: 2, Errors: []string{"ai-news failed (timeout): deadline"}},
			wantCode:   http.StatusMultiStatus,
			wantStatus: "success",
		},
		{
			name:       "failure",
			summary:    news.RunSummary{ProviderCounts: map[string]int{}, Errors: []string{"gdelt failed (network): dial"}},
			wantCode:   http.StatusInternalServerError,
			wantStatus: "error",
		},
		{
			name:       "fatal",
			summary:    news.RunSummary{ProviderCounts: map[string]int{}, Errors: []string{ingest.ErrNoAdapters.Error()}},
			err:        ingest.ErrNoAdapters,
			wantCode:   http.StatusInternalServerError,
			wantStatus: "error",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runner := &stubRunner{summary: tc.summary, err: tc.err}
			h := newTestServer(runner, nil, nil)
			code, body := serve(t, h, httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil))

			if code != tc.wantCode || body.Status != tc.wantStatus {
				t.Fatalf("got %d/%s, want %d/%s", code, body.Status, tc.wantCode, tc.wantStatus)
			}
			if body.Data == nil {
				t.Fatalf("expected summary in response data")
			}
		})
	}
}

func TestIngestScheduledDetection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*http.Request)
		target string
		want   bool
	}{
		{name: "manual", target: "/api/v1/ingest", want: false},
		{name: "header", target: "/api/v1/ingest", mutate: func(r *http.Request) { r.Header.Set("X-Cron-Trigger", "1") }, want: true},
		{name: "query", target: "/api/v1/ingest?scheduled=true", want: true},
		{name: "query false", target: "/api/v1/ingest?scheduled=false", want: false},
		{name: "user agent", target: "/api/v1/ingest", mutate: func(r *http.Request) { r.Header.Set("User-Agent", "vercel-cron/1.0") }, want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runner := &stubRunner{summary: news.RunSummary{ProviderCounts: map[string]int{}}}
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.mutate != nil {
				tc.mutate(req)
			}
			serve(t, newTestServer(runner, nil, nil), req)

			if runner.got.Scheduled != tc.want {
				t.Fatalf("scheduled = %v, want %v", runner.got.Scheduled, tc.want)
			}
		})
	}
}

func TestIngestPassesProvidersAndSince(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{summary: news.RunSummary{ProviderCounts: map[string]int{}}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingest?providers=gdelt,+sec_edgar&since=2026-10-01", nil)
	serve(t, newTestServer(runner, nil, nil), req)

	if strings.Join(runner.got.Providers, "|") != "gdelt|sec_edgar" {
		t.Fatalf("providers = %v", runner.got.Providers)
	}
	if !runner.got.Since.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("since = %s", runner.got.Since)
	}
}

func TestIngestRejectsBadSince(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	code, body := serve(t, newTestServer(runner, nil, nil), httptest.NewRequest(http.MethodGet, "/api/v1/ingest?since=last-week", nil))
	if code != http.StatusBadRequest || body.Status != "fail" {
		t.Fatalf("got %d/%s", code, body.Status)
	}
	if runner.calls != 0 {
		t.Fatalf("runner should not be called")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	code, body := serve(t, newTestServer(&stubRunner{}, nil, stubPinger{}), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if code != http.StatusOK || body.Status != "success" {
		t.Fatalf("got %d/%s", code, body.Status)
	}

	code, body = serve(t, newTestServer(&stubRunner{}, nil, stubPinger{err: errors.New("down")}), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if code != http.StatusServiceUnavailable || body.Status != "error" {
		t.Fatalf("got %d/%s", code, body.Status)
	}
}

func TestRuns(t *testing.T) {
	t.Parallel()

	runs := &stubRuns{records: []db.IngestionRunRecord{{RunID: "r1", Provider: "gdelt", ItemCount: 4}}}
	code, body := serve(t, newTestServer(&stubRunner{}, runs, nil), httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=5", nil))
	if code != http.StatusOK || body.Status != "success" {
		t.Fatalf("got %d/%s", code, body.Status)
	}
	if runs.limit != 5 {
		t.Fatalf("limit = %d, want 5", runs.limit)
	}

	code, body = serve(t, newTestServer(&stubRunner{}, runs, nil), httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=0", nil))
	if code != http.StatusBadRequest || body.Status != "fail" {
		t.Fatalf("got %d/%s", code, body.Status)
	}

	failing := &stubRuns{err: errors.New("relation does not exist")}
	code, body = serve(t, newTestServer(&stubRunner{}, failing, nil), httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	if code != http.StatusInternalServerError || body.Status != "error" {
		t.Fatalf("got %d/%s", code, body.Status)
	}
	if failing.limit != defaultRunsLimit {
		t.Fatalf("default limit = %d", failing.limit)
	}
}

func TestUnknownRouteIsJSendFail(t *testing.T) {
	t.Parallel()

	code, body := serve(t, newTestServer(&stubRunner{}, nil, nil), httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	if code != http.StatusNotFound || body.Status != "fail" {
		t.Fatalf("got %d/%s", code, body.Status)
	}
}
