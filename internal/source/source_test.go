package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vmud/newshub/internal/news"
)

type namedAdapter struct {
	name string
}

func (a namedAdapter) Name() string { return a.name }

func (a namedAdapter) Fetch(context.Context, []string, time.Time) ([]news.CandidateItem, error) {
	return nil, nil
}

func TestRegistrySelectKeepsConfiguredOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"gdelt", "ai-news", "sec_edgar"} {
		if err := r.Register(namedAdapter{name: name}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	selected, missing := r.Select([]string{"SEC_EDGAR", "gdelt", "perplexity", "gdelt", ""})
	if len(selected) != 2 || selected[0].Name() != "sec_edgar" || selected[1].Name() != "gdelt" {
		t.Fatalf("unexpected selection: %+v", selected)
	}
	if len(missing) != 1 || missing[0] != "perplexity" {
		t.Fatalf("missing = %v", missing)
	}
	if got := strings.Join(r.Names(), ","); got != "ai-news,gdelt,sec_edgar" {
		t.Fatalf("Names() = %q", got)
	}
}

func TestRegistryRejectsDuplicatesAndBlankNames(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(namedAdapter{name: "gdelt"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(namedAdapter{name: " GDELT "}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := r.Register(namedAdapter{name: " "}); err == nil {
		t.Fatalf("expected blank name error")
	}
	if _, err := r.Adapter("missing"); err == nil || !strings.Contains(err.Error(), "available: gdelt") {
		t.Fatalf("unexpected Adapter() error: %v", err)
	}
}

func TestBatchAliasesRespectsBudget(t *testing.T) {
	t.Parallel()

	aliases := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m"}
	cases := []struct {
		max         int
		wantBatches int
	}{
		{max: 8, wantBatches: 7},
		{max: 13, wantBatches: 13},
		{max: 20, wantBatches: 13},
		{max: 1, wantBatches: 1},
		{max: 0, wantBatches: 1},
	}
	for _, tc := range cases {
		batches := batchAliases(aliases, tc.max)
		if len(batches) != tc.wantBatches {
			t.Fatalf("max=%d: got %d batches, want %d", tc.max, len(batches), tc.wantBatches)
		}
		if tc.max > 0 && len(batches) > tc.max {
			t.Fatalf("max=%d: budget exceeded with %d batches", tc.max, len(batches))
		}
		total := 0
		for _, batch := range batches {
			total += len(batch)
		}
		if total != len(aliases) {
			t.Fatalf("max=%d: batches cover %d aliases", tc.max, total)
		}
	}

	if batchAliases(nil, 8) != nil {
		t.Fatalf("expected no batches for no aliases")
	}
}

func TestBatchFailureOnlyWhenEveryBatchFailed(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	if err := batchFailure(3, []error{boom, boom}); err != nil {
		t.Fatalf("partial failure should not fail the adapter: %v", err)
	}
	if err := batchFailure(2, []error{boom, boom}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if err := batchFailure(0, nil); err != nil {
		t.Fatalf("no attempts should not fail: %v", err)
	}
}

func TestHTTPErrorMessageCarriesStatus(t *testing.T) {
	t.Parallel()

	err := &HTTPError{Method: "GET", URL: "https://api.example.test/x", StatusCode: 429, Body: "slow down"}
	if got := err.Error(); got != "GET https://api.example.test/x: status 429: slow down" {
		t.Fatalf("Error() = %q", got)
	}
}
