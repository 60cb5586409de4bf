// Package source contains the adapters that pull candidate items about the
// tracked companies from external systems.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/vmud/newshub/internal/news"
)

const (
	NameLLMSearch  = "ai-news"
	NameGDELT      = "gdelt"
	NamePerplexity = "perplexity"
	NameEDGAR      = "sec_edgar"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// Adapter fetches candidates for the given aliases published since a point in
// time. A returned error means the whole fetch failed for this run.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, aliases []string, since time.Time) ([]news.CandidateItem, error)
}

// HTTPError is returned for non-2xx upstream responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Registry holds the adapters available to the orchestrator.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(adapter Adapter) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}
	name := normalizeName(adapter.Name())
	if name == "" {
		return fmt.Errorf("adapter name is required")
	}
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %q is already registered", name)
	}
	r.adapters[name] = adapter
	return nil
}

func (r *Registry) Adapter(name string) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	adapter, ok := r.adapters[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("source %q is not registered (available: %s)", normalizeName(name), strings.Join(r.Names(), ", "))
	}
	return adapter, nil
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the registered adapters for names in the given order, plus
// the names that have no registered adapter.
func (r *Registry) Select(names []string) ([]Adapter, []string) {
	var (
		selected []Adapter
		missing  []string
	)
	seen := map[string]struct{}{}
	for _, raw := range names {
		name := normalizeName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var (
			adapter Adapter
			ok      bool
		)
		if r != nil {
			adapter, ok = r.adapters[name]
		}
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected = append(selected, adapter)
	}
	return selected, missing
}

func normalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// batchAliases splits aliases so that at most maxRequests batches are made.
func batchAliases(aliases []string, maxRequests int) [][]string {
	if len(aliases) == 0 {
		return nil
	}
	if maxRequests < 1 {
		maxRequests = 1
	}
	size := (len(aliases) + maxRequests - 1) / maxRequests
	if size < 1 {
		size = 1
	}

	batches := make([][]string, 0, maxRequests)
	for start := 0; start < len(aliases); start += size {
		end := start + size
		if end > len(aliases) {
			end = len(aliases)
		}
		batches = append(batches, aliases[start:end])
	}
	return batches
}

// batchFailure folds per-batch errors into an adapter result: partial failure
// keeps the items, total failure becomes the adapter's error.
func batchFailure(attempted int, errs []error) error {
	if attempted == 0 || len(errs) < attempted {
		return nil
	}
	return errors.Join(errs...)
}

func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.URL.Host, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       snippet,
		}
	}
	return body, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 2 * defaultTimeout}
}
