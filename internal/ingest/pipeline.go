// Package ingest runs one ingestion pass: every configured source adapter is
// fetched in isolation and its items are normalized, resolved to a company,
// scored and upserted.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vmud/newshub/internal/company"
	"github.com/vmud/newshub/internal/db"
	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/logging"
	"github.com/vmud/newshub/internal/news"
	"github.com/vmud/newshub/internal/normalize"
	"github.com/vmud/newshub/internal/priority"
	"github.com/vmud/newshub/internal/source"
	"github.com/vmud/newshub/internal/telemetry"
)

const defaultLookback = 7 * 24 * time.Hour

var (
	ErrNoAdapters      = errors.New("no news providers configured")
	ErrNoStore         = errors.New("article store is not configured")
	ErrUnknownProvider = errors.New("unknown news provider")
)

type ArticleStore interface {
	UpsertArticle(ctx context.Context, a news.StoredArticle) (db.UpsertStatus, error)
}

type CompanySource interface {
	ListCompanies(ctx context.Context) ([]news.Company, error)
}

type RunRecorder interface {
	InsertIngestionRun(ctx context.Context, r db.IngestionRunRecord) error
}

type Config struct {
	Adapters  []source.Adapter
	Store     ArticleStore
	Companies CompanySource
	// Directory supplies configured aliases for the companies in the store.
	Directory *company.Directory
	// Runs is optional.
	Runs      RunRecorder
	Scorer    *priority.Scorer
	Telemetry telemetry.Sink

	Lookback       time.Duration
	AdapterTimeout time.Duration
	Parallel       bool
	Logger         zerolog.Logger
}

type Pipeline struct {
	cfg    Config
	logger zerolog.Logger
}

type RunOptions struct {
	Scheduled bool
	// Since overrides the lookback window when set.
	Since time.Time
	// Providers restricts the run to these adapters; empty runs all.
	Providers []string
}

func New(cfg Config) *Pipeline {
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultLookback
	}
	if cfg.Scorer == nil {
		cfg.Scorer = priority.NewScorer(priority.DefaultWeight, nil)
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Nop{}
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logging.Component(cfg.Logger, "ingest"),
	}
}

// Run performs one ingestion. The returned error is non-nil only for fatal
// conditions where no adapter was attempted; the summary is always usable.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (news.RunSummary, error) {
	started := globaltime.UTC()
	summary := news.RunSummary{
		RunID:          uuid.NewString(),
		ProviderCounts: map[string]int{},
		StartedAt:      started,
		Scheduled:      opts.Scheduled,
		Errors:         []string{},
	}

	fail := func(err error) (news.RunSummary, error) {
		summary.Errors = append(summary.Errors, err.Error())
		summary.FinishedAt = globaltime.UTC()
		p.logger.Error().Err(err).Str("run_id", summary.RunID).Msg("ingestion run aborted")
		return summary, err
	}

	if p == nil {
		return summary, ErrNoAdapters
	}
	adapters, err := p.selectAdapters(opts.Providers)
	if err != nil {
		return fail(err)
	}
	if p.cfg.Store == nil || p.cfg.Companies == nil {
		return fail(ErrNoStore)
	}

	companies, err := p.cfg.Companies.ListCompanies(ctx)
	if err != nil {
		return fail(fmt.Errorf("load companies: %w", err))
	}
	companies = p.cfg.Directory.Attach(companies)
	resolver := company.NewMap(companies)
	aliases := aliasList(companies)
	if len(companies) == 0 {
		p.logger.Warn().Str("run_id", summary.RunID).Msg("no tracked companies; every item will be unresolvable")
	}

	since := opts.Since
	if since.IsZero() {
		since = started.Add(-p.cfg.Lookback)
	}

	p.logger.Info().
		Str("run_id", summary.RunID).
		Bool("scheduled", opts.Scheduled).
		Int("adapters", len(adapters)).
		Int("aliases", len(aliases)).
		Int("resolver_keys", resolver.Len()).
		Int("default_priority", p.cfg.Scorer.DefaultWeight()).
		Time("since", since).
		Msg("starting ingestion run")

	run := runContext{
		id:        summary.RunID,
		scheduled: opts.Scheduled,
		since:     since,
		aliases:   aliases,
		resolver:  resolver,
		startedAt: started,
	}

	results := make([]news.IngestionResult, len(adapters))
	if p.cfg.Parallel && len(adapters) > 1 {
		var g errgroup.Group
		for i, adapter := range adapters {
			g.Go(func() error {
				results[i] = p.runAdapter(ctx, run, adapter)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, adapter := range adapters {
			results[i] = p.runAdapter(ctx, run, adapter)
		}
	}

	aggregate(&summary, results)
	summary.FinishedAt = globaltime.UTC()

	p.logger.Info().
		Str("run_id", summary.RunID).
		Int("total_items", summary.TotalItems).
		Float64("avg_dedupe_rate_pct", summary.AvgDedupeRatePct).
		Int("errors", len(summary.Errors)).
		Bool("produced_items", summary.Successful()).
		Str("outcome", string(summary.Outcome())).
		Dur("duration", summary.FinishedAt.Sub(started)).
		Msg("ingestion run finished")
	return summary, nil
}

func (p *Pipeline) selectAdapters(names []string) ([]source.Adapter, error) {
	configured := make([]source.Adapter, 0, len(p.cfg.Adapters))
	for _, adapter := range p.cfg.Adapters {
		if adapter != nil {
			configured = append(configured, adapter)
		}
	}
	if len(configured) == 0 {
		return nil, ErrNoAdapters
	}
	if len(names) == 0 {
		return configured, nil
	}

	wanted := map[string]struct{}{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			wanted[name] = struct{}{}
		}
	}
	selected := make([]source.Adapter, 0, len(wanted))
	for _, adapter := range configured {
		if _, ok := wanted[adapter.Name()]; ok {
			selected = append(selected, adapter)
			delete(wanted, adapter.Name())
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, name := range names {
			key := strings.ToLower(strings.TrimSpace(name))
			if _, ok := wanted[key]; ok {
				missing = append(missing, key)
				delete(wanted, key)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, strings.Join(missing, ", "))
	}
	if len(selected) == 0 {
		return nil, ErrNoAdapters
	}
	return selected, nil
}

type runContext struct {
	id        string
	scheduled bool
	since     time.Time
	aliases   []string
	resolver  *company.Map
	startedAt time.Time
}

func (p *Pipeline) runAdapter(ctx context.Context, run runContext, adapter source.Adapter) news.IngestionResult {
	provider := adapter.Name()
	logger := p.logger.With().Str("run_id", run.id).Str("provider", provider).Logger()

	fetchCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.AdapterTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.AdapterTimeout)
	}
	candidates, err := adapter.Fetch(fetchCtx, run.aliases, run.since)
	cancel()

	var result news.IngestionResult
	if err != nil {
		kind := Classify(err)
		logger.Error().Err(err).Str("error_kind", string(kind)).Msg("provider fetch failed")
		result = news.IngestionResult{
			Provider:  provider,
			Items:     []news.NormalizedItem{},
			Errors:    []string{err.Error()},
			Failed:    true,
			ErrorKind: kind,
		}
		p.cfg.Telemetry.Track(ctx, telemetry.EventProviderError, telemetry.ProviderError(provider, string(kind), err.Error()))
	} else {
		result = p.processCandidates(ctx, logger, provider, candidates, run.resolver)
		logger.Info().
			Int("submitted", result.Submitted).
			Int("items", result.ItemCount).
			Int("duplicates", result.Duplicates).
			Float64("dedupe_rate_pct", result.DedupeRatePct).
			Int("item_errors", len(result.Errors)).
			Msg("provider processed")
		p.cfg.Telemetry.Track(ctx, telemetry.EventIngestRun, telemetry.IngestRun(provider, result.ItemCount, result.DedupeRatePct, run.scheduled))
	}

	p.recordRun(ctx, logger, run, result)
	return result
}

func (p *Pipeline) processCandidates(ctx context.Context, logger zerolog.Logger, provider string, candidates []news.CandidateItem, resolver *company.Map) news.IngestionResult {
	result := news.IngestionResult{
		Provider:  provider,
		Submitted: len(candidates),
		Items:     make([]news.NormalizedItem, 0, len(candidates)),
		Errors:    []string{},
	}

	for _, candidate := range candidates {
		item, reason := normalize.Normalize(candidate, provider)
		if reason != normalize.ReasonOK {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid article: %s", reason))
			logger.Debug().Str("reason", string(reason)).Str("url", candidate.URL).Msg("skipping invalid article")
			p.cfg.Telemetry.Track(ctx, telemetry.EventSkippedInvalidURL, telemetry.SkippedInvalidURL(provider, string(reason), candidate.Title))
			continue
		}

		companyID, ok := resolver.Resolve(candidate.CompanyMention)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Unknown company: %s", candidate.CompanyMention))
			logger.Debug().Str("mention", candidate.CompanyMention).Str("url", item.URL).Msg("unresolvable company")
			continue
		}

		status, err := p.cfg.Store.UpsertArticle(ctx, news.StoredArticle{
			CompanyID:     companyID,
			Title:         item.Title,
			URL:           item.URL,
			URLNorm:       item.URLNorm,
			SourceDomain:  item.SourceDomain,
			PublishedAt:   item.PublishedAt,
			Priority:      p.cfg.Scorer.Score(item.SourceDomain),
			Provider:      provider,
			RawPayload:    item.RawPayload,
			LowConfidence: item.LowConfidence,
		})
		switch {
		case err == nil && status == db.UpsertInserted:
			result.Items = append(result.Items, item)
		case err == nil && status == db.UpsertDuplicate:
			result.Duplicates++
		default:
			if err == nil {
				err = fmt.Errorf("store reported %s", status)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Database error for %q: %v", item.Title, err))
			logger.Warn().Err(err).Str("url_norm", item.URLNorm).Msg("article upsert failed")
		}
	}

	result.ItemCount = len(result.Items)
	result.DedupeRatePct = dedupeRate(result.Duplicates, result.Submitted)
	return result
}

func (p *Pipeline) recordRun(ctx context.Context, logger zerolog.Logger, run runContext, result news.IngestionResult) {
	if p.cfg.Runs == nil {
		return
	}
	record := db.IngestionRunRecord{
		RunID:         run.id,
		Provider:      result.Provider,
		ItemCount:     result.ItemCount,
		Submitted:     result.Submitted,
		Duplicates:    result.Duplicates,
		DedupeRatePct: result.DedupeRatePct,
		Scheduled:     run.scheduled,
		Timestamp:     run.startedAt,
	}
	if result.Failed {
		record.ErrorKind = string(result.ErrorKind)
		if len(result.Errors) > 0 {
			record.ErrorMessage = result.Errors[0]
		}
	}
	if err := p.cfg.Runs.InsertIngestionRun(ctx, record); err != nil {
		logger.Error().Err(err).Msg("failed to record ingestion run")
	}
}

func aggregate(summary *news.RunSummary, results []news.IngestionResult) {
	var (
		rateSum    float64
		succeeded  int
		duplicates int
		submitted  int
	)
	for _, result := range results {
		if result.Failed {
			message := ""
			if len(result.Errors) > 0 {
				message = result.Errors[0]
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s failed (%s): %s", result.Provider, result.ErrorKind, message))
			summary.ProviderErrors = append(summary.ProviderErrors, news.ProviderError{
				Provider: result.Provider,
				Kind:     result.ErrorKind,
				Message:  message,
			})
			continue
		}
		summary.ProviderCounts[result.Provider] = result.ItemCount
		summary.TotalItems += result.ItemCount
		rateSum += result.DedupeRatePct
		succeeded++
		duplicates += result.Duplicates
		submitted += result.Submitted
	}

	if succeeded > 0 {
		summary.AvgDedupeRatePct = rateSum / float64(succeeded)
	}
	summary.WeightedDedupeRatePct = dedupeRate(duplicates, submitted)
	summary.Results = results
}

func dedupeRate(duplicates, submitted int) float64 {
	if submitted == 0 {
		return 0
	}
	return float64(duplicates) / float64(submitted) * 100
}

// aliasList flattens canonical names and aliases, first spelling wins.
func aliasList(companies []news.Company) []string {
	out := make([]string, 0, len(companies)*3)
	seen := map[string]struct{}{}
	add := func(name string) {
		trimmed := strings.TrimSpace(name)
		key := strings.ToLower(trimmed)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	for _, c := range companies {
		add(c.CanonicalName)
		for _, alias := range c.Aliases {
			add(alias)
		}
	}
	return out
}
