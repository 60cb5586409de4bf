package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/cache"
	"github.com/vmud/newshub/internal/cli"
	"github.com/vmud/newshub/internal/company"
	"github.com/vmud/newshub/internal/config"
	"github.com/vmud/newshub/internal/db"
	"github.com/vmud/newshub/internal/ingest"
	"github.com/vmud/newshub/internal/logging"
	"github.com/vmud/newshub/internal/priority"
	"github.com/vmud/newshub/internal/source"
	"github.com/vmud/newshub/internal/telemetry"
)

// loadRuntime loads .env, config and the logger the same way for every
// command. Failures are already reported on stderr.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, bool) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), false
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), false
	}
	return cfg, logger, true
}

// openCache returns Redis when REDIS_URL is set and an in-process cache
// otherwise. The returned func releases the cache.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		logger.Debug().Msg("REDIS_URL not set, using in-memory response cache")
		return cache.NewMemory(), func() {}, nil
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis cache")
		}
	}, nil
}

// buildRegistry registers every adapter the configuration can support.
// Adapters that need credentials are left out when the credential is empty.
func buildRegistry(cfg *config.Config, dir *company.Directory, responses cache.Cache, logger zerolog.Logger) (*source.Registry, error) {
	registry := source.NewRegistry()

	if cfg.AIAPIKey != "" {
		generator, err := source.NewLLMKitGenerator(source.LLMKitConfig{
			APIKey:        cfg.AIAPIKey,
			Model:         cfg.AIModel,
			FallbackModel: cfg.AIFallbackModel,
			MaxTokens:     cfg.AIMaxTokens,
			Temperature:   cfg.AITemperature,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(source.NewLLMSearch(generator, source.LLMSearchOptions{
			MaxRequests:        cfg.AIMaxRequests,
			MaxItemsPerRequest: cfg.AIMaxItemsPerAsk,
			Timeout:            cfg.UpstreamTimeout,
		}, logger)); err != nil {
			return nil, err
		}
	}

	if cfg.PPLXAPIKey != "" {
		perplexity, err := source.NewPerplexity(source.PerplexityOptions{
			Endpoint:    cfg.PPLXEndpoint,
			APIKey:      cfg.PPLXAPIKey,
			Model:       cfg.PPLXModel,
			Domains:     cfg.PPLXSearchDomainList(),
			MaxRequests: cfg.PPLXMaxRequests,
			Timeout:     cfg.UpstreamTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(perplexity); err != nil {
			return nil, err
		}
	}

	if err := registry.Register(source.NewGDELT(source.GDELTOptions{
		BaseURL:   cfg.GDELTBaseURL,
		UserAgent: cfg.EDGARAgent(),
		MaxLinks:  cfg.MaxLinksPerProvider,
		CacheTTL:  cfg.GDELTCacheTTL,
		Timeout:   cfg.UpstreamTimeout,
	}, responses, logger)); err != nil {
		return nil, err
	}

	if err := registry.Register(source.NewEDGAR(source.EDGAROptions{
		BaseURL:         cfg.EDGARBaseURL,
		UserAgent:       cfg.EDGARAgent(),
		CIKs:            dir.CIKs(),
		MaxPerCompany:   cfg.EDGARMaxPerCompany,
		DefaultLookback: cfg.EDGARLookbackDefault,
		Timeout:         cfg.UpstreamTimeout,
	}, logger)); err != nil {
		return nil, err
	}

	return registry, nil
}

// selectAdapters resolves NEWS_PROVIDERS against the registry. Names that are
// selected but not registered are logged and skipped.
func selectAdapters(cfg *config.Config, registry *source.Registry, logger zerolog.Logger) []source.Adapter {
	adapters, missing := registry.Select(cfg.ProviderList())
	for _, name := range missing {
		logger.Warn().
			Str("provider", name).
			Strs("available", registry.Names()).
			Msg("provider selected in NEWS_PROVIDERS is not available; check its API key")
	}
	return adapters
}

func directorySeeds(dir *company.Directory) []db.CompanySeed {
	if dir == nil {
		return nil
	}
	seeds := make([]db.CompanySeed, 0, len(dir.Companies))
	for _, entry := range dir.Companies {
		seeds = append(seeds, db.CompanySeed{
			Slug:          entry.Slug,
			CanonicalName: entry.Name,
			CIK:           entry.CIK,
		})
	}
	return seeds
}

// ensureCompanies inserts directory companies missing from the database.
func ensureCompanies(ctx context.Context, pool *db.Pool, dir *company.Directory, logger zerolog.Logger) error {
	if pool == nil {
		return fmt.Errorf("ensure companies: missing database pool")
	}
	created, err := pool.SeedCompanies(ctx, directorySeeds(dir))
	if err != nil {
		return err
	}
	if created > 0 {
		logger.Info().Int64("created", created).Msg("seeded tracked companies")
	}
	return nil
}

// components are the long-lived pieces a running process shares.
type components struct {
	pool     *db.Pool
	pipeline *ingest.Pipeline
	registry *source.Registry
	close    func()
}

func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	dir, err := company.LoadDirectory(cfg.CompaniesFile)
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := ensureCompanies(ctx, pool, dir, logger); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("seed companies: %w", err)
	}

	responses, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("open response cache: %w", err)
	}

	registry, err := buildRegistry(cfg, dir, responses, logger)
	if err != nil {
		closeCache()
		_ = pool.Close()
		return nil, fmt.Errorf("build provider registry: %w", err)
	}

	pipeline := ingest.New(ingest.Config{
		Adapters:  selectAdapters(cfg, registry, logger),
		Store:     pool,
		Companies: pool,
		Directory: dir,
		Runs:      pool,
		Scorer:    priority.NewScorer(cfg.PriorityDefaultWeight, nil),
		Telemetry: telemetry.Multi{
			telemetry.NewLogSink(logger),
			telemetry.NewDBSink(pool, 0, logger),
		},
		Lookback:       cfg.Lookback,
		AdapterTimeout: cfg.AdapterTimeout,
		Parallel:       cfg.Parallel,
		Logger:         logger,
	})

	return &components{
		pool:     pool,
		pipeline: pipeline,
		registry: registry,
		close: func() {
			closeCache()
			_ = pool.Close()
		},
	}, nil
}
