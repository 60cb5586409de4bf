package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"NEWSHUB_ENV" default:"local"`
	LogLevel    string `envconfig:"NEWSHUB_LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"NEWSHUB_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NEWSHUB_DB_MAX_CONNS" default:"8"`

	HTTPHost            string        `envconfig:"NEWSHUB_HTTP_HOST" default:"0.0.0.0"`
	HTTPPort            int           `envconfig:"NEWSHUB_HTTP_PORT" default:"8090"`
	HTTPShutdownTimeout time.Duration `envconfig:"NEWSHUB_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	// Ingestion triggered over HTTP can take minutes.
	HTTPWriteTimeout   time.Duration `envconfig:"NEWSHUB_HTTP_WRITE_TIMEOUT" default:"10m"`
	CORSAllowedOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:""`

	RedisURL string `envconfig:"REDIS_URL" default:""`

	Providers       string        `envconfig:"NEWS_PROVIDERS" default:"ai-news,gdelt"`
	Lookback        time.Duration `envconfig:"INGEST_LOOKBACK" default:"168h"`
	Parallel        bool          `envconfig:"INGEST_PARALLEL" default:"false"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	AdapterTimeout  time.Duration `envconfig:"INGEST_ADAPTER_TIMEOUT" default:"5m"`
	CompaniesFile   string        `envconfig:"COMPANIES_FILE" default:""`

	PriorityDefaultWeight int `envconfig:"PRIORITY_DEFAULT_WEIGHT" default:"70"`

	AIAPIKey         string  `envconfig:"AI_API_KEY" default:""`
	AIModel          string  `envconfig:"AI_MODEL" default:"claude-3-5-haiku-latest"`
	AIFallbackModel  string  `envconfig:"AI_FALLBACK_MODEL" default:""`
	AIMaxRequests    int     `envconfig:"AI_MAX_REQUESTS_PER_RUN" default:"8"`
	AIMaxTokens      int     `envconfig:"AI_MAX_TOKENS" default:"2000"`
	AITemperature    float64 `envconfig:"AI_TEMPERATURE" default:"0.1"`
	AIMaxItemsPerAsk int     `envconfig:"AI_MAX_ITEMS_PER_REQUEST" default:"10"`

	PPLXAPIKey        string `envconfig:"PPLX_API_KEY" default:""`
	PPLXEndpoint      string `envconfig:"PPLX_ENDPOINT" default:"https://api.perplexity.ai/chat/completions"`
	PPLXModel         string `envconfig:"PPLX_MODEL" default:"llama-3.1-sonar-small-128k-online"`
	PPLXMaxRequests   int    `envconfig:"PPLX_MAX_REQUESTS_PER_RUN" default:"8"`
	PPLXSearchDomains string `envconfig:"PPLX_SEARCH_DOMAINS" default:"techcrunch.com,theverge.com,engadget.com,androidcentral.com,reuters.com,bloomberg.com,cnbc.com,wsj.com"`

	GDELTBaseURL         string        `envconfig:"GDELT_BASE_URL" default:"https://api.gdeltproject.org/api/v2/doc/doc"`
	GDELTCacheTTL        time.Duration `envconfig:"GDELT_CACHE_TTL" default:"1h"`
	MaxLinksPerProvider  int           `envconfig:"NEWS_MAX_LINKS_PER_PROVIDER_PER_RUN" default:"25"`
	EDGARUserAgent       string        `envconfig:"EDGAR_USER_AGENT" default:""`
	EDGARBaseURL         string        `envconfig:"EDGAR_BASE_URL" default:"https://www.sec.gov"`
	EDGARMaxPerCompany   int           `envconfig:"EDGAR_MAX_FILINGS_PER_COMPANY" default:"10"`
	EDGARLookbackDefault time.Duration `envconfig:"EDGAR_LOOKBACK" default:"720h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("NEWSHUB_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NEWSHUB_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NEWSHUB_DB_MIN_CONNS (%d) cannot exceed NEWSHUB_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("NEWSHUB_HTTP_PORT must be between 1 and 65535")
	}
	if len(c.ProviderList()) == 0 {
		return fmt.Errorf("NEWS_PROVIDERS must name at least one provider")
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("INGEST_LOOKBACK must be > 0")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	if c.AdapterTimeout < c.UpstreamTimeout {
		return fmt.Errorf("INGEST_ADAPTER_TIMEOUT must be >= UPSTREAM_TIMEOUT")
	}
	if c.PriorityDefaultWeight < 0 {
		return fmt.Errorf("PRIORITY_DEFAULT_WEIGHT must be >= 0")
	}
	if c.AIMaxRequests < 1 {
		return fmt.Errorf("AI_MAX_REQUESTS_PER_RUN must be >= 1")
	}
	if c.PPLXMaxRequests < 1 {
		return fmt.Errorf("PPLX_MAX_REQUESTS_PER_RUN must be >= 1")
	}
	if c.MaxLinksPerProvider < 1 {
		return fmt.Errorf("NEWS_MAX_LINKS_PER_PROVIDER_PER_RUN must be >= 1")
	}
	if c.GDELTCacheTTL <= 0 {
		return fmt.Errorf("GDELT_CACHE_TTL must be > 0")
	}
	if c.EDGARMaxPerCompany < 1 {
		return fmt.Errorf("EDGAR_MAX_FILINGS_PER_COMPANY must be >= 1")
	}
	return nil
}

// ProviderList returns NEWS_PROVIDERS lowercased, in configured order, without duplicates.
func (c *Config) ProviderList() []string {
	if c == nil {
		return nil
	}
	return splitList(strings.ToLower(c.Providers))
}

func (c *Config) PPLXSearchDomainList() []string {
	if c == nil {
		return nil
	}
	return splitList(strings.ToLower(c.PPLXSearchDomains))
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func (c *Config) EDGARAgent() string {
	if c == nil || strings.TrimSpace(c.EDGARUserAgent) == "" {
		return "NewsHub/1.0"
	}
	return strings.TrimSpace(c.EDGARUserAgent)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
