package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:           "postgres://localhost/newshub",
		DBMinConns:            1,
		DBMaxConns:            4,
		HTTPPort:              8090,
		Providers:             "ai-news,gdelt",
		Lookback:              168 * time.Hour,
		UpstreamTimeout:       30 * time.Second,
		AdapterTimeout:        5 * time.Minute,
		PriorityDefaultWeight: 70,
		AIMaxRequests:         8,
		PPLXMaxRequests:       8,
		MaxLinksPerProvider:   25,
		GDELTCacheTTL:         time.Hour,
		EDGARMaxPerCompany:    10,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = " " }, wantErr: "DATABASE_URL"},
		{name: "min above max", mutate: func(c *Config) { c.DBMinConns = 9 }, wantErr: "cannot exceed"},
		{name: "no providers", mutate: func(c *Config) { c.Providers = " , " }, wantErr: "NEWS_PROVIDERS"},
		{name: "zero timeout", mutate: func(c *Config) { c.UpstreamTimeout = 0 }, wantErr: "UPSTREAM_TIMEOUT"},
		{name: "adapter timeout below upstream", mutate: func(c *Config) { c.AdapterTimeout = time.Second }, wantErr: "INGEST_ADAPTER_TIMEOUT"},
		{name: "zero ai budget", mutate: func(c *Config) { c.AIMaxRequests = 0 }, wantErr: "AI_MAX_REQUESTS_PER_RUN"},
		{name: "zero link cap", mutate: func(c *Config) { c.MaxLinksPerProvider = 0 }, wantErr: "NEWS_MAX_LINKS"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestProviderListNormalizesAndDedupes(t *testing.T) {
	t.Parallel()

	cfg := Config{Providers: " GDELT, ai-news,gdelt,, sec_edgar "}
	got := cfg.ProviderList()
	want := []string{"gdelt", "ai-news", "sec_edgar"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ProviderList() = %v, want %v", got, want)
	}
}

func TestEDGARAgentFallback(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	if got := cfg.EDGARAgent(); got != "NewsHub/1.0" {
		t.Fatalf("EDGARAgent() = %q", got)
	}
	cfg.EDGARUserAgent = "Acme Research ops@acme.test"
	if got := cfg.EDGARAgent(); got != "Acme Research ops@acme.test" {
		t.Fatalf("EDGARAgent() = %q", got)
	}
}
