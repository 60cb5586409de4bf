package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vmud/newshub/internal/cli"
	"github.com/vmud/newshub/internal/ingest"
	"github.com/vmud/newshub/internal/news"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	scheduled := fs.Bool("scheduled", false, "Mark the run as scheduled in run records and telemetry")
	providers := fs.String("providers", "", "Comma-separated providers to run (default: all configured)")
	since := fs.String("since", "", "Only fetch items published after this time (RFC3339 or YYYY-MM-DD)")
	timeout := fs.Duration("timeout", 15*time.Minute, "Command timeout")
	quiet := fs.Bool("quiet", false, "Do not print the run summary JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	sinceTime, err := parseSince(*since)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --since: %v\n", err)
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, *timeout)
	defer timeoutCancel()

	deps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("ingest setup failed")
		fmt.Fprintf(os.Stderr, "Ingest setup failed: %v\n", err)
		return 1
	}
	defer deps.close()

	summary, runErr := deps.pipeline.Run(ctx, ingest.RunOptions{
		Scheduled: *scheduled,
		Since:     sinceTime,
		Providers: splitCSV(*providers),
	})

	if !*quiet {
		encoded, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode summary: %v\n", err)
			return 1
		}
		fmt.Println(string(encoded))
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", runErr)
		return 1
	}
	switch summary.Outcome() {
	case news.OutcomeFailure:
		fmt.Fprintln(os.Stderr, "Ingestion failed: every provider failed")
		return 1
	case news.OutcomePartialSuccess:
		fmt.Fprintf(os.Stderr, "Ingestion partially succeeded: %s\n", strings.Join(summary.Errors, "; "))
	}
	return 0
}

func parseSince(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339 or YYYY-MM-DD")
	}
	return day.UTC(), nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
