// Package telemetry records named events about ingestion runs. Sinks never
// return errors to callers: a lost event must not fail a run.
package telemetry

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vmud/newshub/internal/logging"
)

const (
	EventIngestRun         = "ingest_run"
	EventProviderError     = "provider_error"
	EventSkippedInvalidURL = "article_skipped_invalid_url"

	maxTitleRunes  = 100
	defaultTimeout = 2 * time.Second
)

type Sink interface {
	Track(ctx context.Context, name string, payload map[string]any)
}

// EventWriter persists one encoded event.
type EventWriter interface {
	InsertTelemetryEvent(ctx context.Context, name string, payload json.RawMessage) error
}

// DBSink writes events through an EventWriter under a short timeout.
type DBSink struct {
	writer  EventWriter
	timeout time.Duration
	logger  zerolog.Logger
}

func NewDBSink(writer EventWriter, timeout time.Duration, logger zerolog.Logger) *DBSink {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DBSink{
		writer:  writer,
		timeout: timeout,
		logger:  logging.Component(logger, "telemetry"),
	}
}

func (s *DBSink) Track(ctx context.Context, name string, payload map[string]any) {
	if s == nil || s.writer == nil {
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", name).Msg("encode telemetry event")
		return
	}

	// Detached from the caller's cancellation so a run that just timed out
	// still records why.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.writer.InsertTelemetryEvent(writeCtx, name, encoded); err != nil {
		s.logger.Warn().Err(err).Str("event", name).Msg("telemetry write failed")
	}
}

// LogSink writes events as structured log lines.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logging.Component(logger, "telemetry")}
}

func (s *LogSink) Track(_ context.Context, name string, payload map[string]any) {
	if s == nil {
		return
	}
	s.logger.Info().Str("event", name).Fields(payload).Msg("telemetry event")
}

// Multi fans each event out to every sink in order.
type Multi []Sink

func (m Multi) Track(ctx context.Context, name string, payload map[string]any) {
	for _, sink := range m {
		if sink != nil {
			sink.Track(ctx, name, payload)
		}
	}
}

type Nop struct{}

func (Nop) Track(context.Context, string, map[string]any) {}

func IngestRun(provider string, itemCount int, dedupeRatePct float64, scheduled bool) map[string]any {
	return map[string]any{
		"provider":    provider,
		"item_count":  itemCount,
		"dedupe_rate": dedupeRatePct,
		"scheduled":   scheduled,
	}
}

func ProviderError(provider, kind, message string) map[string]any {
	return map[string]any{
		"provider": provider,
		"type":     kind,
		"error":    message,
	}
}

func SkippedInvalidURL(provider, reason, title string) map[string]any {
	return map[string]any{
		"provider": provider,
		"reason":   reason,
		"title":    TruncateRunes(title, maxTitleRunes),
	}
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
