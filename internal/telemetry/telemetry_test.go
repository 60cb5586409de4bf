package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingWriter struct {
	mu       sync.Mutex
	names    []string
	payloads []json.RawMessage
	deadline bool
	err      error
}

func (w *recordingWriter) InsertTelemetryEvent(ctx context.Context, name string, payload json.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, w.deadline = ctx.Deadline()
	w.names = append(w.names, name)
	w.payloads = append(w.payloads, payload)
	return w.err
}

type countingSink struct {
	events []string
}

func (s *countingSink) Track(_ context.Context, name string, _ map[string]any) {
	s.events = append(s.events, name)
}

func TestDBSinkWritesEncodedPayloadWithDeadline(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	sink := NewDBSink(writer, time.Second, zerolog.Nop())
	sink.Track(context.Background(), EventIngestRun, IngestRun("gdelt", 4, 50, true))

	if len(writer.names) != 1 || writer.names[0] != EventIngestRun {
		t.Fatalf("unexpected events: %v", writer.names)
	}
	if !writer.deadline {
		t.Fatalf("expected write to run under a deadline")
	}

	var decoded map[string]any
	if err := json.Unmarshal(writer.payloads[0], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["provider"] != "gdelt" || decoded["item_count"] != float64(4) || decoded["scheduled"] != true {
		t.Fatalf("unexpected payload: %v", decoded)
	}
}

func TestDBSinkSurvivesWriterFailureAndCanceledContext(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{err: errors.New("database is down")}
	sink := NewDBSink(writer, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Track(ctx, EventProviderError, ProviderError("ai-news", "timeout", "deadline exceeded"))

	if len(writer.names) != 1 {
		t.Fatalf("expected the write to be attempted, got %d", len(writer.names))
	}
}

func TestNilSinksAreSafe(t *testing.T) {
	t.Parallel()

	var db *DBSink
	db.Track(context.Background(), EventIngestRun, nil)
	var logs *LogSink
	logs.Track(context.Background(), EventIngestRun, nil)
	Nop{}.Track(context.Background(), EventIngestRun, nil)
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	first := &countingSink{}
	second := &countingSink{}
	Multi{first, nil, second}.Track(context.Background(), EventSkippedInvalidURL, nil)

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both sinks to receive the event: %v %v", first.events, second.events)
	}
}

func TestSkippedInvalidURLTruncatesTitle(t *testing.T) {
	t.Parallel()

	title := strings.Repeat("é", 150)
	payload := SkippedInvalidURL("ai-news", "invalid_url", title)

	got, _ := payload["title"].(string)
	if n := len([]rune(got)); n != 100 {
		t.Fatalf("expected 100 runes, got %d", n)
	}
	if payload["reason"] != "invalid_url" {
		t.Fatalf("unexpected reason: %v", payload["reason"])
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := TruncateRunes("short", 100); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := TruncateRunes("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := TruncateRunes("abc", 0); got != "" {
		t.Fatalf("unexpected %q", got)
	}
}
