package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewParsesLevel(t *testing.T) {
	t.Parallel()

	logger, err := New("production", " WARN ")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level = %s, want warn", logger.GetLevel())
	}
	if _, err := New("local", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestWriterForLocalIsConsole(t *testing.T) {
	t.Parallel()

	if _, ok := writerFor("local").(zerolog.ConsoleWriter); !ok {
		t.Fatalf("local environment should use the console writer")
	}
	if _, ok := writerFor("production").(zerolog.ConsoleWriter); ok {
		t.Fatalf("production should log JSON")
	}
}
