package globaltime

import (
	"testing"
	"time"
)

func TestSetMockTimePinsClock(t *testing.T) {
	pinned := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	SetMockTime(pinned)
	defer ResetTime()

	if got := Now(); !got.Equal(pinned) {
		t.Fatalf("Now() = %v, want %v", got, pinned)
	}
	if got := UTC(); got.Location() != time.UTC || !got.Equal(pinned) {
		t.Fatalf("UTC() = %v", got)
	}
	if got := Since(pinned.Add(-time.Hour)); got != time.Hour {
		t.Fatalf("Since() = %v, want 1h", got)
	}
}
