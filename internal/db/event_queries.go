package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

func (p *Pool) InsertTelemetryEvent(ctx context.Context, name string, payload json.RawMessage) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("insert telemetry event: name is required")
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	const q = `
INSERT INTO newshub.telemetry_events (event_name, payload, created_at)
VALUES ($1, $2::jsonb, now())
`
	if _, err := p.Exec(ctx, q, name, string(payload)); err != nil {
		return fmt.Errorf("insert telemetry event %s: %w", name, err)
	}
	return nil
}
