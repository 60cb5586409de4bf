package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// IngestionRunRecord is the per-adapter outcome of one run.
type IngestionRunRecord struct {
	RunID         string    `json:"run_id"`
	Provider      string    `json:"provider"`
	ItemCount     int       `json:"item_count"`
	Submitted     int       `json:"submitted"`
	Duplicates    int       `json:"duplicates"`
	DedupeRatePct float64   `json:"dedupe_rate"`
	Scheduled     bool      `json:"scheduled"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"ts"`
}

func (p *Pool) InsertIngestionRun(ctx context.Context, r IngestionRunRecord) error {
	const q = `
INSERT INTO newshub.ingestion_runs (
	run_uuid,
	provider,
	item_count,
	submitted,
	duplicates,
	dedupe_rate,
	scheduled,
	error_kind,
	error_message,
	ts
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
`

	if _, err := p.Exec(ctx, q,
		r.RunID,
		r.Provider,
		r.ItemCount,
		r.Submitted,
		r.Duplicates,
		r.DedupeRatePct,
		r.Scheduled,
		strings.TrimSpace(r.ErrorKind),
		strings.TrimSpace(r.ErrorMessage),
		r.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("insert ingestion run for %s: %w", r.Provider, err)
	}
	return nil
}

// RecentIngestionRuns lists run records newest first.
func (p *Pool) RecentIngestionRuns(ctx context.Context, limit int) ([]IngestionRunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	run_uuid::text,
	provider,
	item_count,
	submitted,
	duplicates,
	dedupe_rate,
	scheduled,
	COALESCE(error_kind, ''),
	COALESCE(error_message, ''),
	ts
FROM newshub.ingestion_runs
ORDER BY ts DESC, ingestion_run_id DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingestion runs: %w", err)
	}
	defer rows.Close()

	records := make([]IngestionRunRecord, 0, limit)
	for rows.Next() {
		var r IngestionRunRecord
		if err := rows.Scan(
			&r.RunID,
			&r.Provider,
			&r.ItemCount,
			&r.Submitted,
			&r.Duplicates,
			&r.DedupeRatePct,
			&r.Scheduled,
			&r.ErrorKind,
			&r.ErrorMessage,
			&r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan ingestion run: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingestion runs: %w", err)
	}
	return records, nil
}
