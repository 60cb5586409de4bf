package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmud/newshub/internal/news"
)

// UpsertStatus is the outcome of storing one article.
type UpsertStatus string

const (
	UpsertInserted  UpsertStatus = "inserted"
	UpsertDuplicate UpsertStatus = "duplicate"
	UpsertFailed    UpsertStatus = "failed"
)

// UpsertArticle inserts a by url_norm. An existing row with the same key is
// left untouched and reported as a duplicate; any other error is a failure.
func (p *Pool) UpsertArticle(ctx context.Context, a news.StoredArticle) (UpsertStatus, error) {
	if strings.TrimSpace(a.URLNorm) == "" {
		return UpsertFailed, fmt.Errorf("upsert article: url_norm is required")
	}

	payload := a.RawPayload
	if len(payload) == 0 || !json.Valid(payload) {
		payload = json.RawMessage(`{}`)
	}

	const q = `
INSERT INTO newshub.articles (
	company_id,
	title,
	url,
	url_norm,
	source_domain,
	published_at,
	priority,
	provider,
	raw_payload,
	low_confidence,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, now())
ON CONFLICT (url_norm) DO NOTHING
RETURNING article_id
`

	row := p.QueryRow(ctx, q,
		a.CompanyID,
		a.Title,
		a.URL,
		a.URLNorm,
		a.SourceDomain,
		a.PublishedAt.UTC(),
		a.Priority,
		a.Provider,
		string(payload),
		a.LowConfidence,
	)
	return upsertStatus(row, a.URLNorm)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// upsertStatus maps the RETURNING row: a returned id is an insert, no row or
// a unique violation from a concurrent writer is a duplicate.
func upsertStatus(row rowScanner, urlNorm string) (UpsertStatus, error) {
	var articleID int64
	err := row.Scan(&articleID)
	switch {
	case err == nil:
		return UpsertInserted, nil
	case IsNoRows(err), IsUniqueViolation(err):
		return UpsertDuplicate, nil
	default:
		return UpsertFailed, fmt.Errorf("upsert article %s: %w", urlNorm, err)
	}
}
