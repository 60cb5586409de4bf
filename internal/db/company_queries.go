package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/vmud/newshub/internal/news"
)

// CompanySeed is one company to make sure exists.
type CompanySeed struct {
	Slug          string
	CanonicalName string
	CIK           string
}

// ListCompanies returns every tracked company ordered by ID.
func (p *Pool) ListCompanies(ctx context.Context) ([]news.Company, error) {
	const q = `
SELECT company_id, canonical_name
FROM newshub.companies
ORDER BY company_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []news.Company
	for rows.Next() {
		var c news.Company
		if err := rows.Scan(&c.ID, &c.CanonicalName); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

// SeedCompanies inserts missing companies in one transaction and returns how
// many rows were created. Existing rows are not modified.
func (p *Pool) SeedCompanies(ctx context.Context, seeds []CompanySeed) (int64, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
INSERT INTO newshub.companies (slug, canonical_name, cik, created_at)
VALUES ($1, $2, NULLIF($3, ''), now())
ON CONFLICT DO NOTHING
`

	var created int64
	for _, seed := range seeds {
		slug := strings.TrimSpace(seed.Slug)
		name := strings.TrimSpace(seed.CanonicalName)
		if slug == "" || name == "" {
			return 0, fmt.Errorf("seed company: slug and name are required")
		}
		tag, err := tx.Exec(ctx, q, slug, name, strings.TrimSpace(seed.CIK))
		if err != nil {
			return 0, fmt.Errorf("seed company %s: %w", slug, err)
		}
		created += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit seed transaction: %w", err)
	}
	return created, nil
}
