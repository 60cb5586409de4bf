package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vmud/newshub/internal/news"
)

type stubRow struct {
	id  int64
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.id
	return nil
}

func TestUpsertStatus(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset by peer")
	cases := []struct {
		name    string
		row     stubRow
		want    UpsertStatus
		wantErr bool
	}{
		{"returned id", stubRow{id: 17}, UpsertInserted, false},
		{"conflict returns no row", stubRow{err: ErrNoRows}, UpsertDuplicate, false},
		{"wrapped no rows", stubRow{err: fmt.Errorf("scan: %w", ErrNoRows)}, UpsertDuplicate, false},
		{"concurrent unique violation", stubRow{err: &pgconn.PgError{Code: "23505"}}, UpsertDuplicate, false},
		{"other error", stubRow{err: boom}, UpsertFailed, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := upsertStatus(tc.row, "https://reuters.com/a")
			if got != tc.want {
				t.Fatalf("upsertStatus() = %q, want %q", got, tc.want)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("upsertStatus() err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr && !errors.Is(err, boom) {
				t.Fatalf("expected the scan error to be wrapped, got %v", err)
			}
		})
	}
}

func TestUpsertStatusInsertedThenDuplicate(t *testing.T) {
	t.Parallel()

	// Second insert of the same url_norm hits ON CONFLICT DO NOTHING and returns nothing.
	rows := []stubRow{{id: 1}, {err: ErrNoRows}}
	want := []UpsertStatus{UpsertInserted, UpsertDuplicate}
	for i, row := range rows {
		got, err := upsertStatus(row, "https://theverge.com/pixel")
		if err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("attempt %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestUpsertArticleRequiresURLNorm(t *testing.T) {
	t.Parallel()

	var pool *Pool
	status, err := pool.UpsertArticle(context.Background(), news.StoredArticle{Title: "Pixel 9 launch", URLNorm: "  "})
	if status != UpsertFailed || err == nil {
		t.Fatalf("UpsertArticle() = %q, %v; want failed with error", status, err)
	}
}
