package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/store"
	"listingsync/internal/services/search/domain"

	"github.com/google/uuid"
)

type fakeCH struct {
	table string
	rows  [][]any
	sql   []string
	args  []any
	err   error
	found []uuid.UUID
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table, f.rows = table, rows
	return f.err
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.sql = append(f.sql, sql)
	return f.err
}

func (f *fakeCH) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	f.sql, f.args = append(f.sql, sql), args
	if f.err != nil {
		return nil, f.err
	}
	return &idRows{ids: f.found, at: -1}, nil
}

func (f *fakeCH) Close() error { return nil }

type idRows struct {
	ids []uuid.UUID
	at  int
}

func (r *idRows) Next() bool { r.at++; return r.at < len(r.ids) }
func (r *idRows) Scan(dest ...any) error {
	*(dest[0].(*uuid.UUID)) = r.ids[r.at]
	return nil
}
func (r *idRows) Err() error        { return nil }
func (r *idRows) Close()            {}
func (r *idRows) Columns() []string { return []string{"id"} }

func TestUpsert_RowInTableOrder(t *testing.T) {
	f := &fakeCH{}
	id := uuid.New()
	ts := time.Unix(5, 0).UTC()
	doc := domain.Document{Title: "golf", Active: true, FirstSeen: ts, LastSeen: ts, LastUpdated: ts, Version: 5_000_000}

	if err := NewCH(f).Upsert(context.Background(), id, doc); err != nil {
		t.Fatal(err)
	}
	if f.table != Table || len(f.rows) != 1 || len(f.rows[0]) != 14 {
		t.Fatalf("insert %s %v", f.table, f.rows)
	}
	row := f.rows[0]
	if row[0] != id || row[1] != "golf" || row[13] != uint64(5_000_000) {
		t.Fatalf("row %v", row)
	}
	if s, ok := row[9].([]string); !ok || s == nil {
		t.Fatalf("sources must be a non-nil slice: %#v", row[9])
	}
}

func TestErrorsAreClassified(t *testing.T) {
	f := &fakeCH{err: errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")}
	err := NewCH(f).Upsert(context.Background(), uuid.New(), domain.Document{})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
	f.err = errors.New("code: 60, table does not exist")
	if err := NewCH(f).Migrate(context.Background()); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("want db, got %v", err)
	}
}

func TestSearch_BuildsTokenFilters(t *testing.T) {
	want := uuid.New()
	f := &fakeCH{found: []uuid.UUID{want}}
	hits, err := NewCH(f).Search(context.Background(), "BMW  320d", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != want {
		t.Fatalf("hits %v", hits)
	}
	q := f.sql[0]
	if strings.Count(q, "positionCaseInsensitiveUTF8") != 2 || !strings.Contains(q, "FINAL") {
		t.Fatalf("sql %s", q)
	}
	if len(f.args) != 3 || f.args[0] != "bmw" || f.args[2] != 20 {
		t.Fatalf("args %v", f.args)
	}

	if hits, err := NewCH(f).Search(context.Background(), " ", 5); hits != nil || err != nil {
		t.Fatalf("blank query: %v %v", hits, err)
	}
}
