package store

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"listingsync/internal/platform/logger"
	"listingsync/internal/platform/store/ch"
	"listingsync/internal/platform/testkit"
)

type fakeCH struct {
	inserted map[string][][]any
	execs    []string
	pingErr  error
	queryErr error
	closed   bool
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if f.inserted == nil {
		f.inserted = map[string][][]any{}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	return nil
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	return nil, f.queryErr
}

func (f *fakeCH) Ping(context.Context) error { return f.pingErr }
func (f *fakeCH) Close() error               { f.closed = true; return nil }

func TestCHAdapter_Delegates(t *testing.T) {
	f := &fakeCH{}
	a := newCHAdapter(f)
	ctx := context.Background()

	if err := a.Insert(ctx, "listing_search", [][]any{{"a", 1}, {"b", 2}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := len(f.inserted["listing_search"]); got != 2 {
		t.Fatalf("inserted rows = %d", got)
	}
	if err := a.Exec(ctx, "OPTIMIZE TABLE listing_search FINAL"); err != nil || len(f.execs) != 1 {
		t.Fatalf("exec: %v %v", err, f.execs)
	}

	f.queryErr = errors.New("boom")
	if _, err := a.Query(ctx, "SELECT 1"); err == nil {
		t.Fatalf("query error should surface")
	}

	f.pingErr = errors.New("down")
	if err := a.Ping(ctx); err == nil {
		t.Fatalf("ping error should surface")
	}
	_ = a.Close()
	if !f.closed {
		t.Fatalf("close should delegate")
	}
}

func TestCHAdapter_TraceLogs(t *testing.T) {
	var buf bytes.Buffer
	a := newCHAdapter(&fakeCH{})
	a.log = logger.New(logger.Options{Level: "debug", Writer: &buf})
	a.trace = true

	_ = a.Insert(context.Background(), "listing_search", [][]any{{1}})
	testkit.MustContain(t, buf.String(), `"sql":"insert listing_search"`)
	testkit.MustContain(t, buf.String(), `"rows":1`)
}

func TestCHAdapter_NilPing(t *testing.T) {
	var a *clickhouseAdapter
	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("nil adapter ping should error")
	}
}
