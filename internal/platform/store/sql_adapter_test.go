package store

import (
	"context"
	"errors"
	"testing"

	"listingsync/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recTracer struct{ events []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

type scanRow struct{ err error }

func (s scanRow) Scan(dst ...any) error {
	if s.err != nil {
		return s.err
	}
	*(dst[0].(*int)) = 7
	return nil
}

// fakeConn stands in for a pool or tx
type fakeConn struct {
	tag      string
	err      error
	rowErr   error
	queryErr error
}

func (f fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(f.tag), f.err
}

func (f fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func (f fakeConn) QueryRow(context.Context, string, ...any) pgx.Row { return scanRow{err: f.rowErr} }

func TestTraced_ExecReportsTagAndEvent(t *testing.T) {
	tr := &recTracer{}
	q := traced{conn: fakeConn{tag: "INSERT 0 1"}, tracer: tr, slowUS: 0}

	ct, err := q.Exec(context.Background(), "INSERT INTO ingest_runs VALUES ($1)", "r1")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if ct.RowsAffected() != 1 {
		t.Fatalf("RowsAffected = %d", ct.RowsAffected())
	}
	if len(tr.events) != 1 || tr.events[0].SQL != "INSERT INTO ingest_runs VALUES ($1)" {
		t.Fatalf("events = %+v", tr.events)
	}
	// slowUS 0 marks everything slow
	if !tr.events[0].Slow {
		t.Fatalf("expected slow event")
	}
}

func TestTraced_NegativeSlowDisables(t *testing.T) {
	tr := &recTracer{}
	q := traced{conn: fakeConn{tag: "UPDATE 1"}, tracer: tr, slowUS: -1000}
	_, _ = q.Exec(context.Background(), "UPDATE x")
	if tr.events[0].Slow {
		t.Fatalf("negative threshold should never flag slow")
	}
}

func TestTraced_QueryRowEmitsAfterScan(t *testing.T) {
	tr := &recTracer{}
	boom := errors.New("no rows")
	q := traced{conn: fakeConn{rowErr: boom}, tracer: tr}

	r := q.QueryRow(context.Background(), "SELECT 1")
	if len(tr.events) != 0 {
		t.Fatalf("emitted before Scan")
	}
	var n int
	if err := r.Scan(&n); !errors.Is(err, boom) {
		t.Fatalf("Scan err = %v", err)
	}
	if len(tr.events) != 1 || !errors.Is(tr.events[0].Err, boom) {
		t.Fatalf("events = %+v", tr.events)
	}
}

func TestTraced_QueryErrorAndNoTracer(t *testing.T) {
	q := traced{conn: fakeConn{queryErr: errors.New("down")}}
	if _, err := q.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatalf("expected error")
	}
	var n int
	if err := q.QueryRow(context.Background(), "SELECT 1").Scan(&n); err != nil || n != 7 {
		t.Fatalf("QueryRow = %d, %v", n, err)
	}
}

func TestPGAdapter_NilPing(t *testing.T) {
	var a *pgAdapter
	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("nil adapter should fail ping")
	}
}
