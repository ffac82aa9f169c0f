package store

import (
	"context"
	"errors"
	"time"

	"listingsync/internal/platform/logger"
	"listingsync/internal/platform/store/ch"
)

// chConn is the slice of *ch.CH the adapter needs; tests swap in a fake
type chConn interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// clickhouseAdapter adapts ch to the store.Clickhouse interface with optional tracing
type clickhouseAdapter struct {
	inner chConn
	log   logger.Logger
	trace bool
}

var _ Clickhouse = (*clickhouseAdapter)(nil)

func newCHAdapter(c chConn) *clickhouseAdapter {
	return &clickhouseAdapter{inner: c}
}

func (a *clickhouseAdapter) Insert(ctx context.Context, table string, rows [][]any) error {
	start := time.Now()
	err := a.inner.Insert(ctx, table, rows)
	a.emit("insert "+table, start, err, len(rows))
	return err
}

func (a *clickhouseAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	start := time.Now()
	err := a.inner.Exec(ctx, sql, args...)
	a.emit(sql, start, err, -1)
	return err
}

func (a *clickhouseAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	r, err := a.inner.Query(ctx, sql, args...)
	a.emit(sql, start, err, -1)
	if err != nil {
		return nil, err
	}
	return &chRows{r: r}, nil
}

// Ping verifies connectivity with ClickHouse
func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil clickhouse adapter")
	}
	return a.inner.Ping(ctx)
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

func (a *clickhouseAdapter) emit(what string, start time.Time, err error, n int) {
	if !a.trace {
		return
	}
	ev := a.log.Debug()
	if err != nil {
		ev = a.log.Warn().Err(err)
	}
	if n >= 0 {
		ev = ev.Int("rows", n)
	}
	ev.Dur("elapsed", time.Since(start)).Str("sql", what).Msg("ch query")
}

// chRows narrows ch.Rows to store.Rows
type chRows struct {
	r ch.Rows
}

func (r *chRows) Next() bool             { return r.r.Next() }
func (r *chRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r *chRows) Err() error             { return r.r.Err() }
func (r *chRows) Close()                 { _ = r.r.Close() }
func (r *chRows) Columns() []string      { return r.r.Columns() }
