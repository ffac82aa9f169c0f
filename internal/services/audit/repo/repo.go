// Package repo persists the audit trail in postgres
package repo

import (
	"context"
	_ "embed"
	"time"

	"listingsync/internal/modkit/repokit"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/store"
	"listingsync/internal/services/audit/domain"

	"github.com/google/uuid"
)

// Schema creates the audit tables and the append-only trigger
//
//go:embed schema.sql
var Schema string

// Repo is the audit persistence surface
type Repo interface {
	InsertRun(ctx context.Context, o domain.RunOutcome) error
	InsertFailure(ctx context.Context, f domain.RecordFailure) error
	Runs(ctx context.Context, f domain.Filter) ([]domain.RunOutcome, error)
	Run(ctx context.Context, id uuid.UUID) (domain.RunOutcome, error)
	Failures(ctx context.Context, runID uuid.UUID) ([]domain.RecordFailure, error)
}

type (
	// PG binds the repo to a Queryer
	PG struct{}
	// queries implements Repo on a Queryer
	queries struct{ q repokit.Queryer }
)

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Migrate applies Schema
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, Schema)
	return perr.FromPostgres(err, "migrate audit")
}

const runCols = `id, source, status, message, duration_ms, found, new, updated, skipped, retried,
	index_failures, detail, started_at, completed_at`

func (r *queries) InsertRun(ctx context.Context, o domain.RunOutcome) error {
	var detail any
	if len(o.Detail) > 0 {
		detail = string(o.Detail)
	}
	_, err := r.q.Exec(ctx, `insert into ingest_runs (`+runCols+`)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13, $14)`,
		o.ID, o.Source, string(o.Status), o.Message, o.Duration.Milliseconds(),
		o.Counts.Found, o.Counts.New, o.Counts.Updated, o.Counts.Skipped, o.Counts.Retried,
		o.Counts.IndexFailures, detail, o.StartedAt, o.CompletedAt)
	return perr.FromPostgresf(err, "append run %s", o.ID)
}

func (r *queries) InsertFailure(ctx context.Context, f domain.RecordFailure) error {
	_, err := r.q.Exec(ctx, `
insert into ingest_record_failures (id, run_id, source, kind, field, error, payload, needs_review, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.RunID, f.Source, f.Kind, f.Field, f.Error, f.Payload, f.NeedsReview, f.CreatedAt)
	return perr.FromPostgresf(err, "append failure for run %s", f.RunID)
}

func (r *queries) Runs(ctx context.Context, f domain.Filter) ([]domain.RunOutcome, error) {
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}
	out, err := store.Many(ctx, r.q, scanRun, `
select `+runCols+`
from ingest_runs
where ($1::text = '' or source = $1)
and ($2::text = '' or status = $2)
and ($3::timestamptz is null or started_at >= $3)
and ($4::timestamptz is null or started_at < $4)
order by started_at desc, id
limit $5`, f.Source, string(f.Status), from, to, f.Limit)
	return out, perr.FromPostgresf(err, "query runs")
}

func (r *queries) Run(ctx context.Context, id uuid.UUID) (domain.RunOutcome, error) {
	o, err := store.One(ctx, r.q, scanRun, `select `+runCols+` from ingest_runs where id = $1`, id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return o, perr.NotFoundf("run %s not found", id)
	}
	return o, perr.FromPostgresf(err, "get run %s", id)
}

func (r *queries) Failures(ctx context.Context, runID uuid.UUID) ([]domain.RecordFailure, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.RecordFailure, error) {
		var f domain.RecordFailure
		err := row.Scan(&f.ID, &f.RunID, &f.Source, &f.Kind, &f.Field, &f.Error, &f.Payload, &f.NeedsReview, &f.CreatedAt)
		f.CreatedAt = f.CreatedAt.UTC()
		return f, err
	}, `
select id, run_id, source, kind, field, error, payload, needs_review, created_at
from ingest_record_failures
where run_id = $1
order by created_at, id`, runID)
	return out, perr.FromPostgresf(err, "failures for run %s", runID)
}

func scanRun(row store.Row) (domain.RunOutcome, error) {
	var (
		o      domain.RunOutcome
		status string
		ms     int64
		detail []byte
	)
	err := row.Scan(&o.ID, &o.Source, &status, &o.Message, &ms,
		&o.Counts.Found, &o.Counts.New, &o.Counts.Updated, &o.Counts.Skipped, &o.Counts.Retried,
		&o.Counts.IndexFailures, &detail, &o.StartedAt, &o.CompletedAt)
	if err != nil {
		return o, err
	}
	o.Status = domain.Status(status)
	o.Duration = time.Duration(ms) * time.Millisecond
	if len(detail) > 0 {
		o.Detail = detail
	}
	o.StartedAt, o.CompletedAt = o.StartedAt.UTC(), o.CompletedAt.UTC()
	return o, nil
}
