// Package service implements the audit sink and its query side
package service

import (
	"context"
	"time"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/services/audit/domain"
	"listingsync/internal/services/audit/repo"

	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Config tunes the append retry
type Config struct {
	AppendAttempts int
	AppendBackoff  time.Duration
}

// Svc implements domain.Port
type Svc struct {
	r   repo.Repo
	cfg Config
	now func() time.Time
}

var _ domain.Port = (*Svc)(nil)

// sleep is a seam so tests do not wait out the backoff
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// New constructs the service
func New(r repo.Repo, cfg Config) *Svc {
	if cfg.AppendAttempts <= 0 {
		cfg.AppendAttempts = 5
	}
	if cfg.AppendBackoff <= 0 {
		cfg.AppendBackoff = 200 * time.Millisecond
	}
	return &Svc{r: r, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// AppendRun stores o once, retrying transient failures with doubling backoff
// a duplicate id means an earlier attempt already landed
func (s *Svc) AppendRun(ctx context.Context, o domain.RunOutcome) error {
	if o.ID == uuid.Nil || o.Source == "" || !o.Status.Valid() {
		return perr.InvalidArgf("run outcome needs id, source and a known status")
	}
	backoff := s.cfg.AppendBackoff
	var err error
	for attempt := 1; ; attempt++ {
		err = s.r.InsertRun(ctx, o)
		switch {
		case err == nil, perr.IsCode(err, perr.ErrorCodeDuplicateKey):
			return nil
		case !transient(err) || attempt >= s.cfg.AppendAttempts:
			return err
		}
		if serr := sleep(ctx, backoff); serr != nil {
			return err
		}
		backoff *= 2
	}
}

// AppendFailure stores one record failure
func (s *Svc) AppendFailure(ctx context.Context, f domain.RecordFailure) error {
	if f.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnknown, "failure id")
		}
		f.ID = id
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	return s.r.InsertFailure(ctx, f)
}

// Query lists runs newest first
func (s *Svc) Query(ctx context.Context, f domain.Filter) ([]domain.RunOutcome, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, perr.WithField(perr.InvalidArgf("unknown status %q", f.Status), "status")
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return nil, perr.WithField(perr.InvalidArgf("to must be after from"), "to")
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	out, err := s.r.Runs(ctx, f)
	if out == nil && err == nil {
		out = []domain.RunOutcome{}
	}
	return out, err
}

// Run returns one run
func (s *Svc) Run(ctx context.Context, id uuid.UUID) (domain.RunOutcome, error) {
	return s.r.Run(ctx, id)
}

// Failures returns the records run id skipped
func (s *Svc) Failures(ctx context.Context, runID uuid.UUID) ([]domain.RecordFailure, error) {
	out, err := s.r.Failures(ctx, runID)
	if out == nil && err == nil {
		out = []domain.RecordFailure{}
	}
	return out, err
}

func transient(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUnavailable, perr.ErrorCodeTimeout:
		return true
	}
	return perr.Retryable(err)
}
