package repo

import (
	"context"
	"slices"
	"sync"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/services/audit/domain"

	"github.com/google/uuid"
)

// Memory keeps the audit trail in process; runs are append-only here too
type Memory struct {
	mu       sync.Mutex
	runs     []domain.RunOutcome
	failures []domain.RecordFailure

	// FailRuns makes the next n InsertRun calls fail as unavailable
	FailRuns int
	// Down fails every call as unavailable
	Down bool
}

var _ Repo = (*Memory)(nil)

// NewMemory returns an empty trail
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) InsertRun(_ context.Context, o domain.RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return perr.Unavailablef("memory audit down")
	}
	if m.FailRuns > 0 {
		m.FailRuns--
		return perr.Unavailablef("memory audit flaking")
	}
	for _, r := range m.runs {
		if r.ID == o.ID {
			return perr.Newf(perr.ErrorCodeDuplicateKey, "run %s exists", o.ID)
		}
	}
	m.runs = append(m.runs, o)
	return nil
}

func (m *Memory) InsertFailure(_ context.Context, f domain.RecordFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return perr.Unavailablef("memory audit down")
	}
	m.failures = append(m.failures, f)
	return nil
}

func (m *Memory) Runs(_ context.Context, f domain.Filter) ([]domain.RunOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return nil, perr.Unavailablef("memory audit down")
	}
	var out []domain.RunOutcome
	for _, r := range m.runs {
		switch {
		case f.Source != "" && r.Source != f.Source,
			f.Status != "" && r.Status != f.Status,
			!f.From.IsZero() && r.StartedAt.Before(f.From),
			!f.To.IsZero() && !r.StartedAt.Before(f.To):
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b domain.RunOutcome) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) Run(_ context.Context, id uuid.UUID) (domain.RunOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.RunOutcome{}, perr.NotFoundf("run %s not found", id)
}

func (m *Memory) Failures(_ context.Context, runID uuid.UUID) ([]domain.RecordFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RecordFailure
	for _, f := range m.failures {
		if f.RunID == runID {
			out = append(out, f)
		}
	}
	return out, nil
}

// All returns every stored run in append order
func (m *Memory) All() []domain.RunOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.runs)
}

// AllFailures returns every stored failure in append order
func (m *Memory) AllFailures() []domain.RecordFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.failures)
}
