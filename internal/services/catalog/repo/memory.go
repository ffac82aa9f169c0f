package repo

import (
	"context"
	"slices"
	"sync"

	"listingsync/internal/modkit/repokit"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/services/catalog/domain"

	"github.com/google/uuid"
)

type linkKey struct{ source, id string }

type memLink struct {
	entity uuid.UUID
	ref    domain.SourceRef
}

// Memory is an in-process catalog that is its own TxRunner and Binder
// a failed Tx restores the state it started from
type Memory struct {
	mu       sync.Mutex
	entities map[uuid.UUID]domain.Entry
	links    map[linkKey]memLink

	// Down fails every call as unavailable
	Down bool
	// CandidatesErr fails candidate queries only
	CandidatesErr error
}

var (
	_ repokit.TxRunner     = (*Memory)(nil)
	_ repokit.Binder[Repo] = (*Memory)(nil)
	_ repokit.Queryer      = memTx{}
)

// NewMemory returns an empty catalog
func NewMemory() *Memory {
	return &Memory{entities: map[uuid.UUID]domain.Entry{}, links: map[linkKey]memLink{}}
}

// Seed stores e and its sources as-is
func (m *Memory) Seed(e domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range e.Sources {
		m.links[linkKey{s.Source, s.SourceID}] = memLink{entity: e.ID, ref: s}
	}
	e.Sources = nil
	m.entities[e.ID] = e
}

// Len is the number of entities
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

// Tx runs fn under the store lock
func (m *Memory) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Down {
		return perr.Unavailablef("memory catalog down")
	}
	ents, links := maps(m.entities), maps(m.links)
	if err := fn(memTx{}); err != nil {
		m.entities, m.links = ents, links
		return err
	}
	return nil
}

// Bind returns a repo view; views bound inside Tx reuse its lock
func (m *Memory) Bind(q repokit.Queryer) Repo {
	_, inTx := q.(memTx)
	return &memRepo{m: m, inTx: inTx}
}

func (m *Memory) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errNoSQL
}

func (m *Memory) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errNoSQL
}

func (m *Memory) QueryRow(context.Context, string, ...any) repokit.Row { return errRow{} }

var errNoSQL = perr.Internalf("memory catalog does not run sql")

type errRow struct{}

func (errRow) Scan(...any) error { return errNoSQL }

// memTx marks a Queryer handed out by Memory.Tx
type memTx struct{}

func (memTx) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errNoSQL
}
func (memTx) Query(context.Context, string, ...any) (repokit.Rows, error) { return nil, errNoSQL }
func (memTx) QueryRow(context.Context, string, ...any) repokit.Row        { return errRow{} }

type memRepo struct {
	m    *Memory
	inTx bool
}

func (r *memRepo) lock() (func(), error) {
	if r.inTx {
		return func() {}, nil
	}
	r.m.mu.Lock()
	if r.m.Down {
		r.m.mu.Unlock()
		return nil, perr.Unavailablef("memory catalog down")
	}
	return r.m.mu.Unlock, nil
}

func (r *memRepo) InsertEntity(_ context.Context, e domain.Entry) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.m.entities[e.ID]; ok {
		return perr.Newf(perr.ErrorCodeDuplicateKey, "entity %s exists", e.ID)
	}
	e.Sources = nil
	r.m.entities[e.ID] = e
	return nil
}

func (r *memRepo) LockEntity(_ context.Context, id uuid.UUID) (domain.Entry, error) {
	unlock, err := r.lock()
	if err != nil {
		return domain.Entry{}, err
	}
	defer unlock()
	e, ok := r.m.entities[id]
	if !ok {
		return domain.Entry{}, perr.NotFoundf("catalog entity %s not found", id)
	}
	return e, nil
}

func (r *memRepo) SaveEntity(_ context.Context, e domain.Entry) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := r.m.entities[e.ID]; !ok {
		return perr.Newf(perr.ErrorCodeDB, "expected exactly one row affected, got 0")
	}
	e.Sources = nil
	r.m.entities[e.ID] = e
	return nil
}

func (r *memRepo) UpsertLink(_ context.Context, id uuid.UUID, ref domain.SourceRef) (bool, error) {
	unlock, err := r.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	if _, ok := r.m.entities[id]; !ok {
		return false, perr.Newf(perr.ErrorCodeInvalidArgument, "link to unknown entity %s", id)
	}
	k := linkKey{ref.Source, ref.SourceID}
	cur, ok := r.m.links[k]
	switch {
	case !ok:
		r.m.links[k] = memLink{entity: id, ref: ref}
	case cur.entity != id:
		return false, nil
	case ref.LastSeen.After(cur.ref.LastSeen):
		cur.ref.LastSeen = ref.LastSeen
		r.m.links[k] = cur
	}
	return true, nil
}

func (r *memRepo) Entity(_ context.Context, id uuid.UUID) (domain.Entry, error) {
	unlock, err := r.lock()
	if err != nil {
		return domain.Entry{}, err
	}
	defer unlock()
	e, ok := r.m.entities[id]
	if !ok {
		return domain.Entry{}, perr.NotFoundf("catalog entity %s not found", id)
	}
	return r.withSources(e), nil
}

func (r *memRepo) Candidates(_ context.Context, source, sourceID string, b domain.Bounds, limit int) ([]domain.Entry, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if r.m.CandidatesErr != nil {
		return nil, r.m.CandidatesErr
	}

	var linked uuid.UUID
	if l, ok := r.m.links[linkKey{source, sourceID}]; ok {
		linked = l.entity
	}
	var out []domain.Entry
	for _, e := range r.m.entities {
		if e.ID == linked || (e.Active && b.Contains(e)) {
			out = append(out, r.withSources(e))
		}
	}
	slices.SortFunc(out, func(a, b domain.Entry) int {
		switch {
		case a.ID == linked:
			return -1
		case b.ID == linked:
			return 1
		case !a.LastSeen.Equal(b.LastSeen):
			return b.LastSeen.Compare(a.LastSeen)
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) withSources(e domain.Entry) domain.Entry {
	e.Sources = nil
	for _, l := range r.m.links {
		if l.entity == e.ID {
			e.Sources = append(e.Sources, l.ref)
		}
	}
	slices.SortFunc(e.Sources, func(a, b domain.SourceRef) int {
		if c := a.FirstSeen.Compare(b.FirstSeen); c != 0 {
			return c
		}
		if a.Source != b.Source {
			return compare(a.Source, b.Source)
		}
		return compare(a.SourceID, b.SourceID)
	})
	return e
}

func compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func maps[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
