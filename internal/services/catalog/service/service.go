// Package service implements the catalog writer and reader on a transactional repo
package service

import (
	"context"
	"time"

	"listingsync/internal/core/listing"
	"listingsync/internal/modkit/repokit"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/catalog/repo"

	"github.com/google/uuid"
)

// Svc is the catalog's single writer
type Svc struct {
	DB     repokit.TxRunner
	Repo   repokit.Binder[repo.Repo]
	Region domain.Region

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

var _ domain.Port = (*Svc)(nil)

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], region domain.Region) *Svc {
	return &Svc{
		DB:     db,
		Repo:   binder,
		Region: region,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewV7,
	}
}

// CreateEntity inserts a new entry and its first link in one tx
// a link already owned elsewhere rolls the entry back and reports raced
func (s *Svc) CreateEntity(ctx context.Context, l listing.Normalized) (uuid.UUID, error) {
	id, err := s.newID()
	if err != nil {
		return uuid.Nil, perr.Wrap(err, perr.ErrorCodeUnknown, "new entity id")
	}
	e := domain.NewEntry(id, l, s.now())

	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Repo.Bind(q)
		if err := r.InsertEntity(ctx, e); err != nil {
			return err
		}
		owned, err := r.UpsertLink(ctx, id, e.Sources[0])
		if err != nil {
			return err
		}
		if !owned {
			return perr.Racedf("%s/%s was linked concurrently", l.Source, l.SourceID)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, perr.FromPostgresf(err, "create entity")
	}
	return id, nil
}

// UpdateEntity folds l into entry id and refreshes the link it came through
func (s *Svc) UpdateEntity(ctx context.Context, id uuid.UUID, l listing.Normalized) error {
	now := s.now()
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Repo.Bind(q)
		e, err := r.LockEntity(ctx, id)
		if err != nil {
			return err
		}
		e.Apply(l, now)
		seen := seenAt(l, now)
		if err := s.link(ctx, r, id, l.Source, l.SourceID, seen); err != nil {
			return err
		}
		return r.SaveEntity(ctx, e)
	})
	return perr.FromPostgresf(err, "update entity %s", id)
}

// LinkDuplicateSource attaches (source, sourceID) to entry id without touching attributes
// last_seen moves to the current time; LinkObserved uses the listing's observation time
func (s *Svc) LinkDuplicateSource(ctx context.Context, id uuid.UUID, source, sourceID string) error {
	return s.LinkObserved(ctx, id, listing.Normalized{Source: source, SourceID: sourceID})
}

// LinkObserved attaches l's (source, source id) to entry id, stamped with when l was observed
func (s *Svc) LinkObserved(ctx context.Context, id uuid.UUID, l listing.Normalized) error {
	seen := seenAt(l, s.now())
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Repo.Bind(q)
		e, err := r.LockEntity(ctx, id)
		if err != nil {
			return err
		}
		if err := s.link(ctx, r, id, l.Source, l.SourceID, seen); err != nil {
			return err
		}
		e.Touch(seen)
		return r.SaveEntity(ctx, e)
	})
	return perr.FromPostgresf(err, "link %s/%s to %s", l.Source, l.SourceID, id)
}

// Enrich fills attributes entry id lacks, only when l carries more of them
func (s *Svc) Enrich(ctx context.Context, id uuid.UUID, l listing.Normalized) error {
	now := s.now()
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Repo.Bind(q)
		e, err := r.LockEntity(ctx, id)
		if err != nil {
			return err
		}
		if l.Completeness() <= e.Completeness() || !e.Fill(l, now) {
			return nil
		}
		return r.SaveEntity(ctx, e)
	})
	return perr.FromPostgresf(err, "enrich entity %s", id)
}

// Candidates reads the entries the resolver should score l against
func (s *Svc) Candidates(ctx context.Context, l listing.Normalized, limit int) ([]domain.Entry, error) {
	r := s.Repo.Bind(s.DB)
	es, err := r.Candidates(ctx, l.Source, l.SourceID, s.Region.Around(l), limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "catalog candidates")
	}
	return es, nil
}

// Get returns one entry with its sources
func (s *Svc) Get(ctx context.Context, id uuid.UUID) (domain.Entry, error) {
	e, err := s.Repo.Bind(s.DB).Entity(ctx, id)
	if err != nil {
		return domain.Entry{}, perr.FromPostgresf(err, "get entity")
	}
	return e, nil
}

func (s *Svc) link(ctx context.Context, r repo.Repo, id uuid.UUID, source, sourceID string, seen time.Time) error {
	owned, err := r.UpsertLink(ctx, id, domain.SourceRef{
		Source: source, SourceID: sourceID, FirstSeen: seen, LastSeen: seen,
	})
	if err != nil {
		return err
	}
	if !owned {
		return perr.Conflictf("%s/%s is linked to another entity", source, sourceID)
	}
	return nil
}

func seenAt(l listing.Normalized, now time.Time) time.Time {
	if l.ObservedAt.IsZero() {
		return now
	}
	return l.ObservedAt.UTC()
}
