// Package service projects catalog entries into the search index
package service

import (
	"context"
	"time"

	perr "listingsync/internal/platform/errors"
	catalog "listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/search/domain"
)

// Svc indexes catalog entries
type Svc struct {
	idx     domain.Indexer
	timeout time.Duration
}

// New returns the indexing service; timeout bounds one upsert, zero means none
func New(idx domain.Indexer, timeout time.Duration) *Svc {
	return &Svc{idx: idx, timeout: timeout}
}

// Index projects e and upserts the document
func (s *Svc) Index(ctx context.Context, e catalog.Entry) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.idx.Upsert(ctx, e.ID, domain.Project(e)); err != nil {
		if _, ok := perr.As(err); ok {
			return err
		}
		return perr.Wrapf(err, perr.CodeOf(err), "index %s", e.ID)
	}
	return nil
}
