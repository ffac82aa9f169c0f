package domain

import (
	"context"

	"listingsync/internal/core/listing"

	"github.com/google/uuid"
)

// Region bounds the coarse candidate window around a listing
// absent listing or entry values pass every filter
type Region struct {
	RadiusKm  float64 // geo box half-width; 3x the resolver geo tolerance
	YearSpan  int     // +- years
	PriceSpan float64 // +- fraction of the listing price
}

// DefaultRegion matches the resolver defaults
func DefaultRegion(geoToleranceKm float64) Region {
	return Region{RadiusKm: 3 * geoToleranceKm, YearSpan: 3, PriceSpan: 0.5}
}

// WriterPort is the only way to mutate the catalog
//
// CreateEntity reports ErrorCodeRaced when (source, source id) was linked to
// another entity concurrently; the caller re-resolves. Link conflicts on
// UpdateEntity and LinkDuplicateSource report ErrorCodeConflict. Connection
// failures report ErrorCodeUnavailable.
type WriterPort interface {
	CreateEntity(ctx context.Context, l listing.Normalized) (uuid.UUID, error)
	UpdateEntity(ctx context.Context, id uuid.UUID, l listing.Normalized) error
	LinkDuplicateSource(ctx context.Context, id uuid.UUID, source, sourceID string) error
	// LinkObserved is LinkDuplicateSource stamped with l.ObservedAt instead of now
	LinkObserved(ctx context.Context, id uuid.UUID, l listing.Normalized) error
	Enrich(ctx context.Context, id uuid.UUID, l listing.Normalized) error
}

// ReaderPort is the read side the resolver and indexer use
type ReaderPort interface {
	// Candidates returns active entries linked to (l.Source, l.SourceID) plus
	// entries inside the coarse region, most recently seen first
	Candidates(ctx context.Context, l listing.Normalized, limit int) ([]Entry, error)
	Get(ctx context.Context, id uuid.UUID) (Entry, error)
}

// Port is the full catalog surface
type Port interface {
	WriterPort
	ReaderPort
}
