// Package resolver decides whether a normalized listing is a new vehicle, an update of a
// known catalog entry, or a re-post of one under another source
//
// The resolver only reads candidates; applying the decision belongs to the catalog writer
package resolver

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"listingsync/internal/core/geo"
	"listingsync/internal/core/listing"
)

// Kind is the resolver outcome
type Kind uint8

const (
	// NewEntity means no candidate is a plausible match
	NewEntity Kind = iota
	// UpdateEntity means the listing refreshes an entry it already belongs to
	UpdateEntity
	// DuplicateOf means the listing is the same vehicle seen through a source not yet linked
	DuplicateOf
)

func (k Kind) String() string {
	switch k {
	case UpdateEntity:
		return "update"
	case DuplicateOf:
		return "duplicate"
	default:
		return "new"
	}
}

// SourceKey is one (source, source-native id) link
type SourceKey struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
}

// Candidate is the read-only view of a catalog entry the resolver scores against
type Candidate struct {
	ID       uuid.UUID
	Sources  []SourceKey
	Title    string
	Price    *int64
	Mileage  *int64
	Year     *int
	Coord    *geo.Point
	LastSeen time.Time
}

func (c Candidate) has(source, id string) bool {
	for _, s := range c.Sources {
		if s.Source == source && s.SourceID == id {
			return true
		}
	}
	return false
}

func (c Candidate) hasSource(source string) bool {
	for _, s := range c.Sources {
		if s.Source == source {
			return true
		}
	}
	return false
}

// Decision is what the catalog writer applies
type Decision struct {
	Kind     Kind
	EntityID uuid.UUID
	Score    float64
	Signals  Signals
	// Exact is set when the decision came from a (source, source id) link match
	Exact bool
}

// Resolver scores candidates with a fixed Config; safe for concurrent use
type Resolver struct {
	cfg Config
}

// New validates cfg and returns a Resolver
func New(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{cfg: cfg}, nil
}

// MustNew is New for wiring code with static config
func MustNew(cfg Config) *Resolver {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Config returns the active configuration
func (r *Resolver) Config() Config { return r.cfg }

// Resolve picks the decision for l among candidates
// An exact link match short-circuits; otherwise the best candidate strictly above the
// threshold wins, ties going to the most recently seen and then to the lower id
func (r *Resolver) Resolve(l listing.Normalized, candidates []Candidate) Decision {
	if l.SourceID != "" {
		for _, c := range candidates {
			if c.has(l.Source, l.SourceID) {
				return Decision{Kind: UpdateEntity, EntityID: c.ID, Score: 1, Exact: true}
			}
		}
	}

	var (
		best    *Candidate
		bestDec Decision
	)
	for i := range candidates {
		c := &candidates[i]
		score, sig := r.Score(l, *c)
		if score <= r.cfg.Threshold {
			continue
		}
		if best != nil && !better(score, c, bestDec.Score, best) {
			continue
		}
		best = c
		bestDec = Decision{EntityID: c.ID, Score: score, Signals: sig}
	}

	if best == nil {
		return Decision{Kind: NewEntity}
	}
	if best.hasSource(l.Source) {
		bestDec.Kind = UpdateEntity
	} else {
		bestDec.Kind = DuplicateOf
	}
	return bestDec
}

func better(score float64, c *Candidate, bestScore float64, best *Candidate) bool {
	switch {
	case score != bestScore:
		return score > bestScore
	case !c.LastSeen.Equal(best.LastSeen):
		return c.LastSeen.After(best.LastSeen)
	}
	return bytes.Compare(c.ID[:], best.ID[:]) < 0
}
