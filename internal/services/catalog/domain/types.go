// Package domain holds catalog entries and the rules for folding observations into them
package domain

import (
	"time"

	"listingsync/internal/core/geo"
	"listingsync/internal/core/listing"
	"listingsync/internal/core/resolver"

	"github.com/google/uuid"
)

// SourceRef is one site posting linked to an entry
type SourceRef struct {
	Source    string    `json:"source"`
	SourceID  string    `json:"source_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Entry is the catalog's single record for a real-world vehicle
type Entry struct {
	ID      uuid.UUID   `json:"id"`
	Sources []SourceRef `json:"sources"`

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       *int64     `json:"price,omitempty"`
	Mileage     *int64     `json:"mileage,omitempty"`
	Year        *int       `json:"year,omitempty"`
	Coord       *geo.Point `json:"coord,omitempty"`

	Active      bool      `json:"active"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewEntry builds a fresh entry from its first observation
func NewEntry(id uuid.UUID, l listing.Normalized, now time.Time) Entry {
	seen := observed(l, now)
	e := Entry{
		ID:          id,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Mileage:     l.Mileage,
		Year:        l.Year,
		Coord:       l.Coord,
		Active:      true,
		FirstSeen:   seen,
		LastSeen:    seen,
		LastUpdated: now,
	}
	e.Sources = []SourceRef{{Source: l.Source, SourceID: l.SourceID, FirstSeen: seen, LastSeen: seen}}
	return e
}

// Apply folds a newer observation into e
// an observation older than LastSeen only reactivates the entry, it never rolls attributes back
// it reports whether any attribute changed; LastUpdated moves only then
func (e *Entry) Apply(l listing.Normalized, now time.Time) bool {
	seen := observed(l, now)
	changed := false
	if !e.Active {
		e.Active = true
		changed = true
	}
	if seen.Before(e.LastSeen) {
		if changed {
			e.LastUpdated = now
		}
		return changed
	}
	e.LastSeen = seen

	if l.Title != "" && l.Title != e.Title {
		e.Title, changed = l.Title, true
	}
	if l.Description != "" && l.Description != e.Description {
		e.Description, changed = l.Description, true
	}
	changed = setInt64(&e.Price, l.Price) || changed
	changed = setInt64(&e.Mileage, l.Mileage) || changed
	if l.Year != nil && (e.Year == nil || *e.Year != *l.Year) {
		e.Year, changed = l.Year, true
	}
	if l.Coord != nil && (e.Coord == nil || *e.Coord != *l.Coord) {
		e.Coord, changed = l.Coord, true
	}
	if changed {
		e.LastUpdated = now
	}
	return changed
}

// Fill copies attributes e is missing from l and leaves present ones alone
func (e *Entry) Fill(l listing.Normalized, now time.Time) bool {
	changed := false
	if e.Title == "" && l.Title != "" {
		e.Title, changed = l.Title, true
	}
	if e.Description == "" && l.Description != "" {
		e.Description, changed = l.Description, true
	}
	if e.Price == nil && l.Price != nil {
		e.Price, changed = l.Price, true
	}
	if e.Mileage == nil && l.Mileage != nil {
		e.Mileage, changed = l.Mileage, true
	}
	if e.Year == nil && l.Year != nil {
		e.Year, changed = l.Year, true
	}
	if e.Coord == nil && l.Coord != nil {
		e.Coord, changed = l.Coord, true
	}
	if changed {
		e.LastUpdated = now
	}
	return changed
}

// Touch records that e was seen at t through one of its links
func (e *Entry) Touch(t time.Time) {
	if t.After(e.LastSeen) {
		e.LastSeen = t
	}
}

// Completeness counts present attributes the same way listing.Normalized does
func (e Entry) Completeness() int {
	return listing.Normalized{
		Title:       e.Title,
		Description: e.Description,
		Price:       e.Price,
		Mileage:     e.Mileage,
		Year:        e.Year,
		Coord:       e.Coord,
	}.Completeness()
}

// HasLink reports whether (source, sourceID) is linked to e
func (e Entry) HasLink(source, sourceID string) bool {
	for _, s := range e.Sources {
		if s.Source == source && s.SourceID == sourceID {
			return true
		}
	}
	return false
}

// Candidate is the resolver's read-only view of e
func (e Entry) Candidate() resolver.Candidate {
	keys := make([]resolver.SourceKey, len(e.Sources))
	for i, s := range e.Sources {
		keys[i] = resolver.SourceKey{Source: s.Source, SourceID: s.SourceID}
	}
	return resolver.Candidate{
		ID:       e.ID,
		Sources:  keys,
		Title:    e.Title,
		Price:    e.Price,
		Mileage:  e.Mileage,
		Year:     e.Year,
		Coord:    e.Coord,
		LastSeen: e.LastSeen,
	}
}

// Candidates maps entries for the resolver
func Candidates(es []Entry) []resolver.Candidate {
	out := make([]resolver.Candidate, len(es))
	for i := range es {
		out[i] = es[i].Candidate()
	}
	return out
}

func observed(l listing.Normalized, now time.Time) time.Time {
	if l.ObservedAt.IsZero() {
		return now.UTC()
	}
	return l.ObservedAt.UTC()
}

func setInt64(dst **int64, v *int64) bool {
	if v == nil || (*dst != nil && **dst == *v) {
		return false
	}
	*dst = v
	return true
}
