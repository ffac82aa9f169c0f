// Package domain defines the search document and its projection from the catalog
package domain

import (
	"context"
	"slices"
	"time"

	catalog "listingsync/internal/services/catalog/domain"

	"github.com/google/uuid"
)

// Document is the flattened, query-friendly view of one catalog entry
type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       *int64    `json:"price,omitempty"`
	Mileage     *int64    `json:"mileage,omitempty"`
	Year        *int32    `json:"year,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	Active      bool      `json:"active"`
	// Sources are "source:source_id" keys, sorted
	Sources     []string  `json:"sources"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	LastUpdated time.Time `json:"last_updated"`
	// Version orders rewrites of the same id; it is LastUpdated in unix microseconds
	Version uint64 `json:"version"`
}

// Project maps e to its document; the same entry always yields the same document
func Project(e catalog.Entry) Document {
	d := Document{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Price:       e.Price,
		Mileage:     e.Mileage,
		Active:      e.Active,
		FirstSeen:   e.FirstSeen.UTC(),
		LastSeen:    e.LastSeen.UTC(),
		LastUpdated: e.LastUpdated.UTC(),
		Version:     uint64(max(e.LastUpdated.UnixMicro(), 0)),
	}
	if e.Year != nil {
		y := int32(*e.Year)
		d.Year = &y
	}
	if e.Coord != nil {
		lat, lon := e.Coord.Lat, e.Coord.Lon
		d.Lat, d.Lon = &lat, &lon
	}
	d.Sources = make([]string, len(e.Sources))
	for i, s := range e.Sources {
		d.Sources[i] = s.Source + ":" + s.SourceID
	}
	slices.Sort(d.Sources)
	return d
}

// Indexer upserts documents by id; writing the same document twice is a no-op
type Indexer interface {
	Upsert(ctx context.Context, id uuid.UUID, doc Document) error
}

// Hit is one search result
type Hit struct {
	ID    uuid.UUID `json:"id"`
	Score float64   `json:"score"`
}

// Searcher answers free-text queries over active documents
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}
