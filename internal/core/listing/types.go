// Package listing defines raw and normalized vehicle listings and the normalizer between them
package listing

import (
	"bytes"
	"encoding/json"
	"time"

	"listingsync/internal/core/geo"
)

// Loose is a JSON scalar scrapers send either as a string or as a number
// Objects, arrays, booleans and null decode to "" so the field reads as absent
type Loose string

// UnmarshalJSON implements json.Unmarshaler
func (l *Loose) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*l = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Loose(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*l = Loose(b)
	default:
		*l = ""
	}
	return nil
}

// Raw is one queue message as produced by a site scraper
type Raw struct {
	Source      string `json:"source"`
	SourceID    Loose  `json:"source_id"`
	Title       string `json:"title"`
	Price       Loose  `json:"price"`
	Mileage     Loose  `json:"mileage"`
	Year        Loose  `json:"year"`
	Lat         Loose  `json:"lat"`
	Lon         Loose  `json:"lon"`
	Description string `json:"description"`
	ObservedAt  Loose  `json:"observed_at"`
}

// Normalized is the canonical typed listing every later stage works on
// Price, Mileage, Year and Coord are nil when the source value was missing or unparseable
type Normalized struct {
	Source      string     `json:"source"`
	SourceID    string     `json:"source_id"`
	SyntheticID bool       `json:"synthetic_id,omitempty"`
	Title       string     `json:"title"`
	Price       *int64     `json:"price,omitempty"`   // minor currency units
	Mileage     *int64     `json:"mileage,omitempty"` // km
	Year        *int       `json:"year,omitempty"`
	Coord       *geo.Point `json:"coord,omitempty"`
	Description string     `json:"description,omitempty"`
	ObservedAt  time.Time  `json:"observed_at"`
}

// Completeness counts the optional attributes that are present
func (n Normalized) Completeness() int {
	c := 0
	if n.Title != "" {
		c++
	}
	if n.Price != nil {
		c++
	}
	if n.Mileage != nil {
		c++
	}
	if n.Year != nil {
		c++
	}
	if n.Coord != nil {
		c++
	}
	if n.Description != "" {
		c++
	}
	return c
}
