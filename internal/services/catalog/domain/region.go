package domain

import (
	"listingsync/internal/core/geo"
	"listingsync/internal/core/listing"
)

// Bounds is a Region resolved around one listing; nil pointers disable a filter
type Bounds struct {
	MinLat, MaxLat, MinLon, MaxLon *float64
	MinYear, MaxYear               *int
	MinPrice, MaxPrice             *int64
}

// Around resolves r for l
func (r Region) Around(l listing.Normalized) Bounds {
	var b Bounds
	if l.Coord != nil && r.RadiusKm > 0 {
		minLat, maxLat, minLon, maxLon := geo.BoundingBox(*l.Coord, r.RadiusKm)
		b.MinLat, b.MaxLat, b.MinLon, b.MaxLon = &minLat, &maxLat, &minLon, &maxLon
	}
	if l.Year != nil {
		lo, hi := *l.Year-r.YearSpan, *l.Year+r.YearSpan
		b.MinYear, b.MaxYear = &lo, &hi
	}
	if l.Price != nil {
		p := float64(*l.Price)
		lo, hi := int64(p*(1-r.PriceSpan)), int64(p*(1+r.PriceSpan)+0.5)
		b.MinPrice, b.MaxPrice = &lo, &hi
	}
	return b
}

// Contains applies the same filters the SQL query does
func (b Bounds) Contains(e Entry) bool {
	if b.MinLat != nil && e.Coord != nil {
		c := e.Coord
		if c.Lat < *b.MinLat || c.Lat > *b.MaxLat || !geo.LonWithin(c.Lon, *b.MinLon, *b.MaxLon) {
			return false
		}
	}
	if b.MinYear != nil && e.Year != nil && (*e.Year < *b.MinYear || *e.Year > *b.MaxYear) {
		return false
	}
	if b.MinPrice != nil && e.Price != nil && (*e.Price < *b.MinPrice || *e.Price > *b.MaxPrice) {
		return false
	}
	return true
}
