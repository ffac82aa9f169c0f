package resolver

import (
	"math"

	"listingsync/internal/core/geo"
	"listingsync/internal/core/listing"
	"listingsync/internal/core/similarity"
)

// Signals is the per-signal breakdown behind a composite score, each in [0,1]
type Signals struct {
	Title   float64 `json:"title"`
	Geo     float64 `json:"geo"`
	Price   float64 `json:"price"`
	Mileage float64 `json:"mileage"`
	Year    float64 `json:"year"`
}

// Score computes the composite score of l against c
func (r *Resolver) Score(l listing.Normalized, c Candidate) (float64, Signals) {
	cfg := r.cfg
	s := Signals{
		Title:   similarity.Ratio(l.Title, c.Title),
		Geo:     r.geoSignal(l.Coord, c.Coord),
		Price:   r.relSignal(l.Price, c.Price, cfg.PriceBand),
		Mileage: r.relSignal(l.Mileage, c.Mileage, cfg.MileageBand),
		Year:    r.yearSignal(l.Year, c.Year),
	}
	num := cfg.TitleWeight*s.Title +
		cfg.GeoWeight*s.Geo +
		cfg.PriceWeight*s.Price +
		cfg.MileageWeight*s.Mileage +
		cfg.YearWeight*s.Year
	den := cfg.TitleWeight + cfg.GeoWeight + cfg.PriceWeight + cfg.MileageWeight + cfg.YearWeight
	return num / den, s
}

// inside the radius decays from 1 to 0.75 at the edge; outside is 0
func (r *Resolver) geoSignal(a, b *geo.Point) float64 {
	d, ok := geo.Distance(a, b)
	if !ok {
		return r.cfg.UnknownCredit
	}
	tol := r.cfg.GeoToleranceKm
	if d > tol {
		return 0
	}
	return 1 - 0.25*d/tol
}

// inside the band decays from 1 to 0.5 at the edge; outside is 0
func (r *Resolver) relSignal(a, b *int64, band float64) float64 {
	if a == nil || b == nil {
		return r.cfg.UnknownCredit
	}
	x, y := float64(*a), float64(*b)
	hi := math.Max(x, y)
	if hi == 0 {
		return 1
	}
	rel := math.Abs(x-y) / hi
	switch {
	case rel == 0:
		return 1
	case band == 0 || rel > band:
		return 0
	}
	return 1 - 0.5*rel/band
}

func (r *Resolver) yearSignal(a, b *int) float64 {
	if a == nil || b == nil {
		return r.cfg.UnknownCredit
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	tol := r.cfg.YearTolerance
	switch {
	case diff == 0:
		return 1
	case diff > tol:
		return 0
	}
	return 1 - 0.5*float64(diff)/float64(tol)
}
