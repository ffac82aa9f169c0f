package resolver

import (
	"fmt"
	"math"
)

// Config holds the weights and tolerances that trade false merges against duplicates
// Weights need not sum to 1; the composite is normalized by their sum
type Config struct {
	TitleWeight   float64
	GeoWeight     float64
	PriceWeight   float64
	MileageWeight float64
	YearWeight    float64

	// Threshold is exclusive: a candidate must score strictly above it
	Threshold float64

	GeoToleranceKm float64
	PriceBand      float64 // relative, 0.10 = 10%
	MileageBand    float64 // relative
	YearTolerance  int     // absolute years

	// UnknownCredit is the signal value used when either side lacks the attribute
	UnknownCredit float64

	// CandidateLimit bounds how many catalog rows the query layer hands over
	CandidateLimit int
}

// DefaultConfig returns the tuned defaults
//
// With these weights an identical title plus coordinates inside the radius clears the
// threshold on its own (0.45 + 0.25*0.75 = 0.6375), and a pair with title < 0.3, far apart,
// and price and year outside their bands cannot reach it even with full mileage credit
func DefaultConfig() Config {
	return Config{
		TitleWeight:    0.45,
		GeoWeight:      0.25,
		PriceWeight:    0.15,
		MileageWeight:  0.05,
		YearWeight:     0.10,
		Threshold:      0.60,
		GeoToleranceKm: 5,
		PriceBand:      0.10,
		MileageBand:    0.15,
		YearTolerance:  1,
		UnknownCredit:  0.5,
		CandidateLimit: 50,
	}
}

// Validate rejects configurations the scoring cannot work with
func (c Config) Validate() error {
	ws := []float64{c.TitleWeight, c.GeoWeight, c.PriceWeight, c.MileageWeight, c.YearWeight}
	sum := 0.0
	for _, w := range ws {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("resolver: weights must be finite and non-negative")
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("resolver: at least one weight must be positive")
	}
	for _, w := range ws[1:] {
		if w > c.TitleWeight {
			return fmt.Errorf("resolver: title weight %.3f must be the highest", c.TitleWeight)
		}
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("resolver: threshold %.3f must be in (0,1)", c.Threshold)
	}
	if c.GeoToleranceKm <= 0 {
		return fmt.Errorf("resolver: geo tolerance must be positive")
	}
	if c.PriceBand < 0 || c.MileageBand < 0 || c.YearTolerance < 0 {
		return fmt.Errorf("resolver: tolerance bands must be non-negative")
	}
	if c.UnknownCredit < 0 || c.UnknownCredit > 1 {
		return fmt.Errorf("resolver: unknown credit must be in [0,1]")
	}
	if c.CandidateLimit <= 0 {
		return fmt.Errorf("resolver: candidate limit must be positive")
	}
	return nil
}
