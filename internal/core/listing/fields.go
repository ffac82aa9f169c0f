package listing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"listingsync/internal/core/geo"
	"listingsync/internal/core/normalize"
)

const (
	kmPerMile = 1.609344

	// first series-production automobile
	minYear = 1886

	// anything above this is a scraper bug rather than a price
	maxPriceMinor = int64(1e12)
	maxMileageKm  = int64(5e6)
)

// ParsePrice returns the price in minor currency units
func ParsePrice(s string) *int64 {
	v, _, ok := normalize.Number(s)
	if !ok {
		return nil
	}
	// bound the float first; converting an out of range float to int64 is undefined
	if !inRange(v*100, maxPriceMinor) {
		return nil
	}
	minor := int64(math.Round(v * 100))
	return &minor
}

// ParseMileage returns the odometer reading in km; miles are converted
func ParseMileage(s string) *int64 {
	v, unit, ok := normalize.Number(s)
	if !ok {
		return nil
	}
	if strings.HasPrefix(unit, "mi") {
		v *= kmPerMile
	}
	if !inRange(v, maxMileageKm) {
		return nil
	}
	km := int64(math.Round(v))
	return &km
}

func inRange(v float64, max int64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= float64(max)
}

// ParseYear finds the first four digit run within [1886, now+1]
// "2018", "03/2018" and "2018.0" all yield 2018
func ParseYear(s string, now time.Time) *int {
	maxYear := now.Year() + 1
	run := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			run++
			continue
		}
		if run == 4 {
			y, _ := strconv.Atoi(s[i-4 : i])
			if y >= minYear && y <= maxYear {
				return &y
			}
		}
		run = 0
	}
	return nil
}

// ParseCoord builds a point when both halves parse and are in range
// The exact pair (0,0) is what scrapers emit for "no location" and reads as absent
func ParseCoord(lat, lon string) *geo.Point {
	la, ok1 := parseDegrees(lat)
	lo, ok2 := parseDegrees(lon)
	if !ok1 || !ok2 {
		return nil
	}
	p := geo.Point{Lat: la, Lon: lo}
	if !p.Valid() || (la == 0 && lo == 0) {
		return nil
	}
	return &p
}

func parseDegrees(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseObservedAt accepts RFC 3339 or unix seconds
func ParseObservedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}
