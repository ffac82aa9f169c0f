// Package geo holds the coordinate type and great-circle distance used as a match signal
package geo

import "math"

// EarthRadiusKm is the IUGG mean Earth radius
const EarthRadiusKm = 6371.0088

// Point is a WGS84 coordinate pair in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p is inside the lat/lon ranges
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Distance returns the haversine distance between a and b in kilometers
// ok is false when either side is absent, which callers treat as unknown
func Distance(a, b *Point) (km float64, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return Haversine(*a, *b), true
}

// Haversine is the great-circle distance between two points in kilometers
func Haversine(a, b Point) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dLat := lat2 - lat1
	dLon := rad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// BoundingBox returns the lat/lon box that contains every point within km of p
// Boxes crossing a pole clamp to it; longitude spans wider than the globe open up fully
// A box crossing the antimeridian wraps, so minLon > maxLon; test it with LonWithin
func BoundingBox(p Point, km float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := deg(km / EarthRadiusKm)
	minLat, maxLat = math.Max(-90, p.Lat-dLat), math.Min(90, p.Lat+dLat)

	cos := math.Cos(rad(p.Lat))
	if cos < 1e-6 || maxLat >= 90 || minLat <= -90 {
		return minLat, maxLat, -180, 180
	}
	dLon := deg(km / (EarthRadiusKm * cos))
	if dLon >= 180 {
		return minLat, maxLat, -180, 180
	}
	minLon, maxLon = p.Lon-dLon, p.Lon+dLon
	if minLon < -180 {
		minLon += 360
	}
	if maxLon > 180 {
		maxLon -= 360
	}
	return minLat, maxLat, minLon, maxLon
}

// LonWithin reports whether lon lies in [minLon, maxLon], wrapping when minLon > maxLon
func LonWithin(lon, minLon, maxLon float64) bool {
	if minLon <= maxLon {
		return lon >= minLon && lon <= maxLon
	}
	return lon >= minLon || lon <= maxLon
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
