package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000

// Location is a WGS84 coordinate pair in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies in the legal lat/lng ranges.
func (l Location) Valid() bool {
	return !math.IsNaN(l.Lat) && !math.IsNaN(l.Lng) &&
		l.Lat >= -90 && l.Lat <= 90 &&
		l.Lng >= -180 && l.Lng <= 180
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Location) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// IsNearby reports whether a and b are within maxMeters of each other.
func IsNearby(a, b Location, maxMeters float64) bool {
	return DistanceMeters(a, b) <= maxMeters
}
