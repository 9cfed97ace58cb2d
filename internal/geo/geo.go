// Package geo provides great-circle distance math and a small proximity
// index used by location-based group discovery.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two coordinates.
// Symmetric, zero only for identical coordinates, and never NaN (the central
// angle argument is clamped before the final asin).
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// Floating point can push a marginally past 1 for antipodal points.
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(a))
}

// WithinRadius reports whether point is at most radiusMeters from center.
func WithinRadius(centerLat, centerLon, lat, lon, radiusMeters float64) bool {
	return DistanceMeters(centerLat, centerLon, lat, lon) <= radiusMeters
}
