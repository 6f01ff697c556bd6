package geo

import (
	"math"
)

const earthRadiusKm = 6371.0 // Earth's radius in kilometers

// Coordinate is the canonical in-memory location representation (WGS-84 degrees).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultCoordinate is the fixed fallback used when a viewer's location
// is unknown or permission was denied.
var DefaultCoordinate = Coordinate{Lat: 52.52, Lng: 13.405}

// Valid reports whether the coordinate is within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DistanceKm calculates the great-circle (haversine) distance between two
// points in kilometers. Returns +Inf when either coordinate is absent or
// out of range; it never fails.
func DistanceKm(a, b *Coordinate) float64 {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}
	if a.Lat == b.Lat && a.Lng == b.Lng {
		return 0
	}

	lat1Rad := toRadians(a.Lat)
	lat2Rad := toRadians(b.Lat)
	deltaLat := toRadians(b.Lat - a.Lat)
	deltaLng := toRadians(b.Lng - a.Lng)

	// Haversine formula
	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// ProjectPoint returns the coordinate reached by traveling distanceKm from
// origin along bearingDeg (0 = north, clockwise). Round-trips with
// DistanceKm within floating-point tolerance.
func ProjectPoint(origin Coordinate, distanceKm, bearingDeg float64) Coordinate {
	angular := distanceKm / earthRadiusKm
	bearing := toRadians(bearingDeg)
	lat1 := toRadians(origin.Lat)
	lng1 := toRadians(origin.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)

	// Normalize longitude to [-180, 180)
	lng2 = math.Mod(lng2+3*math.Pi, 2*math.Pi) - math.Pi

	return Coordinate{Lat: toDegrees(lat2), Lng: toDegrees(lng2)}
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func toDegrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}
