package geo

import (
	"math"
)

const (
	// EarthRadius is the mean Earth radius in meters
	EarthRadius = 6_371_000.0

	// MetersPerDegree is the flat approximation used to express degree-space
	// distances in meters
	MetersPerDegree = 111_000.0

	// DefaultRange is the distance assumed for targets at or below the horizon
	DefaultRange = 1000.0

	// MaxRange caps every range estimate, steep or negative elevation angles
	// give unreliable ranges
	MaxRange = 10_000.0
)

// Radians converts degrees to radians
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// EstimateDistance returns the slant range in meters to a target seen at the
// given elevation angle (degrees) from the given altitude (meters).
func EstimateDistance(altitude, elevation float64) float64 {
	distance := DefaultRange
	if elevation > 0 {
		distance = altitude / math.Sin(Radians(elevation))
	}

	return math.Min(distance, MaxRange)
}

// Destination projects a point distance meters away from (lat, lon) along
// bearing (degrees). It uses a planar small-angle approximation which is only
// good for short distances. The bearing is consumed as a trigonometric angle:
// 0° moves along latitude, 90° along longitude.
func Destination(lat, lon, bearing, distance float64) Coordinates {
	latRad := Radians(lat)
	lonRad := Radians(lon)
	bearingRad := Radians(bearing)
	angular := distance / EarthRadius

	return Coordinates{
		Latitude:  Degrees(latRad + angular*math.Cos(bearingRad)),
		Longitude: Degrees(lonRad + angular*math.Sin(bearingRad)/math.Cos(latRad)),
	}
}

// Rotate rotates the (x, y) offset by angle degrees counterclockwise
func Rotate(x, y, angle float64) (float64, float64) {
	sin, cos := math.Sincos(Radians(angle))
	return x*cos - y*sin, x*sin + y*cos
}

// DegreesToMeters converts a degree-space distance to meters using the flat
// MetersPerDegree approximation
func DegreesToMeters(deg float64) float64 {
	return deg * MetersPerDegree
}
