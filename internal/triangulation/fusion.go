package triangulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

// The confidence score constants are empirical and uncalibrated. They are
// kept as is so results stay comparable with earlier missions.
const (
	referenceSpread  = 0.001 // degrees, about 111 m
	saturationPoints = 3.0   // observation count scale of the tanh saturation
	maxConfidence    = 99.0
)

// ValidateObservation checks the ranges of a sighting. The estimator itself
// accepts any value, callers validate at their boundary when they need to.
func ValidateObservation(bearing, elevation, confidence float64) error {
	switch {
	case math.IsNaN(bearing) || bearing < 0 || bearing >= 360:
		return fmt.Errorf("bearing %v outside [0, 360): %w", bearing, geo.ErrValidation)
	case math.IsNaN(elevation) || elevation < -90 || elevation > 90:
		return fmt.Errorf("elevation %v outside [-90, 90]: %w", elevation, geo.ErrValidation)
	case math.IsNaN(confidence) || confidence < 0 || confidence > 1:
		return fmt.Errorf("confidence %v outside [0, 1]: %w", confidence, geo.ErrValidation)
	}
	return nil
}

// estimatePoints projects every observation onto its own target estimate
func estimatePoints(observations []Observation) (lats, lons []float64) {
	lats = make([]float64, len(observations))
	lons = make([]float64, len(observations))

	for i, o := range observations {
		distance := geo.EstimateDistance(o.Position.Altitude, o.Elevation)
		p := geo.Destination(o.Position.Latitude, o.Position.Longitude, o.Bearing, distance)

		lats[i], lons[i] = p.Latitude, p.Longitude
	}

	return lats, lons
}

// normalizeWeights turns confidences into weights summing to 1. When no
// observation carries any confidence all of them weigh the same.
func normalizeWeights(observations []Observation) []float64 {
	weights := make([]float64, len(observations))
	for i, o := range observations {
		weights[i] = o.Confidence
	}

	total := floats.Sum(weights)
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	floats.Scale(1/total, weights)
	return weights
}

// fuse computes the confidence weighted centroid of the per-observation
// estimates and the precision of the cluster. Distances are measured in
// degree space.
func fuse(observations []Observation) (lat, lon float64, p Precision) {
	lats, lons := estimatePoints(observations)
	weights := normalizeWeights(observations)

	lat = stat.Mean(lats, weights)
	lon = stat.Mean(lons, weights)

	distances := make([]float64, len(observations))
	for i := range observations {
		distances[i] = math.Hypot(lats[i]-lat, lons[i]-lon)
	}

	avg := stat.Mean(distances, nil)
	maxDistance := floats.Max(distances)
	n := float64(len(observations))

	confidence := 100 * (1 - avg/referenceSpread) * math.Tanh(n/saturationPoints)
	if math.IsNaN(confidence) {
		confidence = 0
	}

	p = Precision{
		Meters:             geo.DegreesToMeters(avg),
		ConfidencePercent:  math.Max(0, math.Min(maxConfidence, confidence)),
		MaxDeviationMeters: geo.DegreesToMeters(maxDistance),
	}
	return lat, lon, p
}
