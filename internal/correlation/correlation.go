package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
)

const (
	HighConfidence Status = "high_confidence"
	LowConfidence  Status = "low_confidence"
)

const (
	// DefaultThreshold is the confidence needed for a high confidence result
	DefaultThreshold = 0.6

	// coverageFactor is the ground coverage radius per meter of altitude
	coverageFactor = 0.5
)

const (
	MatcherFixed     = "fixed"
	MatcherSatellite = "satellite"
)

// Status classifies a correlation result against the confidence threshold
type Status string

// Result is the outcome of correlating a drone frame with reference imagery
type Result struct {
	Original             geo.Coordinates `json:"originalCoordinates"`
	Corrected            geo.Coordinates `json:"correctedCoordinates"`
	Confidence           float64         `json:"confidence"` // Match confidence in [0, 1]
	CoverageRadiusMeters float64         `json:"coverageRadiusMeters"`
	Status               Status          `json:"status"`
	Message              string          `json:"message"`
	Timestamp            time.Time       `json:"timestamp"`
}

// Correlator matches a drone frame against reference imagery of the area the
// drone is over. Implementations must fail with geo.ErrMissingGPS when the
// telemetry has no GPS fix and classify results via the threshold.
type Correlator interface {
	Correlate(ctx context.Context, frame []byte, t *telemetry.Telemetry, threshold float64) (*Result, error)
}

// Config selects and configures the Correlator
type Config struct {
	Matcher        string  `yaml:"matcher"`        // fixed or satellite
	Threshold      float64 `yaml:"threshold"`      // Confidence threshold, DefaultThreshold when zero
	CacheDirectory string  `yaml:"cacheDirectory"` // Satellite tile cache
	ZoomLevel      int     `yaml:"zoomLevel"`      // Satellite tile zoom level
	GridSize       int     `yaml:"gridSize"`       // Matching grid in pixels
	MaxShift       int     `yaml:"maxShift"`       // Largest alignment shift searched, in grid pixels
}

// New creates the Correlator selected by the configuration
func New(config *Config, logger *slog.Logger) (Correlator, error) {
	switch config.Matcher {
	case MatcherFixed, "":
		return NewFixed(), nil

	case MatcherSatellite:
		if config.CacheDirectory == "" {
			return nil, fmt.Errorf("satellite matcher: cache directory is required")
		}

		var options []func(*Satellite)
		if logger != nil {
			options = append(options, WithLogger(logger))
		}
		if config.ZoomLevel > 0 {
			options = append(options, WithZoomLevel(config.ZoomLevel))
		}
		if config.GridSize > 0 {
			options = append(options, WithGridSize(config.GridSize))
		}
		if config.MaxShift > 0 {
			options = append(options, WithMaxShift(config.MaxShift))
		}
		return NewSatellite(config.CacheDirectory, options...)

	default:
		return nil, fmt.Errorf("unknown matcher '%s'", config.Matcher)
	}
}

// classify sets the status and message of the result
func classify(r *Result, threshold float64) {
	if r.Confidence >= threshold {
		r.Status = HighConfidence
		r.Message = "correlation succeeded"
	} else {
		r.Status = LowConfidence
		r.Message = "weak correlation, use with caution"
	}
}

func coverageRadius(pose geo.DronePose) float64 {
	return pose.Altitude * coverageFactor
}
