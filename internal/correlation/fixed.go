package correlation

import (
	"context"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
)

// Fixed is a deterministic Correlator. It never looks at the frame, it
// reports a constant confidence and a constant coordinate correction.
type Fixed struct {
	Confidence    float64
	LatCorrection float64
	LonCorrection float64

	now func() time.Time
}

// NewFixed creates the placeholder Correlator used until a reference imagery
// source is available
func NewFixed() *Fixed {
	return &Fixed{
		Confidence:    0.85,
		LatCorrection: 0.0001,
		LonCorrection: -0.0002,
		now:           time.Now,
	}
}

func (f *Fixed) Correlate(_ context.Context, _ []byte, t *telemetry.Telemetry, threshold float64) (*Result, error) {
	pose, err := t.Pose()
	if err != nil {
		return nil, err
	}

	r := Result{
		Original: geo.Coordinates{Latitude: pose.Latitude, Longitude: pose.Longitude},
		Corrected: geo.Coordinates{
			Latitude:  pose.Latitude + f.LatCorrection,
			Longitude: pose.Longitude + f.LonCorrection,
		},
		Confidence:           f.Confidence,
		CoverageRadiusMeters: coverageRadius(pose),
		Timestamp:            f.timestamp(),
	}
	classify(&r, threshold)

	return &r, nil
}

func (f *Fixed) timestamp() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}
