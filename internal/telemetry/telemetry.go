package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

// Provider supplies the latest telemetry of the drone
type Provider interface {
	Get() *Telemetry
}

// Telemetry is the telemetry data from the drone sensors
type Telemetry struct {
	Timestamp    time.Time `json:"timestamp"`              // Timestamp of telemetry measurement
	Altitude     *float64  `json:"altitude,omitempty"`     // Barometric altitude in meters
	Roll         *float64  `json:"roll,omitempty"`         // Roll angle in degrees
	Pitch        *float64  `json:"pitch,omitempty"`        // Pitch angle in degrees
	Yaw          *float64  `json:"yaw,omitempty"`          // Yaw angle in degrees
	Latitude     *float64  `json:"latitude,omitempty"`     // GPS latitude in degrees
	Longitude    *float64  `json:"longitude,omitempty"`    // GPS longitude in degrees
	GroundSpeed  *float64  `json:"groundSpeed,omitempty"`  // Ground speed in m/s
	GroundCourse *float64  `json:"groundCourse,omitempty"` // Ground course (heading) in degrees
}

// FromPose builds a telemetry record out of a known pose
func FromPose(pose geo.DronePose, ts time.Time) *Telemetry {
	return &Telemetry{
		Timestamp: ts,
		Latitude:  &pose.Latitude,
		Longitude: &pose.Longitude,
		Altitude:  &pose.Altitude,
		Yaw:       &pose.Yaw,
		Pitch:     &pose.Pitch,
		Roll:      &pose.Roll,
	}
}

// HasGPS reports whether the record carries a GPS fix
func (t *Telemetry) HasGPS() bool {
	return t != nil && t.Latitude != nil && t.Longitude != nil
}

// Pose extracts the drone pose. Missing altitude and attitude readings are
// treated as zero, a missing GPS fix is an error.
func (t *Telemetry) Pose() (geo.DronePose, error) {
	if !t.HasGPS() {
		return geo.DronePose{}, geo.ErrMissingGPS
	}

	return geo.DronePose{
		Latitude:  *t.Latitude,
		Longitude: *t.Longitude,
		Altitude:  valueOrZero(t.Altitude),
		Yaw:       valueOrZero(t.Yaw),
		Pitch:     valueOrZero(t.Pitch),
		Roll:      valueOrZero(t.Roll),
	}, nil
}

func (t *Telemetry) String() string {
	if !t.HasGPS() {
		return "telemetry{no GPS}"
	}
	return fmt.Sprintf("telemetry{%.6f, %.6f, alt=%.1fm}", *t.Latitude, *t.Longitude, valueOrZero(t.Altitude))
}

func valueOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Static is a Provider returning the last pose it was given. It stands in for
// a live telemetry link on replays and in tests.
type Static struct {
	mu  sync.RWMutex
	cur *Telemetry
	now func() time.Time
}

// WithClock sets the clock used to timestamp records
func WithClock(now func() time.Time) func(*Static) {
	return func(s *Static) {
		s.now = now
	}
}

// NewStatic creates a Static provider reporting the given pose
func NewStatic(pose geo.DronePose, options ...func(*Static)) *Static {
	s := Static{now: time.Now}

	for _, option := range options {
		option(&s)
	}

	s.cur = FromPose(pose, s.now())
	return &s
}

// Set replaces the reported pose
func (s *Static) Set(pose geo.DronePose) {
	t := FromPose(pose, s.now())

	s.mu.Lock()
	s.cur = t
	s.mu.Unlock()
}

// SetTelemetry replaces the reported record, which may lack fields
func (s *Static) SetTelemetry(t *Telemetry) {
	s.mu.Lock()
	s.cur = t
	s.mu.Unlock()
}

// Get returns the current record
func (s *Static) Get() *Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cur
}
