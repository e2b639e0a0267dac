package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

func TestTelemetry_Pose(t *testing.T) {
	lat, lon, alt := 40.7128, -74.0060, 100.0

	pose, err := (&Telemetry{Latitude: &lat, Longitude: &lon, Altitude: &alt}).Pose()
	if err != nil {
		t.Fatalf("Pose() returned error: %v", err)
	}
	if pose.Latitude != lat || pose.Longitude != lon || pose.Altitude != alt {
		t.Errorf("Pose() = %+v; want lat=%v lon=%v alt=%v", pose, lat, lon, alt)
	}
	if pose.Yaw != 0 || pose.Pitch != 0 || pose.Roll != 0 {
		t.Errorf("Pose() attitude = %+v; want zeros", pose)
	}
}

func TestTelemetry_PoseMissingGPS(t *testing.T) {
	lat, alt := 40.7128, 100.0

	cases := []struct {
		name string
		t    *Telemetry
	}{
		{"nil record", nil},
		{"no fix", &Telemetry{Altitude: &alt}},
		{"latitude only", &Telemetry{Latitude: &lat, Altitude: &alt}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.t.Pose(); !errors.Is(err, geo.ErrMissingGPS) {
				t.Fatalf("Pose() error = %v; want %v", err, geo.ErrMissingGPS)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStatic(geo.DronePose{Latitude: 1, Longitude: 2, Altitude: 3, Yaw: 45}, WithClock(func() time.Time { return ts }))

	pose, err := s.Get().Pose()
	if err != nil {
		t.Fatalf("Pose() returned error: %v", err)
	}
	if pose.Yaw != 45 || !s.Get().Timestamp.Equal(ts) {
		t.Errorf("Get() = %v; want yaw 45 at %v", pose, ts)
	}

	s.Set(geo.DronePose{Latitude: 10, Longitude: 20})
	if pose, _ = s.Get().Pose(); pose.Latitude != 10 || pose.Longitude != 20 {
		t.Errorf("Get() after Set = %+v", pose)
	}

	s.SetTelemetry(&Telemetry{Timestamp: ts})
	if s.Get().HasGPS() {
		t.Errorf("HasGPS() = true after clearing the fix")
	}
}
