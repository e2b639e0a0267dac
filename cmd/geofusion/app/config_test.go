package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-geofusion/internal/correlation"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
settings:
  logLevel: debug
mission: mission.yaml
telemetry:
  pose:
    latitude: 40.7128
    longitude: -74.006
    altitude: 100
    yaw: 90
correlation:
  matcher: fixed
  threshold: 0.7
validation:
  enabled: true
storage:
  enabled: true
  dataDirectory: journal
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)

	level, err := c.Settings.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	assert.Equal(t, "mission.yaml", c.Mission)
	assert.Equal(t, 40.7128, c.Telemetry.Pose.Latitude)
	assert.Equal(t, 90.0, c.Telemetry.Pose.Yaw)
	assert.Equal(t, correlation.MatcherFixed, c.Correlation.Matcher)
	assert.Equal(t, 0.7, c.Correlation.Threshold)
	assert.True(t, c.Validation.Enabled)
	assert.True(t, c.Storage.Enabled)
	assert.Equal(t, "journal", c.Storage.DataDirectory)
	assert.Equal(t, defaultSessionName, c.Storage.SessionName)
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig(writeFile(t, t.TempDir(), "config.yaml", "mission: m.yaml\n"))
	require.NoError(t, err)

	level, err := c.Settings.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	assert.Equal(t, correlation.MatcherFixed, c.Correlation.Matcher)
	assert.Equal(t, correlation.DefaultThreshold, c.Correlation.Threshold)
	assert.False(t, c.Validation.Enabled)
	assert.False(t, c.Storage.Enabled)
	assert.Equal(t, defaultStorageDir, c.Storage.DataDirectory)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "log level", content: "settings:\n  logLevel: loud\n"},
		{name: "matcher", content: "correlation:\n  matcher: magic\n"},
		{name: "satellite cache", content: "correlation:\n  matcher: satellite\n"},
		{name: "threshold", content: "correlation:\n  threshold: 1.5\n"},
		{name: "storage directory", content: "storage:\n  enabled: true\n  dataDirectory: \"\"\n"},
		{name: "yaml", content: "settings: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, t.TempDir(), "config.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMission(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mission.yaml", `
name: north field
reference:
  latitude: 40.7128
  longitude: -74.006
  altitude: 100
sightings:
  - target: alpha
    pose: {latitude: 40.7128, longitude: -74.006, altitude: 100}
    bearing: 45
    elevation: 30
  - target: alpha
    pose: {latitude: 40.7138, longitude: -74.006, altitude: 100}
    bearing: 135
    confidence: 0.5
frames:
  - image: frames/0001.png
    pose: {latitude: 40.7128, longitude: -74.006, altitude: 100}
    output: /tmp/out.png
    detections:
      - {x: 10, y: 20, label: vehicle, confidence: 0.9}
`)

	m, err := LoadMission(path)
	require.NoError(t, err)

	assert.Equal(t, "north field", m.Name)
	require.NotNil(t, m.Reference)
	assert.Equal(t, 100.0, m.Reference.Altitude)

	require.Len(t, m.Sightings, 2)
	require.NotNil(t, m.Sightings[0].Bearing)
	assert.Equal(t, 45.0, *m.Sightings[0].Bearing)
	require.NotNil(t, m.Sightings[0].Elevation)
	assert.Nil(t, m.Sightings[0].Confidence)
	assert.Nil(t, m.Sightings[1].Elevation)

	require.Len(t, m.Frames, 1)
	require.Len(t, m.Frames[0].Detections, 1)
	assert.Equal(t, "vehicle", m.Frames[0].Detections[0].Label)

	assert.Equal(t, filepath.Join(dir, "frames", "0001.png"), m.resolve(m.Frames[0].Image))
	assert.Equal(t, "/tmp/out.png", m.resolve(m.Frames[0].Output))
}

func TestLoadMissionErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "name: nothing\n"},
		{name: "no target", content: "sightings:\n  - bearing: 10\n"},
		{name: "no image", content: "frames:\n  - output: out.png\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMission(writeFile(t, t.TempDir(), "mission.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}
