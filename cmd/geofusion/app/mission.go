package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

// Mission is a recorded flight: target sightings reported by the operator
// and captured frames with their detections
type Mission struct {
	Name      string         `yaml:"name"`
	Reference *geo.DronePose `yaml:"reference"` // Pose of the reference capture for change detection
	Sightings []Sighting     `yaml:"sightings"`
	Frames    []Frame        `yaml:"frames"`

	dir string // directory relative frame paths are resolved against
}

// Sighting is a single bearing to a target taken at a drone pose. Targets are
// named in the mission, the engine assigns its own IDs.
type Sighting struct {
	Target     string        `yaml:"target"`
	Pose       geo.DronePose `yaml:"pose"`
	Bearing    *float64      `yaml:"bearing"`
	Elevation  *float64      `yaml:"elevation"`
	Confidence *float64      `yaml:"confidence"`
}

// Frame is a captured image and the pose it was captured at
type Frame struct {
	Image      string        `yaml:"image"`
	Pose       geo.DronePose `yaml:"pose"`
	Output     string        `yaml:"output"` // Annotated copy, format by extension
	Detections []Detection   `yaml:"detections"`
}

// Detection is an object found in a frame
type Detection struct {
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Label      string  `yaml:"label"`
	Confidence float64 `yaml:"confidence"`
}

// LoadMission reads the YAML mission file at path
func LoadMission(path string) (*Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mission: %w", err)
	}

	var m Mission
	if err = yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mission: %w", err)
	}
	m.dir = filepath.Dir(path)

	if err = m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the mission structure. Sighting ranges are left to the
// service.
func (m *Mission) Validate() error {
	if len(m.Sightings) == 0 && len(m.Frames) == 0 {
		return errors.New("mission has neither sightings nor frames")
	}

	for i, s := range m.Sightings {
		if s.Target == "" {
			return fmt.Errorf("sighting %d: target is required", i)
		}
	}
	for i, f := range m.Frames {
		if f.Image == "" {
			return fmt.Errorf("frame %d: image is required", i)
		}
	}

	return nil
}

// resolve returns path relative to the mission file
func (m *Mission) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.dir, path)
}
