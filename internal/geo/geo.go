package geo

import (
	"errors"
)

var (
	// ErrNotFound is returned when a target is not known
	ErrNotFound = errors.New("target not found")

	// ErrInsufficientData is returned when a position is requested for a target
	// with fewer than two observations
	ErrInsufficientData = errors.New("at least 2 observations are required")

	// ErrMissingGPS is returned when a pose or telemetry record has no GPS fix
	ErrMissingGPS = errors.New("GPS data not available in telemetry")

	// ErrValidation is returned for malformed observation input
	ErrValidation = errors.New("invalid observation")
)

// Coordinates is a point on the Earth surface in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Position is a point in space: decimal degrees plus altitude in meters
type Position struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude" yaml:"altitude"`
}

// Coordinates drops the altitude
func (p Position) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// DronePose is the position and orientation of the drone at a moment in time
type DronePose struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`   // GPS latitude in degrees
	Longitude float64 `json:"longitude" yaml:"longitude"` // GPS longitude in degrees
	Altitude  float64 `json:"altitude" yaml:"altitude"`   // Altitude in meters
	Yaw       float64 `json:"yaw" yaml:"yaw"`             // Yaw angle in degrees
	Pitch     float64 `json:"pitch" yaml:"pitch"`         // Pitch angle in degrees
	Roll      float64 `json:"roll" yaml:"roll"`           // Roll angle in degrees
}

// Position returns the location part of the pose
func (p DronePose) Position() Position {
	return Position{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Altitude:  p.Altitude,
	}
}
