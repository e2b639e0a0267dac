package triangulation

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

// MinObservations is the number of observations needed to fuse a position
const MinObservations = 2

// Observation is a single sighting of a target from the drone
type Observation struct {
	ID         string       `json:"id"`
	TargetID   string       `json:"targetID"`
	Position   geo.Position `json:"dronePosition"` // Drone position at capture time
	Bearing    float64      `json:"bearing"`       // Horizontal angle to the target in degrees
	Elevation  float64      `json:"elevation"`     // Vertical angle above the horizon in degrees
	Confidence float64      `json:"confidence"`    // Measurement confidence in [0, 1]
	CapturedAt time.Time    `json:"capturedAt"`
}

// Precision describes how tightly the per-observation estimates cluster
type Precision struct {
	Meters             float64 `json:"meters"`             // Mean distance of the estimates to the fused point
	ConfidencePercent  float64 `json:"confidencePercent"`  // Score in [0, 99]
	MaxDeviationMeters float64 `json:"maxDeviationMeters"` // Largest distance of an estimate to the fused point
}

// PositionEstimate is the fused position of a target. It is derived on demand
// and never stored as authoritative state.
type PositionEstimate struct {
	TargetID         string    `json:"targetID"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Precision        Precision `json:"precision"`
	ObservationCount int       `json:"observationCount"`
	ComputedAt       time.Time `json:"computedAt"`
}

// TargetStatus summarises a target for the operator
type TargetStatus struct {
	TargetID         string     `json:"targetID"`
	ObservationCount int        `json:"observationCount"`
	CanCalculate     bool       `json:"canCalculate"`
	LastObservation  *time.Time `json:"lastObservation,omitempty"`
}

// WithLogger sets the logger for the estimator
func WithLogger(logger *slog.Logger) func(*Estimator) {
	return func(e *Estimator) {
		e.logger = logger.With(slog.String("component", "triangulation"))
	}
}

// WithClock sets the clock used to timestamp observations and estimates
func WithClock(now func() time.Time) func(*Estimator) {
	return func(e *Estimator) {
		e.now = now
	}
}

// WithIDGenerator sets the generator of target IDs for CreateTarget
func WithIDGenerator(gen func() string) func(*Estimator) {
	return func(e *Estimator) {
		e.newID = gen
	}
}

// Estimator owns the observation history of every target and fuses it into
// position estimates. It is safe for concurrent use; a single lock serializes
// all reads and writes of the target map.
type Estimator struct {
	mu      sync.RWMutex
	targets map[string][]Observation
	order   []string // target IDs in creation order

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// New creates an empty Estimator with a discard logger
func New(options ...func(*Estimator)) *Estimator {
	e := Estimator{
		targets: make(map[string][]Observation),
		now:     time.Now,
		newID:   newTargetID,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&e)
	}

	return &e
}

func newTargetID() string {
	return "target_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CreateTarget allocates a new empty target and returns its ID
func (e *Estimator) CreateTarget() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.newID()
	for {
		if _, exists := e.targets[id]; !exists {
			break
		}
		id = e.newID()
	}

	e.targets[id] = []Observation{}
	e.order = append(e.order, id)

	e.logger.Info("target created", slog.String("targetID", id))
	return id
}

// AddObservation records a sighting of the target, creating the target when
// it is not known yet. Angles are stored as given, see ValidateObservation.
func (e *Estimator) AddObservation(targetID string, pos geo.Position, bearing, elevation, confidence float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	observations, ok := e.targets[targetID]
	if !ok {
		e.order = append(e.order, targetID)
	}

	id := fmt.Sprintf("%s_%d", targetID, len(observations))
	e.targets[targetID] = append(observations, Observation{
		ID:         id,
		TargetID:   targetID,
		Position:   pos,
		Bearing:    bearing,
		Elevation:  elevation,
		Confidence: confidence,
		CapturedAt: e.now(),
	})

	e.logger.Debug("observation added",
		slog.String("targetID", targetID),
		slog.String("observationID", id),
		slog.Float64("bearing", bearing),
		slog.Float64("elevation", elevation))

	return id
}

// CalculatePosition fuses all observations of the target into one estimate.
// It fails with geo.ErrNotFound for unknown targets and with
// geo.ErrInsufficientData when fewer than MinObservations exist.
func (e *Estimator) CalculatePosition(targetID string) (*PositionEstimate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	observations, ok := e.targets[targetID]
	if !ok {
		return nil, fmt.Errorf("target %s: %w", targetID, geo.ErrNotFound)
	}
	if len(observations) < MinObservations {
		return nil, fmt.Errorf("target %s has %d observation(s): %w", targetID, len(observations), geo.ErrInsufficientData)
	}

	lat, lon, precision := fuse(observations)
	estimate := PositionEstimate{
		TargetID:         targetID,
		Latitude:         lat,
		Longitude:        lon,
		Precision:        precision,
		ObservationCount: len(observations),
		ComputedAt:       e.now(),
	}

	e.logger.Info("position calculated",
		slog.String("targetID", targetID),
		slog.Float64("latitude", lat),
		slog.Float64("longitude", lon),
		slog.String("precision", humanize.SIWithDigits(precision.Meters, 1, "m")),
		slog.Int("observations", len(observations)))

	return &estimate, nil
}

// ResetTarget deletes the target and all of its observations. It reports
// whether the target existed.
func (e *Estimator) ResetTarget(targetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.targets[targetID]; !ok {
		return false
	}

	delete(e.targets, targetID)
	e.order = slices.DeleteFunc(e.order, func(id string) bool { return id == targetID })

	e.logger.Info("target reset", slog.String("targetID", targetID))
	return true
}

// Targets returns the IDs of all known targets in creation order
func (e *Estimator) Targets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Clone(e.order)
}

// Observations returns a copy of the observations of the target
func (e *Estimator) Observations(targetID string) ([]Observation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	observations, ok := e.targets[targetID]
	return slices.Clone(observations), ok
}

// Status returns the status of every target in creation order
func (e *Estimator) Status() []TargetStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := make([]TargetStatus, 0, len(e.order))
	for _, id := range e.order {
		observations := e.targets[id]

		s := TargetStatus{
			TargetID:         id,
			ObservationCount: len(observations),
			CanCalculate:     len(observations) >= MinObservations,
		}
		if n := len(observations); n > 0 {
			last := observations[n-1].CapturedAt
			s.LastObservation = &last
		}

		status = append(status, s)
	}

	return status
}
