package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/correlation"
	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

var (
	ErrNoReference    = errors.New("no reference image set")
	ErrTargetRequired = errors.New("target ID is required")
)

const (
	// changeThreshold is the correlation confidence below which the area is
	// reported as changed
	changeThreshold = 0.8

	defaultElevation  = 0.0
	defaultConfidence = 1.0
)

// Journal receives every accepted observation and computed estimate
type Journal interface {
	InsertObservation(ctx context.Context, sessionID int64, o *triangulation.Observation) error
	InsertEstimate(ctx context.Context, sessionID int64, e *triangulation.PositionEstimate) error
}

// ObservationParams is a sighting reported by the operator. Bearing is
// required, Elevation defaults to 0 and Confidence defaults to 1.
type ObservationParams struct {
	TargetID   string
	Bearing    *float64
	Elevation  *float64
	Confidence *float64
}

// ObservationResult is the outcome of AddObservation
type ObservationResult struct {
	ObservationID     string `json:"observationID"`
	TotalObservations int    `json:"totalObservations"`
	CanCalculate      bool   `json:"canCalculate"`
}

// Reference is a reference capture change detection compares against
type Reference struct {
	ID        string          `json:"id"`
	Location  geo.Coordinates `json:"location"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ChangeReport is the outcome of DetectChanges
type ChangeReport struct {
	HasChanges            bool                `json:"hasChanges"`
	ChangePercentage      float64             `json:"changePercentage"`
	CorrelationConfidence float64             `json:"correlationConfidence"`
	ReferenceID           string              `json:"referenceID"`
	Correlation           *correlation.Result `json:"correlation"`
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) func(*Service) {
	return func(s *Service) {
		s.logger = logger.With(slog.String("component", "service"))
	}
}

// WithJournal appends observations and estimates to the session of the journal
func WithJournal(j Journal, sessionID int64) func(*Service) {
	return func(s *Service) {
		s.journal = j
		s.sessionID = sessionID
	}
}

// WithValidation enables range checks of reported sightings
func WithValidation(enabled bool) func(*Service) {
	return func(s *Service) {
		s.validate = enabled
	}
}

// WithThreshold sets the correlation confidence threshold
func WithThreshold(threshold float64) func(*Service) {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithClock sets the clock used for reference IDs
func WithClock(now func() time.Time) func(*Service) {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the operator facing facade of the fusion engine. It binds the
// current drone telemetry to sightings and frames before handing them to the
// estimator and the correlator.
type Service struct {
	estimator  *triangulation.Estimator
	correlator correlation.Correlator
	telemetry  telemetry.Provider

	journal   Journal
	sessionID int64

	validate  bool
	threshold float64

	mu         sync.Mutex
	references map[string]Reference
	current    string // ID of the reference used for change detection

	now    func() time.Time
	logger *slog.Logger
}

// New creates a Service. The estimator is owned by the caller and may be
// shared with other consumers.
func New(estimator *triangulation.Estimator, correlator correlation.Correlator, provider telemetry.Provider, options ...func(*Service)) *Service {
	s := Service{
		estimator:  estimator,
		correlator: correlator,
		telemetry:  provider,
		threshold:  correlation.DefaultThreshold,
		references: make(map[string]Reference),
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// CreateTarget allocates a new empty target
func (s *Service) CreateTarget() string {
	return s.estimator.CreateTarget()
}

// ResetTarget drops a target and its observations
func (s *Service) ResetTarget(targetID string) bool {
	return s.estimator.ResetTarget(targetID)
}

// AddObservation records a sighting of the target from the current drone
// position
func (s *Service) AddObservation(ctx context.Context, params ObservationParams) (*ObservationResult, error) {
	if params.TargetID == "" {
		return nil, ErrTargetRequired
	}
	if params.Bearing == nil {
		return nil, fmt.Errorf("bearing is required: %w", geo.ErrValidation)
	}

	bearing := *params.Bearing
	elevation := valueOr(params.Elevation, defaultElevation)
	confidence := valueOr(params.Confidence, defaultConfidence)

	if s.validate {
		if err := triangulation.ValidateObservation(bearing, elevation, confidence); err != nil {
			return nil, err
		}
	}

	pose, err := s.telemetry.Get().Pose()
	if err != nil {
		return nil, fmt.Errorf("adding observation: %w", err)
	}

	id := s.estimator.AddObservation(params.TargetID, pose.Position(), bearing, elevation, confidence)

	observations, _ := s.estimator.Observations(params.TargetID)
	for i := range observations {
		if observations[i].ID == id {
			s.journalObservation(ctx, &observations[i])
			break
		}
	}

	return &ObservationResult{
		ObservationID:     id,
		TotalObservations: len(observations),
		CanCalculate:      len(observations) >= triangulation.MinObservations,
	}, nil
}

// CalculatePosition fuses the observations of the target
func (s *Service) CalculatePosition(ctx context.Context, targetID string) (*triangulation.PositionEstimate, error) {
	if targetID == "" {
		return nil, ErrTargetRequired
	}

	estimate, err := s.estimator.CalculatePosition(targetID)
	if err != nil {
		return nil, err
	}

	if s.journal != nil {
		if err = s.journal.InsertEstimate(ctx, s.sessionID, estimate); err != nil {
			s.logger.Error("failed to journal estimate", slog.String("targetID", targetID), slog.Any("error", err))
		}
	}

	return estimate, nil
}

// TargetsStatus returns the status of every target in creation order
func (s *Service) TargetsStatus() []triangulation.TargetStatus {
	return s.estimator.Status()
}

// AddReference records a reference capture at the current GPS fix and makes
// it the reference for change detection
func (s *Service) AddReference() (*Reference, error) {
	pose, err := s.telemetry.Get().Pose()
	if err != nil {
		return nil, fmt.Errorf("adding reference: %w", err)
	}

	now := s.now()
	ref := Reference{
		ID:        "ref_" + now.Format("20060102150405"),
		Location:  pose.Position().Coordinates(),
		CreatedAt: now,
	}

	s.mu.Lock()
	s.references[ref.ID] = ref
	s.current = ref.ID
	s.mu.Unlock()

	s.logger.Info("reference added",
		slog.String("referenceID", ref.ID),
		slog.Float64("latitude", ref.Location.Latitude),
		slog.Float64("longitude", ref.Location.Longitude))

	return &ref, nil
}

// References returns the recorded references
func (s *Service) References() map[string]Reference {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make(map[string]Reference, len(s.references))
	for id, ref := range s.references {
		refs[id] = ref
	}
	return refs
}

// DetectChanges correlates the frame with the reference imagery of the
// current position. A weak correlation is reported as a change of the area.
func (s *Service) DetectChanges(ctx context.Context, frame []byte) (*ChangeReport, error) {
	s.mu.Lock()
	refID := s.current
	s.mu.Unlock()

	if refID == "" {
		return nil, ErrNoReference
	}

	result, err := s.Correlate(ctx, frame)
	if err != nil {
		return nil, err
	}

	report := ChangeReport{
		HasChanges:            result.Confidence < changeThreshold,
		ChangePercentage:      math.Round((1-result.Confidence)*100*100) / 100,
		CorrelationConfidence: result.Confidence,
		ReferenceID:           refID,
		Correlation:           result,
	}

	s.logger.Info("changes detected",
		slog.String("referenceID", refID),
		slog.Bool("hasChanges", report.HasChanges),
		slog.Float64("changePercentage", report.ChangePercentage))

	return &report, nil
}

// Correlate matches the frame against the reference imagery using the current
// telemetry
func (s *Service) Correlate(ctx context.Context, frame []byte) (*correlation.Result, error) {
	result, err := s.correlator.Correlate(ctx, frame, s.telemetry.Get(), s.threshold)
	if err != nil {
		return nil, fmt.Errorf("correlating frame: %w", err)
	}
	return result, nil
}

// LocatePixel maps a pixel of the current frame onto geographic coordinates
func (s *Service) LocatePixel(x, y float64) (geo.Location, error) {
	pose, err := s.telemetry.Get().Pose()
	if err != nil {
		return geo.Location{}, fmt.Errorf("locating pixel: %w", err)
	}
	return geo.CalculateRealCoordinates(x, y, pose), nil
}

func (s *Service) journalObservation(ctx context.Context, o *triangulation.Observation) {
	if s.journal == nil {
		return
	}
	if err := s.journal.InsertObservation(ctx, s.sessionID, o); err != nil {
		s.logger.Error("failed to journal observation", slog.String("observationID", o.ID), slog.Any("error", err))
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
