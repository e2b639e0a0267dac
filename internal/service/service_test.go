package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-geofusion/internal/correlation"
	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

var testPose = geo.DronePose{Latitude: 40.7128, Longitude: -74.006, Altitude: 100}

type memoryJournal struct {
	mu           sync.Mutex
	err          error
	sessions     []int64
	observations []*triangulation.Observation
	estimates    []*triangulation.PositionEstimate
}

func (j *memoryJournal) InsertObservation(_ context.Context, sessionID int64, o *triangulation.Observation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return j.err
	}
	j.sessions = append(j.sessions, sessionID)
	j.observations = append(j.observations, o)
	return nil
}

func (j *memoryJournal) InsertEstimate(_ context.Context, sessionID int64, e *triangulation.PositionEstimate) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return j.err
	}
	j.sessions = append(j.sessions, sessionID)
	j.estimates = append(j.estimates, e)
	return nil
}

type stubCorrelator struct {
	confidence float64
	err        error
}

func (c stubCorrelator) Correlate(_ context.Context, _ []byte, t *telemetry.Telemetry, threshold float64) (*correlation.Result, error) {
	if c.err != nil {
		return nil, c.err
	}
	if _, err := t.Pose(); err != nil {
		return nil, err
	}
	status := correlation.LowConfidence
	if c.confidence >= threshold {
		status = correlation.HighConfidence
	}
	return &correlation.Result{Confidence: c.confidence, Status: status}, nil
}

func ptr(v float64) *float64 {
	return &v
}

func newTestService(options ...func(*Service)) (*Service, *telemetry.Static) {
	provider := telemetry.NewStatic(testPose)
	return New(triangulation.New(), correlation.NewFixed(), provider, options...), provider
}

func TestService_AddObservation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	id := s.CreateTarget()

	r, err := s.AddObservation(ctx, ObservationParams{TargetID: id, Bearing: ptr(45)})
	require.NoError(t, err)
	assert.Equal(t, id+"_0", r.ObservationID)
	assert.Equal(t, 1, r.TotalObservations)
	assert.False(t, r.CanCalculate)

	r, err = s.AddObservation(ctx, ObservationParams{TargetID: id, Bearing: ptr(135), Elevation: ptr(10), Confidence: ptr(0.5)})
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalObservations)
	assert.True(t, r.CanCalculate)

	observations, ok := s.estimator.Observations(id)
	require.True(t, ok)
	require.Len(t, observations, 2)

	assert.Equal(t, testPose.Position(), observations[0].Position)
	assert.Equal(t, 0.0, observations[0].Elevation)
	assert.Equal(t, 1.0, observations[0].Confidence)
	assert.Equal(t, 10.0, observations[1].Elevation)
	assert.Equal(t, 0.5, observations[1].Confidence)
}

func TestService_AddObservationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		params   ObservationParams
		validate bool
		noGPS    bool
		wantErr  error
	}{
		{name: "no target", params: ObservationParams{Bearing: ptr(10)}, wantErr: ErrTargetRequired},
		{name: "no bearing", params: ObservationParams{TargetID: "t"}, wantErr: geo.ErrValidation},
		{name: "bad bearing", params: ObservationParams{TargetID: "t", Bearing: ptr(400)}, validate: true, wantErr: geo.ErrValidation},
		{name: "bad confidence", params: ObservationParams{TargetID: "t", Bearing: ptr(10), Confidence: ptr(2)}, validate: true, wantErr: geo.ErrValidation},
		{name: "no GPS", params: ObservationParams{TargetID: "t", Bearing: ptr(10)}, noGPS: true, wantErr: geo.ErrMissingGPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, provider := newTestService(WithValidation(tt.validate))
			if tt.noGPS {
				provider.SetTelemetry(&telemetry.Telemetry{})
			}

			_, err := s.AddObservation(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, s.TargetsStatus())
		})
	}
}

func TestService_AddObservationWithoutValidation(t *testing.T) {
	s, _ := newTestService()

	_, err := s.AddObservation(context.Background(), ObservationParams{TargetID: "t", Bearing: ptr(400)})
	assert.NoError(t, err)
}

func TestService_CalculatePosition(t *testing.T) {
	ctx := context.Background()
	journal := &memoryJournal{}
	s, provider := newTestService(WithJournal(journal, 7))

	id := s.CreateTarget()

	_, err := s.CalculatePosition(ctx, id)
	assert.ErrorIs(t, err, geo.ErrInsufficientData)

	_, err = s.CalculatePosition(ctx, "unknown")
	assert.ErrorIs(t, err, geo.ErrNotFound)

	_, err = s.CalculatePosition(ctx, "")
	assert.ErrorIs(t, err, ErrTargetRequired)

	_, err = s.AddObservation(ctx, ObservationParams{TargetID: id, Bearing: ptr(90), Elevation: ptr(45)})
	require.NoError(t, err)

	provider.Set(geo.DronePose{Latitude: 40.7138, Longitude: -74.006, Altitude: 100})
	_, err = s.AddObservation(ctx, ObservationParams{TargetID: id, Bearing: ptr(120), Elevation: ptr(45)})
	require.NoError(t, err)

	estimate, err := s.CalculatePosition(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, estimate.TargetID)
	assert.Equal(t, 2, estimate.ObservationCount)

	require.Len(t, journal.observations, 2)
	require.Len(t, journal.estimates, 1)
	assert.Equal(t, estimate, journal.estimates[0])
	assert.Equal(t, []int64{7, 7, 7}, journal.sessions)

	status := s.TargetsStatus()
	require.Len(t, status, 1)
	assert.True(t, status[0].CanCalculate)
}

func TestService_JournalFailure(t *testing.T) {
	ctx := context.Background()
	journal := &memoryJournal{err: errors.New("disk full")}
	s, _ := newTestService(WithJournal(journal, 1))

	for _, bearing := range []float64{10, 20} {
		_, err := s.AddObservation(ctx, ObservationParams{TargetID: "t", Bearing: ptr(bearing)})
		require.NoError(t, err)
	}

	_, err := s.CalculatePosition(ctx, "t")
	assert.NoError(t, err)
	assert.Empty(t, journal.observations)
}

func TestService_ResetTarget(t *testing.T) {
	s, _ := newTestService()

	id := s.CreateTarget()
	assert.True(t, s.ResetTarget(id))
	assert.False(t, s.ResetTarget(id))
	assert.Empty(t, s.TargetsStatus())
}

func TestService_AddReference(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	s, provider := newTestService(WithClock(func() time.Time { return now }))

	ref, err := s.AddReference()
	require.NoError(t, err)
	assert.Equal(t, "ref_20240309140507", ref.ID)
	assert.Equal(t, testPose.Position().Coordinates(), ref.Location)
	assert.Contains(t, s.References(), ref.ID)

	provider.SetTelemetry(&telemetry.Telemetry{})
	_, err = s.AddReference()
	assert.ErrorIs(t, err, geo.ErrMissingGPS)
}

func TestService_DetectChanges(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		confidence     float64
		wantChanges    bool
		wantPercentage float64
	}{
		{name: "fixed matcher", confidence: 0.85, wantChanges: false, wantPercentage: 15},
		{name: "at threshold", confidence: 0.8, wantChanges: false, wantPercentage: 20},
		{name: "changed", confidence: 0.4567, wantChanges: true, wantPercentage: 54.33},
		{name: "no match", confidence: 0, wantChanges: true, wantPercentage: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(triangulation.New(), stubCorrelator{confidence: tt.confidence}, telemetry.NewStatic(testPose))

			_, err := s.DetectChanges(ctx, nil)
			require.ErrorIs(t, err, ErrNoReference)

			ref, err := s.AddReference()
			require.NoError(t, err)

			report, err := s.DetectChanges(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanges, report.HasChanges)
			assert.InDelta(t, tt.wantPercentage, report.ChangePercentage, 1e-9)
			assert.Equal(t, tt.confidence, report.CorrelationConfidence)
			assert.Equal(t, ref.ID, report.ReferenceID)
		})
	}
}

func TestService_DetectChangesCorrelatorError(t *testing.T) {
	failure := errors.New("matcher failed")
	s := New(triangulation.New(), stubCorrelator{err: failure}, telemetry.NewStatic(testPose))

	_, err := s.AddReference()
	require.NoError(t, err)

	_, err = s.DetectChanges(context.Background(), nil)
	assert.ErrorIs(t, err, failure)
}

func TestService_Correlate(t *testing.T) {
	s, provider := newTestService(WithThreshold(0.9))

	r, err := s.Correlate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, correlation.LowConfidence, r.Status)
	assert.InDelta(t, testPose.Latitude+0.0001, r.Corrected.Latitude, 1e-12)

	provider.SetTelemetry(&telemetry.Telemetry{})
	_, err = s.Correlate(context.Background(), nil)
	assert.ErrorIs(t, err, geo.ErrMissingGPS)
}

func TestService_LocatePixel(t *testing.T) {
	s, provider := newTestService()

	loc, err := s.LocatePixel(100, 50)
	require.NoError(t, err)
	assert.Equal(t, geo.CalculateRealCoordinates(100, 50, testPose), loc)

	provider.SetTelemetry(&telemetry.Telemetry{})
	_, err = s.LocatePixel(100, 50)
	assert.ErrorIs(t, err, geo.ErrMissingGPS)
}

func TestService_ConcurrentObservations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	id := s.CreateTarget()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddObservation(ctx, ObservationParams{TargetID: id, Bearing: ptr(float64(i))})
		}(i)
	}
	wg.Wait()

	status := s.TargetsStatus()
	require.Len(t, status, 1)
	assert.Equal(t, 50, status[0].ObservationCount)
}
