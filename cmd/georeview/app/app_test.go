package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/storage"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

func seedJournal(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.sqlite")

	store := storage.NewSqliteStore(path)
	defer store.Close()

	sessionID, err := store.CreateSession(ctx, "north field", nil)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.InsertObservation(ctx, sessionID, &triangulation.Observation{
		ID:         "target_1_0",
		TargetID:   "target_1",
		Position:   geo.Position{Latitude: 40, Longitude: -74, Altitude: 100},
		Bearing:    45,
		Confidence: 1,
		CapturedAt: now,
	}))
	require.NoError(t, store.InsertEstimate(ctx, sessionID, &triangulation.PositionEstimate{
		TargetID:         "target_1",
		Latitude:         40.0009,
		Longitude:        -73.99883,
		ObservationCount: 2,
		ComputedAt:       now,
	}))

	return path
}

func TestRun(t *testing.T) {
	path := seedJournal(t)

	tests := []struct {
		name    string
		config  Config
		want    []string
		notWant []string
	}{
		{
			name:    "all sessions",
			config:  Config{DBPath: path},
			want:    []string{"name=\"north field\"", "msg=estimate", "targetID=target_1"},
			notWant: []string{"msg=observation"},
		},
		{
			name:   "session observations",
			config: Config{DBPath: path, SessionID: 1, Observations: true},
			want:   []string{"msg=session", "msg=estimate", "msg=observation", "observationID=target_1_0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			require.NoError(t, Run(context.Background(), &tt.config, logger))

			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	err := Run(context.Background(), &Config{DBPath: filepath.Join(t.TempDir(), "missing.sqlite")}, logger)
	assert.Error(t, err)

	err = Run(context.Background(), &Config{DBPath: seedJournal(t), SessionID: 42}, logger)
	assert.ErrorIs(t, err, geo.ErrNotFound)
}

func TestRunPlot(t *testing.T) {
	plotFile := filepath.Join(t.TempDir(), "session.png")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	require.NoError(t, Run(context.Background(), &Config{DBPath: seedJournal(t), SessionID: 1, PlotFile: plotFile}, logger))

	info, err := os.Stat(plotFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
