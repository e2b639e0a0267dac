package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/annotate"
	"github.com/roman-kulish/drone-geofusion/internal/correlation"
	"github.com/roman-kulish/drone-geofusion/internal/service"
	"github.com/roman-kulish/drone-geofusion/internal/storage"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if config.Mission == "" {
		return errors.New("no mission file provided")
	}

	mission, err := LoadMission(config.Mission)
	if err != nil {
		return fmt.Errorf("failed to load mission: %w", err)
	}

	correlator, err := correlation.New(&config.Correlation, logger)
	if err != nil {
		return fmt.Errorf("failed to create correlator: %w", err)
	}

	options := []func(*service.Service){
		service.WithLogger(logger),
		service.WithValidation(config.Validation.Enabled),
		service.WithThreshold(config.Correlation.Threshold),
	}

	if config.Storage.Enabled {
		var store *storage.SqliteStore
		if store, err = createStorage(&config.Storage); err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer func() {
			if cErr := store.Close(); cErr != nil && err == nil {
				err = fmt.Errorf("closing storage: %w", cErr)
			}
		}()

		name := config.Storage.SessionName
		if mission.Name != "" {
			name = mission.Name
		}

		var sessionID int64
		if sessionID, err = store.CreateSession(ctx, name, config); err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		logger.Info("journal session created", slog.Int64("sessionID", sessionID), slog.String("name", name))

		options = append(options, service.WithJournal(store, sessionID))
	}

	annotator, err := annotate.NewAnnotator()
	if err != nil {
		return fmt.Errorf("failed to create annotator: %w", err)
	}

	provider := telemetry.NewStatic(config.Telemetry.Pose)
	estimator := triangulation.New(triangulation.WithLogger(logger))
	svc := service.New(estimator, correlator, provider, options...)

	orchestrator := NewOrchestrator(svc, provider, WithAnnotator(annotator), WithLogger(logger))

	started := time.Now()
	report, err := orchestrator.Replay(ctx, mission)
	if err != nil {
		return fmt.Errorf("replaying mission: %w", err)
	}

	logger.Info("mission replayed",
		slog.String("mission", mission.Name),
		slog.Int("targets", len(report.Targets)),
		slog.Int("located", len(report.Estimates)),
		slog.Int("frames", len(report.Frames)),
		slog.Duration("elapsed", time.Since(started)))

	return nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	dataDir := config.DataDirectory
	if !filepath.IsAbs(dataDir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dataDir = filepath.Join(wd, dataDir)
	}

	stat, err := os.Stat(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dataDir, err)
		}
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dataDir)
	}

	return storage.NewSqliteStore(storage.JournalPath(dataDir, time.Now())), nil
}
