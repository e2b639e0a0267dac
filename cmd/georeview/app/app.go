package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/drone-geofusion/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return review(ctx, store, config, logger)
}

func review(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) error {
	var sessions []*storage.Session
	if config.SessionID > 0 {
		sess, err := store.Session(ctx, config.SessionID)
		if err != nil {
			return err
		}
		sessions = append(sessions, sess)
	} else {
		var err error
		if sessions, err = store.Sessions(ctx); err != nil {
			return err
		}
	}

	if len(sessions) == 0 {
		logger.Info("journal has no sessions")
		return nil
	}

	for _, sess := range sessions {
		estimates, err := store.Estimates(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("reading estimates of session %d: %w", sess.ID, err)
		}

		logger.Info("session",
			slog.Int64("sessionID", sess.ID),
			slog.String("name", sess.Name),
			slog.String("started", humanize.Time(sess.StartTime)),
			slog.Int("estimates", len(estimates)))

		for _, e := range estimates {
			logger.Info("estimate",
				slog.Int64("sessionID", sess.ID),
				slog.String("targetID", e.TargetID),
				slog.String("latitude", fmt.Sprintf("%.6f", e.Latitude)),
				slog.String("longitude", fmt.Sprintf("%.6f", e.Longitude)),
				slog.String("precision", humanize.SIWithDigits(e.Precision.Meters, 1, "m")),
				slog.String("maxDeviation", humanize.SIWithDigits(e.Precision.MaxDeviationMeters, 1, "m")),
				slog.String("confidence", fmt.Sprintf("%.1f%%", e.Precision.ConfidencePercent)),
				slog.Int("observations", e.ObservationCount),
				slog.String("computed", humanize.Time(e.ComputedAt)))
		}

		if !config.Observations && config.PlotFile == "" {
			continue
		}

		observations, err := store.Observations(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("reading observations of session %d: %w", sess.ID, err)
		}

		if config.PlotFile != "" {
			if err = plotSession(sess, observations, estimates, config.PlotFile); err != nil {
				return err
			}
			logger.Info("session plotted", slog.Int64("sessionID", sess.ID), slog.String("destination", config.PlotFile))
		}

		if !config.Observations {
			continue
		}
		for _, o := range observations {
			logger.Info("observation",
				slog.Int64("sessionID", sess.ID),
				slog.String("observationID", o.ID),
				slog.String("targetID", o.TargetID),
				slog.String("drone", fmt.Sprintf("%.6f, %.6f", o.Position.Latitude, o.Position.Longitude)),
				slog.String("altitude", humanize.SIWithDigits(o.Position.Altitude, 1, "m")),
				slog.Float64("bearing", o.Bearing),
				slog.Float64("elevation", o.Elevation),
				slog.Float64("confidence", o.Confidence))
		}
	}

	return nil
}
