package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

// Store is the mission journal. It records the observations and the position
// estimates of every session for later review. The journal is never read back
// into the live estimator.
type Store interface {
	CreateSession(ctx context.Context, name string, config any) (int64, error)
	Session(ctx context.Context, id int64) (*Session, error)
	Sessions(ctx context.Context) ([]*Session, error)
	InsertObservation(ctx context.Context, sessionID int64, o *triangulation.Observation) error
	InsertEstimate(ctx context.Context, sessionID int64, e *triangulation.PositionEstimate) error
	Observations(ctx context.Context, sessionID int64) ([]*triangulation.Observation, error)
	Estimates(ctx context.Context, sessionID int64) ([]*triangulation.PositionEstimate, error)
	Close() error
}

// JournalPath returns the path of a new journal database in dataDir
func JournalPath(dataDir string, now time.Time) string {
	return filepath.Join(dataDir, fmt.Sprintf("geofusion_%s.sqlite", now.UTC().Format("20060102_150405")))
}

var _ Store = (*SqliteStore)(nil)
