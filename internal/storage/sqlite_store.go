package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a journal backed by the Sqlite database at dbPath.
// Connections are opened on first use, the schema is created with the write
// connection.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, name string, config any) (sessionID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), name, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Name, &config)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = fmt.Errorf("session %d: %w", id, geo.ErrNotFound)
		return
	case err != nil:
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Name, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating sessions: %w", err)
	}
	return
}

func (s *SqliteStore) InsertObservation(ctx context.Context, sessionID int64, o *triangulation.Observation) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	_, err = stmt.ExecContext(
		ctx,
		sessionID,
		o.ID,
		o.TargetID,
		o.Position.Latitude,
		o.Position.Longitude,
		o.Position.Altitude,
		o.Bearing,
		o.Elevation,
		o.Confidence,
		o.CapturedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting observation: %w", err)
	}
	return nil
}

func (s *SqliteStore) InsertEstimate(ctx context.Context, sessionID int64, e *triangulation.PositionEstimate) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	_, err = tx.ExecContext(
		ctx,
		insertEstimateSQL,
		sessionID,
		e.TargetID,
		e.Latitude,
		e.Longitude,
		e.Precision.Meters,
		e.Precision.ConfidencePercent,
		e.Precision.MaxDeviationMeters,
		e.ObservationCount,
		e.ComputedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting estimate: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) Observations(ctx context.Context, sessionID int64) (observations []*triangulation.Observation, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectObservationsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying observations: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var o triangulation.Observation
		err = rows.Scan(
			&o.ID,
			&o.TargetID,
			&o.Position.Latitude,
			&o.Position.Longitude,
			&o.Position.Altitude,
			&o.Bearing,
			&o.Elevation,
			&o.Confidence,
			&o.CapturedAt,
		)
		if err != nil {
			err = fmt.Errorf("scanning observation: %w", err)
			return
		}
		observations = append(observations, &o)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating observations: %w", err)
	}
	return
}

func (s *SqliteStore) Estimates(ctx context.Context, sessionID int64) (estimates []*triangulation.PositionEstimate, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectEstimatesSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying estimates: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var e triangulation.PositionEstimate
		err = rows.Scan(
			&e.TargetID,
			&e.Latitude,
			&e.Longitude,
			&e.Precision.Meters,
			&e.Precision.ConfidencePercent,
			&e.Precision.MaxDeviationMeters,
			&e.ObservationCount,
			&e.ComputedAt,
		)
		if err != nil {
			err = fmt.Errorf("scanning estimate: %w", err)
			return
		}
		estimates = append(estimates, &e)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating estimates: %w", err)
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
