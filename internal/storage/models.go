package storage

import (
	"time"
)

// Session is a single ground control session. Observations and estimates of
// the session are journaled under its ID.
type Session struct {
	ID        int64     `json:"ID"`
	StartTime time.Time `json:"startTime"`
	Name      string    `json:"name"`
	Config    *string   `json:"config,omitempty"` // Optional session configuration in JSON format
}
