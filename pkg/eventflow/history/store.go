// Package history provides persistent storage for scan runs.
package history

import (
	"errors"
	"time"
)

// Record is one completed scan run.
type Record struct {
	RunID     string
	Timestamp time.Time
	Events    int
	Agents    int
	Anomalies int
	Report    []byte
}

// Info provides run metadata without loading the full report.
type Info struct {
	RunID     string
	Timestamp time.Time
	Events    int
	Agents    int
	Anomalies int
	Size      int64
}

// Store persists scan records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a record. Overwrites if the run ID already exists.
	Save(rec Record) error

	// Load retrieves a record by run ID.
	// Returns ErrNotFound if it doesn't exist.
	Load(runID string) (Record, error)

	// List returns metadata for all records, newest first.
	// Returns empty slice (not error) if the store is empty.
	List() ([]Info, error)

	// Delete removes a record.
	// Returns nil if it doesn't exist.
	Delete(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for history operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("history record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("history store closed")
)
