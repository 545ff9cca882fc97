package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mercator-hq/quota/pkg/quota"
)

// ErrNotFound is returned by Store.Latest when the archive is empty.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a point-in-time summary of quota usage.
type Snapshot struct {
	// ID uniquely identifies the snapshot.
	ID string `json:"id"`

	// TakenAt is when the snapshot was taken.
	TakenAt time.Time `json:"taken_at"`

	// Tracked is the number of IP address identities in deficit per
	// enabled window.
	Tracked map[quota.Window]int `json:"tracked"`

	// Entries are the lowest day-window budgets in ascending order.
	Entries []quota.SummaryEntry `json:"entries"`
}

// Source is the part of quota.Engine a snapshot reads from.
type Source interface {
	LowestDailySummary(n int) []quota.SummaryEntry
	Tracked() map[quota.Window]int
}

// Take builds a snapshot of src with at most topN entries.
func Take(src Source, topN int, now time.Time) *Snapshot {
	entries := src.LowestDailySummary(topN)
	if entries == nil {
		entries = []quota.SummaryEntry{}
	}
	return &Snapshot{
		ID:      uuid.New().String(),
		TakenAt: now.UTC(),
		Tracked: src.Tracked(),
		Entries: entries,
	}
}

// Store persists snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a snapshot. Saving an existing ID fails.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or ErrNotFound.
	Latest(ctx context.Context) (*Snapshot, error)

	// List returns snapshots taken at or after since, newest first.
	// A non-positive limit returns every match.
	List(ctx context.Context, since time.Time, limit int) ([]*Snapshot, error)

	// Cleanup deletes snapshots taken before olderThan and returns how many
	// were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite", "sqlite3"
	Operation string // Operation that failed ("save", "list", ...)
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("report storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
