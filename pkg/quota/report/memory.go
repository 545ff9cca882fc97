package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mercator-hq/quota/pkg/quota"
)

var errClosed = errors.New("store is closed")

// MemoryStore implements Store in memory.
// It is intended for tests and dry runs.
type MemoryStore struct {
	snapshots map[string]*Snapshot
	closed    bool
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*Snapshot),
	}
}

// Save stores a copy of snap.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newStorageError("memory", "save", errClosed)
	}
	if _, exists := s.snapshots[snap.ID]; exists {
		return newStorageError("memory", "save", errors.New("duplicate snapshot id "+snap.ID))
	}
	s.snapshots[snap.ID] = copySnapshot(snap)
	return nil
}

// Latest returns the most recent snapshot.
func (s *MemoryStore) Latest(ctx context.Context) (*Snapshot, error) {
	list, err := s.List(ctx, time.Time{}, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// List returns snapshots taken at or after since, newest first.
func (s *MemoryStore) List(ctx context.Context, since time.Time, limit int) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, newStorageError("memory", "list", errClosed)
	}

	results := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		if snap.TakenAt.Before(since) {
			continue
		}
		results = append(results, copySnapshot(snap))
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].TakenAt.Equal(results[j].TakenAt) {
			return results[i].TakenAt.After(results[j].TakenAt)
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Cleanup deletes snapshots taken before olderThan.
func (s *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, newStorageError("memory", "cleanup", errClosed)
	}

	deleted := 0
	for id, snap := range s.snapshots {
		if snap.TakenAt.Before(olderThan) {
			delete(s.snapshots, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping fails only after Close.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return newStorageError("memory", "ping", errClosed)
	}
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.snapshots = nil
	return nil
}

// copySnapshot returns a deep copy so callers cannot mutate stored state.
func copySnapshot(snap *Snapshot) *Snapshot {
	cp := *snap
	if snap.Tracked != nil {
		cp.Tracked = make(map[quota.Window]int, len(snap.Tracked))
		for w, n := range snap.Tracked {
			cp.Tracked[w] = n
		}
	}
	cp.Entries = append(snap.Entries[:0:0], snap.Entries...)
	return &cp
}
