package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Config controls scheduled snapshots and pruning.
type Config struct {
	// SnapshotSchedule is a standard five-field cron expression. Empty
	// disables scheduled snapshots.
	SnapshotSchedule string

	// PruneSchedule is a standard five-field cron expression. Empty
	// disables scheduled pruning.
	PruneSchedule string

	// Retention is how long snapshots are kept. Zero keeps them forever.
	Retention time.Duration

	// TopN is the number of summary entries per snapshot.
	TopN int
}

// Scheduler takes snapshots and prunes the archive on cron schedules.
type Scheduler struct {
	source Source
	store  Store
	config *Config
	cron   *cron.Cron
	now    func() time.Time

	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler for src writing to store.
func NewScheduler(src Source, store Store, config *Config) *Scheduler {
	if config == nil {
		config = &Config{}
	}
	return &Scheduler{
		source: src,
		store:  store,
		config: config,
		cron:   cron.New(),
		now:    time.Now,
		logger: slog.Default().With("component", "quota.report.scheduler"),
	}
}

// Start registers the configured jobs and starts the cron runner. It does
// nothing when both schedules are empty. The scheduler stops when ctx is
// cancelled.
//
// Common cron expressions:
//   - "*/15 * * * *" - Every 15 minutes
//   - "0 3 * * *"    - Daily at 3 AM
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("report scheduler already running")
	}
	if s.config.SnapshotSchedule == "" && s.config.PruneSchedule == "" {
		s.logger.Info("report schedules not configured, skipping scheduler")
		return nil
	}

	if s.config.SnapshotSchedule != "" {
		if _, err := cron.ParseStandard(s.config.SnapshotSchedule); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", s.config.SnapshotSchedule, err)
		}
		if _, err := s.cron.AddFunc(s.config.SnapshotSchedule, func() {
			if _, err := s.RunSnapshot(ctx); err != nil {
				s.logger.Error("scheduled snapshot failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule snapshots: %w", err)
		}
	}

	if s.config.PruneSchedule != "" {
		if _, err := cron.ParseStandard(s.config.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", s.config.PruneSchedule, err)
		}
		if _, err := s.cron.AddFunc(s.config.PruneSchedule, func() {
			if _, err := s.RunPrune(ctx); err != nil {
				s.logger.Error("scheduled pruning failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule pruning: %w", err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("report scheduler started",
		"snapshot_schedule", s.config.SnapshotSchedule,
		"prune_schedule", s.config.PruneSchedule,
		"retention", s.config.Retention,
		"top_n", s.config.TopN,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunSnapshot takes one snapshot and saves it.
func (s *Scheduler) RunSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := Take(s.source, s.config.TopN, s.now())
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.Debug("report snapshot saved",
		"snapshot_id", snap.ID,
		"entries", len(snap.Entries),
	)
	return snap, nil
}

// RunPrune deletes snapshots older than the retention period and returns
// the number removed. It is a no-op when Retention is zero.
func (s *Scheduler) RunPrune(ctx context.Context) (int, error) {
	if s.config.Retention <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.config.Retention)
	deleted, err := s.store.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("scheduled pruning completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled pruning completed, no snapshots deleted")
	}
	return deleted, nil
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("report scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the earliest upcoming job time, or nil if no job is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return &next
}
