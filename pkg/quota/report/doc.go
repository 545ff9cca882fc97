// Package report archives diagnostic snapshots of quota usage.
//
// A Snapshot captures the lowest-budget day-window entries of a quota
// engine together with the number of tracked identities per window. Snapshots
// are written to a Store on a cron schedule and pruned after a retention
// period:
//
//	store, err := report.NewSQLiteStore(&report.SQLiteConfig{Path: "data/quota.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	scheduler := report.NewScheduler(engine, store, &report.Config{
//	    SnapshotSchedule: "*/15 * * * *",
//	    PruneSchedule:    "0 3 * * *",
//	    Retention:        7 * 24 * time.Hour,
//	    TopN:             20,
//	})
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
//	defer scheduler.Stop()
//
// # Backends
//
// MemoryStore keeps snapshots in process and is intended for tests and
// dry runs. SQLiteStore persists them with either the pure-Go "sqlite" driver
// (modernc.org/sqlite, the default) or the cgo "sqlite3" driver
// (github.com/mattn/go-sqlite3).
//
// The archive is write-only from the engine's point of view: quota state is
// never restored from a snapshot.
package report
