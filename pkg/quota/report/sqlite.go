package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures the SQLite snapshot store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/quota-reports.db",
		Driver:      DriverModernc,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger

	saveStmt    *sql.Stmt
	cleanupStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) a snapshot database.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	cfg := *config
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q (expected %q or %q)", cfg.Driver, DriverModernc, DriverMattn)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "quota.report.sqlite")

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, newStorageError(cfg.Driver, "open", err)
	}

	// SQLite only supports a single writer; one long-lived connection also
	// keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		config: &cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite report store initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
	)

	return s, nil
}

// initialize applies pragmas, creates the schema and prepares statements.
func (s *SQLiteStore) initialize() error {
	backend := s.config.Driver

	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newStorageError(backend, "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return newStorageError(backend, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError(backend, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError(backend, "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return newStorageError(backend, "get_schema_version", err)
	}
	if !version.Valid || version.Int64 != SchemaVersion {
		return newStorageError(backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	var err error
	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO quota_snapshots (id, taken_at, tracked, entries)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return newStorageError(backend, "prepare_save", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`DELETE FROM quota_snapshots WHERE taken_at < ?`)
	if err != nil {
		return newStorageError(backend, "prepare_cleanup", err)
	}

	return nil
}

// Save inserts a snapshot.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tracked, err := json.Marshal(snap.Tracked)
	if err != nil {
		return newStorageError(s.config.Driver, "save", err)
	}
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return newStorageError(s.config.Driver, "save", err)
	}

	if _, err := s.saveStmt.ExecContext(ctx, snap.ID, snap.TakenAt.UnixNano(), string(tracked), string(entries)); err != nil {
		return newStorageError(s.config.Driver, "save", err)
	}
	return nil
}

// Latest returns the most recent snapshot.
func (s *SQLiteStore) Latest(ctx context.Context) (*Snapshot, error) {
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
func (s *SQLiteStore) List(ctx context.Context, since time.Time, limit int) ([]*Snapshot, error) {
	query := `
		SELECT id, taken_at, tracked, entries
		FROM quota_snapshots
		WHERE taken_at >= ?
		ORDER BY taken_at DESC, id ASC
	`
	args := []any{unixNano(since)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError(s.config.Driver, "list", err)
	}
	defer rows.Close()

	snapshots := []*Snapshot{}
	for rows.Next() {
		var (
			snap             Snapshot
			takenAt          int64
			tracked, entries string
		)
		if err := rows.Scan(&snap.ID, &takenAt, &tracked, &entries); err != nil {
			return nil, newStorageError(s.config.Driver, "scan", err)
		}
		snap.TakenAt = time.Unix(0, takenAt).UTC()
		if err := json.Unmarshal([]byte(tracked), &snap.Tracked); err != nil {
			return nil, newStorageError(s.config.Driver, "decode_tracked", err)
		}
		if err := json.Unmarshal([]byte(entries), &snap.Entries); err != nil {
			return nil, newStorageError(s.config.Driver, "decode_entries", err)
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.config.Driver, "list", err)
	}

	return snapshots, nil
}

// Cleanup deletes snapshots taken before olderThan.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.cleanupStmt.ExecContext(ctx, unixNano(olderThan))
	if err != nil {
		return 0, newStorageError(s.config.Driver, "cleanup", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, newStorageError(s.config.Driver, "cleanup", err)
	}

	if count > 0 {
		s.logger.Debug("pruned report snapshots", "deleted_count", count)
	}
	return int(count), nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return newStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close releases the prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	if s.saveStmt != nil {
		s.saveStmt.Close()
	}
	if s.cleanupStmt != nil {
		s.cleanupStmt.Close()
	}

	if err := s.db.Close(); err != nil {
		return newStorageError(s.config.Driver, "close", err)
	}
	return nil
}

// unixNano converts t for the taken_at column. The zero time sorts before
// every stored snapshot.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return math.MinInt64
	}
	return t.UnixNano()
}
