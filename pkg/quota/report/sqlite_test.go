package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var snapshotTime = time.Date(2025, 6, 1, 8, 30, 0, 123456789, time.UTC)

// newTestSQLiteStore opens a store in a temporary directory. The cgo driver
// is skipped on builds without cgo.
func newTestSQLiteStore(t *testing.T, driver string) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(&SQLiteConfig{
		Path:    filepath.Join(t.TempDir(), "reports.db"),
		Driver:  driver,
		WALMode: true,
	})
	if err != nil {
		if driver == DriverMattn && strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("go-sqlite3 requires cgo")
		}
		t.Fatalf("NewSQLiteStore(%s) failed: %v", driver, err)
	}
	return store
}

func TestNewSQLiteStore_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config *SQLiteConfig
	}{
		{"empty path", &SQLiteConfig{Driver: DriverModernc}},
		{"unknown driver", &SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSQLiteStore(tt.config); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestNewSQLiteStore_DefaultDriver(t *testing.T) {
	config := &SQLiteConfig{Path: filepath.Join(t.TempDir(), "reports.db")}
	store, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if store.config.Driver != DriverModernc {
		t.Errorf("Expected default driver %q, got %q", DriverModernc, store.config.Driver)
	}
	if config.Driver != "" {
		t.Error("Expected caller config to be left unmodified")
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")

	first, err := NewSQLiteStore(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	snap := snapshotAt(snapshotTime)
	if err := first.Save(t.Context(), snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close()

	latest, err := second.Latest(t.Context())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.ID != snap.ID {
		t.Errorf("Expected snapshot %s after reopen, got %s", snap.ID, latest.ID)
	}
	if !latest.TakenAt.Equal(snapshotTime) {
		t.Errorf("Expected TakenAt %v, got %v", snapshotTime, latest.TakenAt)
	}
}
