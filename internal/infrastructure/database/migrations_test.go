package database

import (
	"context"
	"embed"
	"testing"
	"time"

	"github.com/nerrad567/moku-core/internal/infrastructure/config"
)

// testMigrationsDir is the directory containing test migration files.
const testMigrationsDir = "testdata"

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useTestMigrations points the package at the testdata migrations for the
// duration of the test.
func useTestMigrations(t *testing.T) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = testMigrationsFS
	MigrationsDir = testMigrationsDir
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	useTestMigrations(t)

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var indexName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_probe_name'",
	).Scan(&indexName)
	if err != nil {
		t.Fatalf("index idx_probe_name not created: %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}
	if len(applied) == 2 && applied[0].Version != "20260101_000000" {
		t.Errorf("first applied = %q, want 20260101_000000", applied[0].Version)
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateInMemory verifies migrations on the in-memory database tests use.
func TestMigrateInMemory(t *testing.T) {
	useTestMigrations(t)

	db, err := Open(configForMemory())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO probe (name) VALUES ('x')"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
}

// TestMigrateNoMigrations verifies behaviour with no embedded migrations.
func TestMigrateNoMigrations(t *testing.T) {
	origFS := MigrationsFS
	defer func() { MigrationsFS = origFS }()
	MigrationsFS = embed.FS{}

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 0/0", len(applied), len(pending))
	}
}

// TestMigrationStatusPending verifies pending migrations before Migrate.
func TestMigrationStatusPending(t *testing.T) {
	useTestMigrations(t)

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	applied, pending, err := db.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied, got %d", len(applied))
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].Name != "probe" || pending[1].Name != "probe_index" {
		t.Errorf("pending names = %q, %q", pending[0].Name, pending[1].Name)
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantName    string
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20261019_120000_deployments.up.sql",
			wantVersion: "20261019_120000",
			wantName:    "deployments",
			wantOk:      true,
		},
		{
			name:        "underscored name",
			filename:    "20261019_120100_audit_logs.up.sql",
			wantVersion: "20261019_120100",
			wantName:    "audit_logs",
			wantOk:      true,
		},
		{
			name:     "down migration ignored",
			filename: "20261019_120000_deployments.down.sql",
			wantOk:   false,
		},
		{
			name:     "not sql file",
			filename: "readme.txt",
			wantOk:   false,
		},
		{
			name:     "invalid format",
			filename: "invalid.up.sql",
			wantOk:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %v, want %v", version, tt.wantVersion)
			}
			if name != tt.wantName {
				t.Errorf("name = %v, want %v", name, tt.wantName)
			}
		})
	}
}

func configForMemory() config.DatabaseConfig {
	return config.DatabaseConfig{Path: MemoryPath, BusyTimeout: 5}
}
