package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migration.db"))).GetConnection()
	if err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFileScanner_ScanMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_add_votes.sql":   {Data: []byte("CREATE TABLE votes (id TEXT);")},
		"001_init.sql":        {Data: []byte("-- Description: initial schema\nCREATE TABLE sessions (id TEXT);")},
		"README.md":           {Data: []byte("not a migration")},
		"nested/003_skip.sql": {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewFileScanner().ScanMigrations(files)
	if err != nil {
		t.Fatalf("ScanMigrations failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "001" || migrations[1].Version != "002" {
		t.Errorf("unexpected order: %s, %s", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Description != "initial schema" {
		t.Errorf("expected description from comment, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "add votes" {
		t.Errorf("expected description from filename, got %q", migrations[1].Description)
	}
	if migrations[0].Checksum == "" {
		t.Error("expected checksum to be computed")
	}
}

func TestFileScanner_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  error
	}{
		{
			name:  "bad filename",
			files: fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}},
			want:  ErrInvalidMigrationFile,
		},
		{
			name:  "empty file",
			files: fstest.MapFS{"001_init.sql": {Data: []byte("  \n")}},
			want:  ErrInvalidMigrationFile,
		},
		{
			name: "same version twice",
			files: fstest.MapFS{
				"001_a.sql": {Data: []byte("SELECT 1;")},
				"001_b.sql": {Data: []byte("SELECT 1;")},
			},
			want: ErrDuplicateVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileScanner().ScanMigrations(tt.files)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseSQL(t *testing.T) {
	statements := parseSQL(`
		-- header comment
		CREATE TABLE a (id TEXT);

		-- second
		CREATE INDEX idx_a ON a (id);
		;
	`)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if !strings.HasPrefix(statements[1], "CREATE INDEX") {
		t.Errorf("unexpected statement %q", statements[1])
	}
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	files := fstest.MapFS{
		"001_init.sql": {Data: []byte("CREATE TABLE sessions (id TEXT PRIMARY KEY);")},
		"002_more.sql": {Data: []byte("CREATE TABLE positions (id TEXT PRIMARY KEY);\nCREATE TABLE votes (id TEXT PRIMARY KEY);")},
	}

	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, nil)
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 || len(status.AppliedMigrations) != 2 {
		t.Errorf("unexpected status: %+v", status)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO votes (id) VALUES ('v1')"); err != nil {
		t.Errorf("expected votes table to exist: %v", err)
	}
}

func TestMigrationManager_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	files := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT);\nCREATE TABLE broken (;")},
	}

	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, nil)
	err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok'").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Error("expected partial migration to be rolled back")
	}
}

func TestMigrationManager_DetectsSequenceProblems(t *testing.T) {
	t.Run("gap", func(t *testing.T) {
		db := openTestDB(t)
		files := fstest.MapFS{
			"001_a.sql": {Data: []byte("SELECT 1;")},
			"003_c.sql": {Data: []byte("SELECT 1;")},
		}
		manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, nil)
		if err := manager.RunMigrations(context.Background()); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("edited after apply", func(t *testing.T) {
		db := openTestDB(t)
		ctx := context.Background()
		files := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if err := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, nil).RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}

		files["001_a.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE a (id TEXT, extra TEXT);")}
		err := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, nil).RunMigrations(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}

func TestSQLiteConfig_DSN(t *testing.T) {
	dsn := DefaultSQLiteConfig("data/election.db").DSN()
	for _, want := range []string{"file:data/election.db?", "foreign_keys%281%29", "journal_mode%28wal%29", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected DSN %q to contain %q", dsn, want)
		}
	}
}

func TestConnectionManager_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SQLiteConfig) {}},
		{name: "empty path", mutate: func(c *SQLiteConfig) { c.Path = "" }, wantErr: true},
		{name: "bad journal", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSQLiteConfig("election.db")
			tt.mutate(&config)
			err := NewConnectionManager(config).ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
