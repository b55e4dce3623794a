package migration

import (
	"context"
	"io/fs"
	"time"
)

// Migration is one numbered schema file.
type Migration struct {
	Version     string // zero-padded, e.g. "001"
	Description string
	SQL         string
	FilePath    string // Path inside the migration fs.FS
	Checksum    string
}

// MigrationManager applies pending migrations in version order.
type MigrationManager interface {
	RunMigrations(ctx context.Context) error
	GetPendingMigrations(ctx context.Context) ([]Migration, error)
	GetMigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// FileScanner loads migrations from the root of an fs.FS.
type FileScanner interface {
	ScanMigrations(fsys fs.FS) ([]Migration, error)
	ValidateFileName(filename string) error
}

// Executor runs migrations and tracks them in the version table.
type Executor interface {
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

type MigrationStatus struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration is a row of the version table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
