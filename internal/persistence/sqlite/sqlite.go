package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/election-manager/internal/persistence"
	"github.com/example/election-manager/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage owns the SQLite connection pool and schema.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by config.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{pool: pool, logger: logger}, nil
}

// Pool exposes the connection pool to the repository constructors.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager, err := s.migrationManager()
	if err != nil {
		return err
	}
	return manager.RunMigrations(ctx)
}

// MigrationStatus reports applied and pending schema versions.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.MigrationStatus, error) {
	manager, err := s.migrationManager()
	if err != nil {
		return nil, err
	}
	return manager.GetMigrationStatus(ctx)
}

func (s *Storage) migrationManager() (migration.MigrationManager, error) {
	files, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		files,
		s.logger,
	), nil
}

var (
	_ persistence.SessionRepository    = (*SessionRepository)(nil)
	_ persistence.PositionRepository   = (*PositionRepository)(nil)
	_ persistence.NominationRepository = (*NominationRepository)(nil)
	_ persistence.BallotRepository     = (*BallotRepository)(nil)
	_ persistence.ResultRepository     = (*ResultRepository)(nil)
	_ persistence.FormLabelRepository  = (*FormLabelRepository)(nil)
)
