// Package migration applies versioned SQL files to the election SQLite database.
//
// Migration files are read from an fs.FS (normally embedded into the binary) and
// follow the naming convention {version}_{description}.sql, for example
// "001_election_schema.sql". Applied versions and their checksums are tracked in
// the schema_migrations table, so running the manager twice is a no-op.
//
// Example usage:
//
//	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), files, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
