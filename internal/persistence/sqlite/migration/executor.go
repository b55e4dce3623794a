package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const versionTable = "schema_migrations"

// SQLiteExecutor applies migrations and keeps the schema_migrations table.
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// ExecuteMigration runs every statement of m in one transaction.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, m Migration) (err error) {
	statements := parseSQL(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found in migration", ErrInvalidMigrationFile))
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewMigrationError(m.Version, m.FilePath, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return NewMigrationError(m.Version, m.FilePath, fmt.Sprintf("statement %d", i+1), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return NewMigrationError(m.Version, m.FilePath, "commit", err)
	}
	return nil
}

func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+versionTable+` (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)`)
	if err != nil {
		return NewMigrationError("", versionTable, "create table", err)
	}
	return nil
}

func (e *SQLiteExecutor) RecordMigration(ctx context.Context, m Migration, took time.Duration) error {
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO `+versionTable+` (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		m.Version,
		e.now().UTC().Format(time.RFC3339),
		m.Checksum,
		took.Milliseconds(),
	)
	if err != nil {
		return NewMigrationError(m.Version, versionTable, "insert", err)
	}
	return nil
}

// GetAppliedVersions lists the version table in version order.
func (e *SQLiteExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM `+versionTable+`
		ORDER BY version`)
	if err != nil {
		return nil, NewMigrationError("", versionTable, "query", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row       AppliedMigration
			appliedAt string
			tookMs    int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &tookMs, &row.Checksum); err != nil {
			return nil, NewMigrationError("", versionTable, "scan", err)
		}
		if row.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, NewMigrationError(row.Version, versionTable, "parse applied_at", err)
		}
		row.ExecutionTime = time.Duration(tookMs) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewMigrationError("", versionTable, "iterate", err)
	}
	return applied, nil
}

// parseSQL splits content on semicolons and drops "--" comment lines.
// Semicolons inside trigger bodies or string literals are not supported.
func parseSQL(content string) []string {
	var statements []string
	for _, chunk := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
