package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict reports a gap in the sequence or an applied version
	// with no matching file.
	ErrVersionConflict  = errors.New("migration version conflict")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch reports an applied migration whose file changed since.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// MigrationError locates a failure at one migration file and step.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	location := e.FilePath
	if e.Version != "" {
		location = e.Version + " " + location
	}
	return fmt.Sprintf("schema migration %s: %s: %v", location, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}
