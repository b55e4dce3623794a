package migration

import (
	"cmp"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type fileScannerImpl struct {
	migrationFilePattern *regexp.Regexp
}

// NewFileScanner accepts files named {version}_{description}.sql.
func NewFileScanner() FileScanner {
	return &fileScannerImpl{
		migrationFilePattern: regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`),
	}
}

// versionNumber is only called on versions that passed ValidateFileName.
func versionNumber(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

// ScanMigrations reads every .sql file at the root of fsys, sorted by numeric version
func (s *fileScannerImpl) ScanMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, NewMigrationError("", ".", "read directory", err)
	}

	var migrations []Migration
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		if err := s.ValidateFileName(entry.Name()); err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}

		migration, err := s.parseMigrationFile(fsys, entry.Name())
		if err != nil {
			return nil, err
		}

		if prev, dup := seen[migration.Version]; dup {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: %s and %s share version %s",
					ErrDuplicateVersion, prev, entry.Name(), migration.Version))
		}
		seen[migration.Version] = entry.Name()

		migrations = append(migrations, migration)
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return cmp.Compare(versionNumber(a.Version), versionNumber(b.Version))
	})

	return migrations, nil
}

func (s *fileScannerImpl) ValidateFileName(filename string) error {
	matches := s.migrationFilePattern.FindStringSubmatch(filename)
	if len(matches) != 3 {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number",
			ErrInvalidMigrationFile, matches[1], filename)
	}
	return nil
}

func (s *fileScannerImpl) parseMigrationFile(fsys fs.FS, name string) (Migration, error) {
	matches := s.migrationFilePattern.FindStringSubmatch(name)
	version := matches[1]

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Migration{}, NewMigrationError(version, name, "read file", err)
	}

	sqlContent := string(content)
	if strings.TrimSpace(sqlContent) == "" {
		return Migration{}, NewMigrationError(version, name, "validate content",
			fmt.Errorf("%w: migration file is empty", ErrInvalidMigrationFile))
	}

	description := descriptionFromContent(sqlContent)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	sum := sha256.Sum256(content)
	return Migration{
		Version:     version,
		Description: description,
		SQL:         sqlContent,
		FilePath:    name,
		Checksum:    fmt.Sprintf("%x", sum),
	}, nil
}

// descriptionFromContent returns the value of a leading "-- Description:" comment.
func descriptionFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return ""
}
