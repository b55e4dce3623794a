package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/election-manager/internal/persistence/sqlite"
	"github.com/example/election-manager/internal/persistence/sqlite/migration"
)

func migrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, opts, func(storage *sqlite.Storage, logger *slog.Logger) error {
				if err := storage.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("failed to apply migrations: %w", err)
				}
				status, err := storage.MigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, opts, func(storage *sqlite.Storage, logger *slog.Logger) error {
				status, err := storage.MigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	})
	return cmd
}

func withStorage(cmd *cobra.Command, opts *rootOptions, fn func(*sqlite.Storage, *slog.Logger) error) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := opts.logger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer storage.Close()
	return fn(storage, logger)
}

func printStatus(w io.Writer, status *migration.MigrationStatus) {
	current := status.CurrentVersion
	if current == "" {
		current = "none"
	}
	fmt.Fprintf(w, "current version: %s\n", current)
	fmt.Fprintf(w, "applied: %d\n", len(status.AppliedMigrations))
	fmt.Fprintf(w, "pending: %d\n", status.PendingCount)
	for _, m := range status.PendingMigrations {
		fmt.Fprintf(w, "  %s %s\n", m.Version, m.Description)
	}
}
