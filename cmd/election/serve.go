package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/example/election-manager/internal/application"
	"github.com/example/election-manager/internal/config"
	httptransport "github.com/example/election-manager/internal/http"
	"github.com/example/election-manager/internal/persistence/sqlite"
	"github.com/example/election-manager/internal/persistence/sqlite/migration"
	"github.com/example/election-manager/internal/wiring"
)

func serveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the election HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			logger, err := opts.logger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), cfg, logger)
		},
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return storage, nil
}

// buildHandler assembles the routed API over storage.
func buildHandler(cfg config.Config, storage *sqlite.Storage, logger *slog.Logger) (http.Handler, error) {
	auth, err := application.NewAdminAuthenticator(cfg.AdminKeyHash)
	if err != nil {
		return nil, fmt.Errorf("invalid admin key hash: %w", err)
	}
	tokens, err := application.NewBallotTokenSigner([]byte(cfg.BallotTokenSecret), cfg.BallotTokenTTL, time.Now)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := wiring.NewServices(storage, wiring.Options{
		IDGenerator: uuid.NewString,
		Now:         time.Now,
		Logger:      logger,
		Metrics:     application.NewMetrics(registry),
		Tokens:      tokens,
	})
	if err != nil {
		return nil, err
	}

	return httptransport.NewRouter(httptransport.RouterConfig{
		Voting:      httptransport.NewVotingHandler(services.Voting, services.Tally, logger),
		Nominations: httptransport.NewNominationHandler(services.Nominations, logger),
		Results:     httptransport.NewResultsHandler(services.Results, logger),
		Sessions:    httptransport.NewSessionHandler(services.Lifecycle, logger),
		Catalog:     httptransport.NewCatalogHandler(services.Catalog, logger),
		Admin:       httptransport.RequireAdmin(auth, logger),
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Health:      wiring.HealthCheck(storage),
		Logger:      logger,
		Middleware:  []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	}), nil
}

func serveRun(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	handler, err := buildHandler(cfg, storage, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("election API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	<-shutdownDone
	logger.Info("election API stopped")
	return nil
}
