package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/election-manager/internal/application"
	"github.com/example/election-manager/internal/persistence/sqlite"
	"github.com/example/election-manager/internal/persistence/sqlite/migration"
	"github.com/example/election-manager/internal/wiring"
)

// ElectionHarness is the full service graph over a migrated temporary SQLite
// database.
type ElectionHarness struct {
	Storage  *sqlite.Storage
	Services *wiring.Services
	Clock    *Clock
	IDs      *IDGenerator
	Tokens   *application.BallotTokenSigner
	Registry *prometheus.Registry
}

// NewElectionHarness opens and migrates a temporary database and builds the
// services over it. The storage is closed when the test finishes.
func NewElectionHarness(tb testing.TB, opts ...HarnessOption) *ElectionHarness {
	tb.Helper()

	settings := defaultHarnessSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	config := migration.TempFileTestSQLiteConfig(filepath.Join(tb.TempDir(), "election.db"))
	storage, err := sqlite.Open(config, settings.logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	tokens, err := application.NewBallotTokenSigner([]byte(TokenSecret), settings.tokenTTL, settings.clock.NowFunc())
	if err != nil {
		tb.Fatalf("failed to build token signer: %v", err)
	}

	registry := prometheus.NewRegistry()
	services, err := wiring.NewServices(storage, wiring.Options{
		IDGenerator: settings.ids.NextFunc(),
		Now:         settings.clock.NowFunc(),
		Logger:      settings.logger,
		Metrics:     application.NewMetrics(registry),
		Tokens:      tokens,
	})
	if err != nil {
		tb.Fatalf("failed to build services: %v", err)
	}

	return &ElectionHarness{
		Storage:  storage,
		Services: services,
		Clock:    settings.clock,
		IDs:      settings.ids,
		Tokens:   tokens,
		Registry: registry,
	}
}
