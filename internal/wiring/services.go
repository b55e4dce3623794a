// Package wiring binds the SQLite repositories to the application services.
package wiring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/election-manager/internal/application"
	"github.com/example/election-manager/internal/persistence/sqlite"
)

// Options carries the collaborators shared by every service.
type Options struct {
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Metrics     *application.Metrics
	Tokens      *application.BallotTokenSigner
}

// Services is the full application service graph.
type Services struct {
	Lifecycle   *application.LifecycleService
	Tally       *application.TallyService
	Voting      *application.VotingService
	Nominations *application.NominationService
	Results     *application.ResultsService
	Catalog     *application.CatalogService
}

// NewServices builds the service graph over storage.
func NewServices(storage *sqlite.Storage, opts Options) (*Services, error) {
	if storage == nil {
		return nil, errors.New("wiring: storage is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("wiring: ballot token signer is required")
	}
	if opts.IDGenerator == nil {
		return nil, errors.New("wiring: id generator is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pool := storage.Pool()
	sessions := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))
	positions := newPositionRepositoryAdapter(sqlite.NewPositionRepository(pool))
	nominations := newNominationRepositoryAdapter(sqlite.NewNominationRepository(pool))
	ballots := newBallotRepositoryAdapter(sqlite.NewBallotRepository(pool))
	results := newResultRepositoryAdapter(sqlite.NewResultRepository(pool))
	labels := newFormLabelRepositoryAdapter(sqlite.NewFormLabelRepository(pool))

	lifecycle := application.NewLifecycleService(application.LifecycleServiceConfig{
		Sessions:    sessions,
		IDGenerator: opts.IDGenerator,
		Now:         opts.Now,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	})
	tally := application.NewTallyService(lifecycle, positions, ballots, opts.Logger)

	return &Services{
		Lifecycle: lifecycle,
		Tally:     tally,
		Voting: application.NewVotingService(application.VotingServiceConfig{
			Lifecycle:   lifecycle,
			Tally:       tally,
			Positions:   positions,
			Candidates:  nominations,
			Ballots:     ballots,
			Tokens:      opts.Tokens,
			IDGenerator: opts.IDGenerator,
			Now:         opts.Now,
			Logger:      opts.Logger,
			Metrics:     opts.Metrics,
		}),
		Nominations: application.NewNominationService(application.NominationServiceConfig{
			Lifecycle:   lifecycle,
			Nominations: nominations,
			Positions:   positions,
			IDGenerator: opts.IDGenerator,
			Now:         opts.Now,
			Logger:      opts.Logger,
			Metrics:     opts.Metrics,
		}),
		Results: application.NewResultsService(lifecycle, results, opts.Now, opts.Logger),
		Catalog: application.NewCatalogService(application.CatalogServiceConfig{
			Positions:   positions,
			Labels:      labels,
			IDGenerator: opts.IDGenerator,
			Now:         opts.Now,
			Logger:      opts.Logger,
		}),
	}, nil
}

// HealthCheck pings the database.
func HealthCheck(storage *sqlite.Storage) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return storage.Pool().Ping(ctx)
	}
}
