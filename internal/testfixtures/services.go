package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/election-manager/internal/logging"
)

// TokenSecret is the ballot token key used by harnesses.
const TokenSecret = "fixture-ballot-token-secret-0123"

// HarnessOption configures an ElectionHarness.
type HarnessOption func(*harnessSettings)

type harnessSettings struct {
	clock    *Clock
	ids      *IDGenerator
	tokenTTL time.Duration
	logger   *slog.Logger
}

func defaultHarnessSettings() harnessSettings {
	return harnessSettings{
		clock:    NewSteppingClock(time.Time{}, time.Second),
		ids:      NewIDGenerator("id"),
		tokenTTL: time.Hour,
		logger:   logging.New(io.Discard, slog.LevelDebug),
	}
}

// WithClock overrides the harness clock.
func WithClock(clock *Clock) HarnessOption {
	return func(s *harnessSettings) {
		s.clock = clock
	}
}

// WithIDGenerator overrides the harness identifier source.
func WithIDGenerator(generator *IDGenerator) HarnessOption {
	return func(s *harnessSettings) {
		s.ids = generator
	}
}

// WithTokenTTL overrides the ballot token lifetime.
func WithTokenTTL(ttl time.Duration) HarnessOption {
	return func(s *harnessSettings) {
		s.tokenTTL = ttl
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) HarnessOption {
	return func(s *harnessSettings) {
		s.logger = logger
	}
}
