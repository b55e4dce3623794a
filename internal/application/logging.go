package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/election-manager/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// serviceLogger prefers the request-scoped logger carried by ctx.
func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	logger = logger.With("service", service)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrDuplicateSubmission, "duplicate_submission"},
	{ErrPhaseViolation, "phase_violation"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrActiveElectionConflict, "active_election_conflict"},
	{ErrInvalidBallotToken, "invalid_ballot_token"},
}

// ErrorKind is the error_kind log label for err.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
