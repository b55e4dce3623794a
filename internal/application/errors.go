package application

import (
	"errors"
	"fmt"

	"github.com/example/election-manager/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the caller lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniquely named resource is created twice.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrDuplicateSubmission is returned when a nomination or vote was already recorded.
	ErrDuplicateSubmission = errors.New("application: duplicate submission")
	// ErrPhaseViolation is returned when the session is not in the phase an operation requires.
	ErrPhaseViolation = errors.New("application: session phase does not allow this operation")
	// ErrInvalidTransition is returned for phase changes outside the lifecycle graph.
	ErrInvalidTransition = errors.New("application: invalid phase transition")
	// ErrActiveElectionConflict is returned when another session already accepts nominations or votes.
	ErrActiveElectionConflict = errors.New("application: another session is active")
	// ErrInvalidBallotToken is returned for forged, expired, or mismatched ballot tokens.
	ErrInvalidBallotToken = errors.New("application: invalid ballot token")
)

// ValidationError maps request field names to messages.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// mapRepoError translates persistence sentinels. duplicate is the error a
// unique constraint violation stands for in the caller's context and defaults
// to ErrAlreadyExists.
func mapRepoError(err error, duplicate error) error {
	if duplicate == nil {
		duplicate = ErrAlreadyExists
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return duplicate
	case errors.Is(err, persistence.ErrPhaseMismatch):
		return fmt.Errorf("%w: %v", ErrPhaseViolation, err)
	case errors.Is(err, persistence.ErrActiveElectionTaken):
		return ErrActiveElectionConflict
	case errors.Is(err, persistence.ErrCandidateIneligible):
		return fieldError("candidate_id", "candidate is not eligible for this position")
	}
	return err
}
