package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned for CHECK and FOREIGN KEY failures.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrPhaseMismatch is returned when a session is not in the phase a write expects.
	ErrPhaseMismatch = errors.New("persistence: session phase mismatch")
	// ErrActiveElectionTaken is returned when another session already holds the active election slot.
	ErrActiveElectionTaken = errors.New("persistence: active election held by another session")
	// ErrCandidateIneligible is returned when a vote names a nominee that is not an approved candidate for the position.
	ErrCandidateIneligible = errors.New("persistence: candidate not eligible")
)
