package persistence

import (
	"context"
	"time"
)

// SessionRepository stores sessions and guards their phase transitions.
type SessionRepository interface {
	// CreateSession inserts the session and claims the active election slot when activate is set.
	CreateSession(ctx context.Context, session Session, activate bool) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	// LatestSession returns the most recently created session in one of the phases, or any session when none are given.
	LatestSession(ctx context.Context, phases ...string) (Session, error)
	GetActiveElection(ctx context.Context) (ActiveElection, error)
	TransitionSession(ctx context.Context, transition SessionTransition) (Session, error)
}

// PositionRepository stores the offices being elected.
type PositionRepository interface {
	CreatePosition(ctx context.Context, position Position) error
	GetPosition(ctx context.Context, id string) (Position, error)
	ListPositions(ctx context.Context) ([]Position, error)
	// ListBallotPositions returns positions with at least one approved candidate in the session.
	ListBallotPositions(ctx context.Context, sessionID string) ([]Position, error)
	DeletePosition(ctx context.Context, id string) error
}

// NominationRepository stores candidacy submissions.
type NominationRepository interface {
	CreateNomination(ctx context.Context, nomination Nomination) error
	GetNomination(ctx context.Context, id string) (Nomination, error)
	ListNominations(ctx context.Context, sessionID string) ([]Nomination, error)
	ListCandidates(ctx context.Context, sessionID, positionID string) ([]Nomination, error)
	SetApproval(ctx context.Context, ids []string, approved bool, at time.Time) (int, error)
}

// BallotRepository stores voters and votes.
type BallotRepository interface {
	GetVoterByEmail(ctx context.Context, sessionID, email string) (Voter, error)
	HasVoted(ctx context.Context, sessionID, voterID, positionID string) (bool, error)
	CountVotes(ctx context.Context, sessionID, positionID string) ([]VoteCount, error)
	// RecordVote upserts the voter and inserts the vote in one transaction.
	RecordVote(ctx context.Context, record VoteRecord) (VoteRecord, error)
}

// ResultRepository reads live and frozen results.
type ResultRepository interface {
	ResultRows(ctx context.Context, sessionID string) ([]ResultRow, error)
	GetResultSnapshot(ctx context.Context, sessionID string) (ResultSnapshot, error)
}

// FormLabelRepository stores intake form label overrides.
type FormLabelRepository interface {
	ListFormLabels(ctx context.Context, formType string) ([]FormLabel, error)
	UpsertFormLabel(ctx context.Context, label FormLabel) error
}
