package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// VoteCounter aggregates votes for a position.
type VoteCounter interface {
	CountVotes(ctx context.Context, sessionID, positionID string) ([]CandidateCount, error)
}

// PositionLookup resolves a position by id.
type PositionLookup interface {
	GetPosition(ctx context.Context, id string) (Position, error)
}

// TallyService counts votes. Every call reads the store; nothing is cached.
type TallyService struct {
	lifecycle *LifecycleService
	positions PositionLookup
	votes     VoteCounter
	logger    *slog.Logger
}

// NewTallyService constructs a tally service.
func NewTallyService(lifecycle *LifecycleService, positions PositionLookup, votes VoteCounter, logger *slog.Logger) *TallyService {
	return &TallyService{
		lifecycle: lifecycle,
		positions: positions,
		votes:     votes,
		logger:    defaultLogger(logger),
	}
}

// CountVotes maps candidate id to vote count for a session and position.
// Candidates without votes are absent.
func (s *TallyService) CountVotes(ctx context.Context, sessionID, positionID string) (map[string]int, error) {
	if s == nil {
		return nil, fmt.Errorf("TallyService is nil")
	}
	counts, err := s.votes.CountVotes(ctx, sessionID, positionID)
	if err != nil {
		return nil, mapRepoError(err, nil)
	}
	tally := make(map[string]int, len(counts))
	for _, c := range counts {
		tally[c.CandidateID] = c.Count
	}
	return tally, nil
}

// VoteCounts is the public live count for a position. It is empty unless a
// session is open for voting.
func (s *TallyService) VoteCounts(ctx context.Context, positionID string) ([]CandidateCount, error) {
	if s == nil {
		return nil, fmt.Errorf("TallyService is nil")
	}

	session, err := s.lifecycle.CurrentSession(ctx, PhaseVotingOpen)
	if errors.Is(err, ErrPhaseViolation) {
		return []CandidateCount{}, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.positions.GetPosition(ctx, positionID); err != nil {
		return nil, mapRepoError(err, nil)
	}

	counts, err := s.votes.CountVotes(ctx, session.ID, positionID)
	if err != nil {
		serviceLogger(ctx, s.logger, "TallyService", "VoteCounts", "position_id", positionID).
			ErrorContext(ctx, "failed to count votes", "error", err)
		return nil, mapRepoError(err, nil)
	}
	if counts == nil {
		counts = []CandidateCount{}
	}
	return counts, nil
}
