package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ResultRepository reads live result rows and publication snapshots.
type ResultRepository interface {
	ResultRows(ctx context.Context, sessionID string) ([]ResultRow, error)
	GetResultSnapshot(ctx context.Context, sessionID string) (ResultSnapshot, error)
}

// ResultsService computes and publishes session results.
type ResultsService struct {
	lifecycle *LifecycleService
	results   ResultRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewResultsService constructs a results service.
func NewResultsService(lifecycle *LifecycleService, results ResultRepository, now func() time.Time, logger *slog.Logger) *ResultsService {
	if now == nil {
		now = time.Now
	}
	return &ResultsService{
		lifecycle: lifecycle,
		results:   results,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// ComputeResults reads the current standings of a session.
func (s *ResultsService) ComputeResults(ctx context.Context, sessionID string) (SessionResults, error) {
	if s == nil {
		return SessionResults{}, fmt.Errorf("ResultsService is nil")
	}
	session, err := s.lifecycle.GetSession(ctx, sessionID)
	if err != nil {
		return SessionResults{}, err
	}
	rows, err := s.results.ResultRows(ctx, session.ID)
	if err != nil {
		return SessionResults{}, mapRepoError(err, nil)
	}
	return SessionResults{
		Session:    session,
		Positions:  groupResults(rows),
		ComputedAt: s.now(),
	}, nil
}

// Publish moves a voting session to Results Published, closing the ballot
// and freezing the standings.
func (s *ResultsService) Publish(ctx context.Context, sessionID string) (results SessionResults, err error) {
	if s == nil {
		err = fmt.Errorf("ResultsService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ResultsService", "Publish", "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to publish results", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "results published", "positions", len(results.Positions))
	}()

	var session Session
	if session, err = s.lifecycle.Transition(ctx, sessionID, PhaseResultsPublished); err != nil {
		return
	}
	return s.frozenResults(ctx, session)
}

// PublishedResults returns the frozen results of the newest published
// session. Without one it fails with ErrPhaseViolation.
func (s *ResultsService) PublishedResults(ctx context.Context) (SessionResults, error) {
	if s == nil {
		return SessionResults{}, fmt.Errorf("ResultsService is nil")
	}
	session, err := s.lifecycle.CurrentSession(ctx, PhaseResultsPublished)
	if err != nil {
		return SessionResults{}, err
	}
	return s.frozenResults(ctx, session)
}

// AdminResults returns live standings for sessionID, or when empty for the
// newest session in voting or closed, falling back to the newest session.
func (s *ResultsService) AdminResults(ctx context.Context, sessionID string) (SessionResults, error) {
	if s == nil {
		return SessionResults{}, fmt.Errorf("ResultsService is nil")
	}
	if sessionID == "" {
		session, err := s.lifecycle.ActiveSession(ctx, PhaseVotingOpen, PhaseClosed)
		if err != nil {
			return SessionResults{}, err
		}
		sessionID = session.ID
	}
	return s.ComputeResults(ctx, sessionID)
}

func (s *ResultsService) frozenResults(ctx context.Context, session Session) (SessionResults, error) {
	snapshot, err := s.results.GetResultSnapshot(ctx, session.ID)
	if err = mapRepoError(err, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Sessions published before snapshots existed are computed live.
			results, cErr := s.ComputeResults(ctx, session.ID)
			results.Session = session
			return results, cErr
		}
		return SessionResults{}, err
	}
	return SessionResults{
		Session:    session,
		Positions:  groupResults(snapshot.Rows),
		ComputedAt: snapshot.ComputedAt,
		Frozen:     true,
	}, nil
}

// groupResults folds rows ordered by position order into per-position
// standings sorted by votes descending. Ties keep row order.
func groupResults(rows []ResultRow) []PositionResult {
	positions := make([]PositionResult, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.PositionID]
		if !ok {
			i = len(positions)
			index[row.PositionID] = i
			positions = append(positions, PositionResult{
				PositionID: row.PositionID,
				Name:       row.PositionName,
				Order:      row.PositionOrder,
			})
		}
		positions[i].Candidates = append(positions[i].Candidates, CandidateResult{
			CandidateID: row.CandidateID,
			FullName:    row.CandidateName,
			Votes:       row.Votes,
		})
	}

	sort.SliceStable(positions, func(a, b int) bool {
		return positions[a].Order < positions[b].Order
	})
	for i := range positions {
		candidates := positions[i].Candidates
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].Votes > candidates[b].Votes
		})
	}
	return positions
}
