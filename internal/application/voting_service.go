package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// BallotRepository captures voter and vote persistence.
type BallotRepository interface {
	GetVoterByEmail(ctx context.Context, sessionID, email string) (Voter, error)
	HasVoted(ctx context.Context, sessionID, voterID, positionID string) (bool, error)
	RecordVote(ctx context.Context, record VoteRecord) (VoteRecord, error)
}

// BallotPositions resolves positions and the ballot order of a session.
type BallotPositions interface {
	PositionLookup
	ListBallotPositions(ctx context.Context, sessionID string) ([]Position, error)
}

// CandidateLister lists the approved candidates of a position.
type CandidateLister interface {
	ListCandidates(ctx context.Context, sessionID, positionID string) ([]Nomination, error)
}

// BallotState is the step of the voting flow presented to the voter.
type BallotState string

const (
	StateNoActiveSession  BallotState = "no_active_session"
	StatePresentingBallot BallotState = "presenting_ballot"
	StateCompleted        BallotState = "completed"
)

// DuplicateVoteWarning is shown when a voter resubmits a position.
const DuplicateVoteWarning = "You have already voted for this position."

// BallotView is what the voter sees at one step of the flow.
type BallotView struct {
	State BallotState
	// ResultsPublished distinguishes "results are out" from "voting is not open" when no session accepts votes.
	ResultsPublished bool
	SessionID        string
	SessionName      string
	Position         *Position
	Candidates       []Nomination
	Tally            map[string]int
	// AlreadyVoted is informational; it never blocks a submission.
	AlreadyVoted bool
	Voter        *Voter
	Email        string
	Token        string
}

// BallotParams selects the ballot step to present.
type BallotParams struct {
	Token      string
	PositionID string
}

// SubmitVoteParams is a ballot form submission.
type SubmitVoteParams struct {
	Token       string
	PositionID  string
	CandidateID string
	Voter       VoterInput
}

// SubmitResult reports what happened to a submission and the next step.
type SubmitResult struct {
	Duplicate          bool
	Warning            string
	RecordedPositionID string
	Next               BallotView
}

// VotingServiceConfig wires the voting flow.
type VotingServiceConfig struct {
	Lifecycle   *LifecycleService
	Tally       *TallyService
	Positions   BallotPositions
	Candidates  CandidateLister
	Ballots     BallotRepository
	Tokens      *BallotTokenSigner
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Metrics     *Metrics
}

// VotingService drives the sequential ballot: one position at a time in
// ballot order, skipping positions without approved candidates.
type VotingService struct {
	lifecycle   *LifecycleService
	tally       *TallyService
	positions   BallotPositions
	candidates  CandidateLister
	ballots     BallotRepository
	tokens      *BallotTokenSigner
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics
}

// NewVotingService constructs the voting flow controller.
func NewVotingService(cfg VotingServiceConfig) *VotingService {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &VotingService{
		lifecycle:   cfg.Lifecycle,
		tally:       cfg.Tally,
		positions:   cfg.Positions,
		candidates:  cfg.Candidates,
		ballots:     cfg.Ballots,
		tokens:      cfg.Tokens,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
		metrics:     cfg.Metrics,
	}
}

func (s *VotingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "VotingService", operation, attrs...)
}

// Ballot presents the ballot for the token's position, the explicitly
// requested position, or the first position with approved candidates.
func (s *VotingService) Ballot(ctx context.Context, params BallotParams) (view BallotView, err error) {
	if s == nil {
		err = fmt.Errorf("VotingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Ballot", "position_id", params.PositionID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to present ballot", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	session, open, err := s.votingSession(ctx)
	if err != nil || !open {
		if err == nil {
			view, err = s.closedView(ctx)
		}
		return
	}

	claims, err := s.claims(params.Token, session.ID)
	if err != nil {
		return
	}
	positionID, err := resolvePositionID(params.PositionID, claims.PositionID)
	if err != nil {
		return
	}

	var position *Position
	if positionID != "" {
		var found Position
		found, err = s.positions.GetPosition(ctx, positionID)
		if err != nil {
			err = mapRepoError(err, nil)
			return
		}
		position = &found
	} else {
		position, err = s.firstPosition(ctx, session.ID)
		if err != nil {
			return
		}
	}

	if position == nil {
		view = BallotView{State: StateCompleted, SessionID: session.ID, SessionName: session.Name, Email: claims.Email}
		return
	}
	return s.presentBallot(ctx, session, *position, claims.Email)
}

// Submit records a vote and advances to the next position. A repeat vote for
// the same position is not an error: the result carries Duplicate and a
// warning, nothing is written, and the flow still advances.
func (s *VotingService) Submit(ctx context.Context, params SubmitVoteParams) (result SubmitResult, err error) {
	if s == nil {
		err = fmt.Errorf("VotingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Submit",
		"position_id", params.PositionID,
		"candidate_id", params.CandidateID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit vote", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "vote submission handled",
			"duplicate", result.Duplicate,
			"next_state", string(result.Next.State),
		)
	}()

	session, open, err := s.votingSession(ctx)
	if err != nil || !open {
		if err == nil {
			result.Next, err = s.closedView(ctx)
		}
		return
	}

	claims, err := s.claims(params.Token, session.ID)
	if err != nil {
		return
	}
	positionID, err := resolvePositionID(params.PositionID, claims.PositionID)
	if err != nil {
		return
	}

	vErr := validateVoterInput(params.Voter)
	if positionID == "" {
		vErr.add("position_id", "position is required")
	}
	if strings.TrimSpace(params.CandidateID) == "" {
		vErr.add("candidate_id", "candidate is required")
	}
	email := normalizeEmail(params.Voter.Email)
	if claims.Email != "" && email != "" && claims.Email != email {
		vErr.add("email", "email does not match the ballot in progress")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var position Position
	position, err = s.positions.GetPosition(ctx, positionID)
	if err != nil {
		err = mapRepoError(err, nil)
		return
	}

	now := s.now()
	record := VoteRecord{
		Voter: Voter{
			ID:               s.idGenerator(),
			SessionID:        session.ID,
			FullName:         strings.TrimSpace(params.Voter.FullName),
			Email:            email,
			Gender:           strings.TrimSpace(params.Voter.Gender),
			Designation:      strings.TrimSpace(params.Voter.Designation),
			WorkplaceAddress: strings.TrimSpace(params.Voter.WorkplaceAddress),
			LastTrainingDate: params.Voter.LastTrainingDate,
			VotedAt:          &now,
			CreatedAt:        now,
		},
		Vote: Vote{
			ID:          s.idGenerator(),
			SessionID:   session.ID,
			PositionID:  position.ID,
			CandidateID: strings.TrimSpace(params.CandidateID),
			CreatedAt:   now,
		},
	}

	_, err = s.ballots.RecordVote(ctx, record)
	err = mapRepoError(err, ErrDuplicateSubmission)
	switch {
	case err == nil:
		s.metrics.voteRecorded()
	case errors.Is(err, ErrDuplicateSubmission):
		s.metrics.duplicateVote()
		result.Duplicate = true
		result.Warning = DuplicateVoteWarning
		err = nil
	case errors.Is(err, ErrPhaseViolation):
		result.Next, err = s.closedView(ctx)
		return
	default:
		return
	}
	result.RecordedPositionID = position.ID

	var next *Position
	next, err = s.nextPosition(ctx, session.ID, position.Order)
	if err != nil {
		return
	}
	if next == nil {
		result.Next = BallotView{State: StateCompleted, SessionID: session.ID, SessionName: session.Name, Email: email}
		return
	}
	result.Next, err = s.presentBallot(ctx, session, *next, email)
	return
}

// votingSession reports the session open for voting, if any.
func (s *VotingService) votingSession(ctx context.Context) (Session, bool, error) {
	session, err := s.lifecycle.CurrentSession(ctx, PhaseVotingOpen)
	if errors.Is(err, ErrPhaseViolation) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return session, true, nil
}

// closedView explains why no ballot is available: results are out when the
// newest session has published them, otherwise voting is simply not open.
func (s *VotingService) closedView(ctx context.Context) (BallotView, error) {
	view := BallotView{State: StateNoActiveSession}
	latest, err := s.lifecycle.ActiveSession(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		return view, nil
	case err != nil:
		return BallotView{}, err
	}
	view.ResultsPublished = latest.Phase == PhaseResultsPublished
	if view.ResultsPublished {
		view.SessionID = latest.ID
		view.SessionName = latest.Name
	}
	return view, nil
}

func (s *VotingService) claims(token, sessionID string) (BallotClaims, error) {
	if token == "" {
		return BallotClaims{}, nil
	}
	if s.tokens == nil {
		return BallotClaims{}, ErrInvalidBallotToken
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return BallotClaims{}, err
	}
	if claims.SessionID != sessionID {
		return BallotClaims{}, fmt.Errorf("%w: issued for another session", ErrInvalidBallotToken)
	}
	return claims, nil
}

func resolvePositionID(requested, fromToken string) (string, error) {
	requested = strings.TrimSpace(requested)
	if fromToken == "" {
		return requested, nil
	}
	if requested != "" && requested != fromToken {
		return "", fieldError("position_id", "position does not match the ballot in progress")
	}
	return fromToken, nil
}

func (s *VotingService) firstPosition(ctx context.Context, sessionID string) (*Position, error) {
	positions, err := s.positions.ListBallotPositions(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err, nil)
	}
	if len(positions) == 0 {
		return nil, nil
	}
	return &positions[0], nil
}

// nextPosition returns the first position with approved candidates whose
// order is strictly greater than after.
func (s *VotingService) nextPosition(ctx context.Context, sessionID string, after int) (*Position, error) {
	positions, err := s.positions.ListBallotPositions(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err, nil)
	}
	for i := range positions {
		if positions[i].Order > after {
			return &positions[i], nil
		}
	}
	return nil, nil
}

func (s *VotingService) presentBallot(ctx context.Context, session Session, position Position, email string) (BallotView, error) {
	view := BallotView{
		State:       StatePresentingBallot,
		SessionID:   session.ID,
		SessionName: session.Name,
		Position:    &position,
		Email:       email,
	}

	candidates, err := s.candidates.ListCandidates(ctx, session.ID, position.ID)
	if err != nil {
		return BallotView{}, mapRepoError(err, nil)
	}
	view.Candidates = candidates

	if view.Tally, err = s.tally.CountVotes(ctx, session.ID, position.ID); err != nil {
		return BallotView{}, err
	}

	if email != "" {
		voter, err := s.ballots.GetVoterByEmail(ctx, session.ID, email)
		switch err = mapRepoError(err, nil); {
		case err == nil:
			view.Voter = &voter
			if view.AlreadyVoted, err = s.ballots.HasVoted(ctx, session.ID, voter.ID, position.ID); err != nil {
				return BallotView{}, mapRepoError(err, nil)
			}
		case !errors.Is(err, ErrNotFound):
			return BallotView{}, err
		}
	}

	if s.tokens != nil {
		if view.Token, err = s.tokens.Issue(BallotClaims{SessionID: session.ID, Email: email, PositionID: position.ID}); err != nil {
			return BallotView{}, err
		}
	}
	return view, nil
}
