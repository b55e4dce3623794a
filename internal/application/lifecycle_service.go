package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// SessionRepository captures the persistence operations needed for sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session, activate bool) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	LatestSession(ctx context.Context, phases ...Phase) (Session, error)
	GetActiveElection(ctx context.Context) (ActiveElection, error)
	TransitionSession(ctx context.Context, transition SessionTransition) (Session, error)
}

// allowedTransitions is the one-way phase graph.
var allowedTransitions = map[Phase][]Phase{
	PhaseNominationsOpen:  {PhaseVotingOpen, PhaseClosed},
	PhaseVotingOpen:       {PhaseResultsPublished, PhaseClosed},
	PhaseResultsPublished: {PhaseClosed},
}

func transitionAllowed(from, to Phase) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// LifecycleServiceConfig wires the lifecycle service.
type LifecycleServiceConfig struct {
	Sessions    SessionRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Metrics     *Metrics
}

// LifecycleService creates sessions and applies administrator phase commands.
type LifecycleService struct {
	sessions    SessionRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics
}

// NewLifecycleService constructs a lifecycle service.
func NewLifecycleService(cfg LifecycleServiceConfig) *LifecycleService {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LifecycleService{
		sessions:    cfg.Sessions,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
		metrics:     cfg.Metrics,
	}
}

func (s *LifecycleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LifecycleService", operation, attrs...)
}

// CreateSession registers a new session in the Nominations Open phase. It
// fails with ErrActiveElectionConflict while another session is active.
func (s *LifecycleService) CreateSession(ctx context.Context, input SessionInput) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("LifecycleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession", "name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session created")
	}()

	vErr := validateSessionInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	session = Session{
		ID:              s.idGenerator(),
		Name:            strings.TrimSpace(input.Name),
		NominationStart: input.NominationStart,
		NominationEnd:   input.NominationEnd,
		VotingStart:     input.VotingStart,
		VotingEnd:       input.VotingEnd,
		Phase:           PhaseNominationsOpen,
		NominationOpen:  true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	session, err = s.sessions.CreateSession(ctx, session, true)
	if err != nil {
		err = mapRepoError(err, ErrAlreadyExists)
		return
	}
	s.metrics.phaseTransition(session.Phase)
	return
}

// GetSession returns a session by id.
func (s *LifecycleService) GetSession(ctx context.Context, id string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapRepoError(err, ErrAlreadyExists)
	}
	return session, nil
}

// ListSessions returns all sessions, newest first.
func (s *LifecycleService) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, mapRepoError(err, ErrAlreadyExists)
	}
	return sessions, nil
}

// ActiveElection returns the session currently holding the active election slot.
func (s *LifecycleService) ActiveElection(ctx context.Context) (ActiveElection, error) {
	active, err := s.sessions.GetActiveElection(ctx)
	if err != nil {
		return ActiveElection{}, mapRepoError(err, ErrAlreadyExists)
	}
	return active, nil
}

// slotSession loads the session holding the active election slot when its
// phase is one of phases (any phase when none are given). found is false
// when the slot is empty or held in another phase.
func (s *LifecycleService) slotSession(ctx context.Context, phases ...Phase) (session Session, found bool, err error) {
	active, err := s.ActiveElection(ctx)
	if errors.Is(err, ErrNotFound) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	if len(phases) > 0 && !slices.Contains(phases, active.Phase) {
		return Session{}, false, nil
	}
	session, err = s.GetSession(ctx, active.SessionID)
	if err != nil {
		return Session{}, false, err
	}
	if session.Phase != active.Phase {
		return Session{}, false, fmt.Errorf("active election %s is %q but session is %q", session.ID, active.Phase, session.Phase)
	}
	return session, true, nil
}

// ActiveSession returns the session holding the active election slot when it
// is in one of phases. Otherwise it returns the newest session in one of
// phases, and finally the newest session of any phase. It is meant for
// administrator views; only an empty store yields ErrNotFound.
func (s *LifecycleService) ActiveSession(ctx context.Context, phases ...Phase) (Session, error) {
	session, found, err := s.slotSession(ctx, phases...)
	if err != nil || found {
		return session, err
	}

	if len(phases) > 0 {
		session, err := s.sessions.LatestSession(ctx, phases...)
		if err == nil {
			return session, nil
		}
		if !errors.Is(mapRepoError(err, nil), ErrNotFound) {
			return Session{}, mapRepoError(err, nil)
		}
	}

	session, err = s.sessions.LatestSession(ctx)
	if err != nil {
		return Session{}, mapRepoError(err, nil)
	}
	return session, nil
}

// CurrentSession returns the session in exactly phase, with no fallback.
// Nominations Open and Voting Open resolve through the active election slot
// only; Results Published, which never holds the slot, resolves to the newest
// published session. Public flows use it; a missing session is
// ErrPhaseViolation.
func (s *LifecycleService) CurrentSession(ctx context.Context, phase Phase) (Session, error) {
	if phase.Active() {
		session, found, err := s.slotSession(ctx, phase)
		if err != nil {
			return Session{}, err
		}
		if !found {
			return Session{}, fmt.Errorf("%w: no session in phase %q", ErrPhaseViolation, phase)
		}
		return session, nil
	}

	session, err := s.sessions.LatestSession(ctx, phase)
	if err != nil {
		err = mapRepoError(err, nil)
		if errors.Is(err, ErrNotFound) {
			return Session{}, fmt.Errorf("%w: no session in phase %q", ErrPhaseViolation, phase)
		}
		return Session{}, err
	}
	return session, nil
}

// Transition applies an administrator phase command. Entering Results
// Published freezes a result snapshot in the same store transaction.
func (s *LifecycleService) Transition(ctx context.Context, sessionID string, target Phase) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("LifecycleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Transition", "session_id", sessionID, "target_phase", string(target))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to transition session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session transitioned")
	}()

	if !target.Valid() {
		err = fieldError("phase", "unknown phase")
		return
	}

	var current Session
	current, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err, nil)
		return
	}
	if !transitionAllowed(current.Phase, target) {
		err = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Phase, target)
		return
	}

	now := s.now()
	transition := SessionTransition{
		SessionID:      current.ID,
		From:           current.Phase,
		To:             target,
		NominationOpen: target == PhaseNominationsOpen,
		VotingOpen:     target == PhaseVotingOpen,
		Activate:       target.Active(),
		At:             now,
	}
	if target == PhaseResultsPublished {
		transition.SnapshotID = s.idGenerator()
	}

	session, err = s.sessions.TransitionSession(ctx, transition)
	if err != nil {
		err = mapRepoError(err, nil)
		return
	}
	s.metrics.phaseTransition(target)
	return
}
