package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// NominationRepository captures the persistence operations for nominations.
type NominationRepository interface {
	CreateNomination(ctx context.Context, nomination Nomination) error
	GetNomination(ctx context.Context, id string) (Nomination, error)
	ListNominations(ctx context.Context, sessionID string) ([]Nomination, error)
	SetApproval(ctx context.Context, ids []string, approved bool, at time.Time) (int, error)
}

// NominationServiceConfig wires the nomination service.
type NominationServiceConfig struct {
	Lifecycle   *LifecycleService
	Nominations NominationRepository
	Positions   PositionLookup
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Metrics     *Metrics
}

// NominationService accepts candidacy submissions and records approvals.
type NominationService struct {
	lifecycle   *LifecycleService
	nominations NominationRepository
	positions   PositionLookup
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics
}

// NewNominationService constructs a nomination service.
func NewNominationService(cfg NominationServiceConfig) *NominationService {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &NominationService{
		lifecycle:   cfg.Lifecycle,
		nominations: cfg.Nominations,
		positions:   cfg.Positions,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
		metrics:     cfg.Metrics,
	}
}

func (s *NominationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NominationService", operation, attrs...)
}

// Submit records a nomination for the session accepting nominations. One
// nomination per email is allowed in a session.
func (s *NominationService) Submit(ctx context.Context, input NominationInput) (nomination Nomination, err error) {
	if s == nil {
		err = fmt.Errorf("NominationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Submit")
	defer func() {
		switch {
		case err == nil:
			s.metrics.nomination("accepted")
			logger.With("nomination_id", nomination.ID).InfoContext(ctx, "nomination accepted")
		case errors.Is(err, ErrDuplicateSubmission):
			s.metrics.nomination("duplicate")
			logger.WarnContext(ctx, "duplicate nomination", "error_kind", ErrorKind(err))
		default:
			s.metrics.nomination("rejected")
			logger.WarnContext(ctx, "nomination rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var session Session
	if session, err = s.lifecycle.CurrentSession(ctx, PhaseNominationsOpen); err != nil {
		return
	}

	vErr := validateNominationInput(input)
	desired := normalizeOptionalString(input.DesiredPositionID)
	if desired != nil {
		if _, pErr := s.positions.GetPosition(ctx, *desired); pErr != nil {
			if pErr = mapRepoError(pErr, nil); !errors.Is(pErr, ErrNotFound) {
				err = pErr
				return
			}
			vErr.add("desired_position_id", "position does not exist")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	nomination = Nomination{
		ID:                s.idGenerator(),
		SessionID:         session.ID,
		FullName:          strings.TrimSpace(input.FullName),
		Email:             normalizeEmail(input.Email),
		PhoneNumber:       strings.TrimSpace(input.PhoneNumber),
		Gender:            strings.TrimSpace(input.Gender),
		Designation:       strings.TrimSpace(input.Designation),
		WorkplaceAddress:  strings.TrimSpace(input.WorkplaceAddress),
		LastTrainingDate:  input.LastTrainingDate,
		Interested:        *input.Interested,
		DesiredPositionID: desired,
		PhotoPath:         normalizeOptionalString(input.PhotoPath),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err = s.nominations.CreateNomination(ctx, nomination); err != nil {
		err = mapRepoError(err, ErrDuplicateSubmission)
		nomination = Nomination{}
		return
	}
	return
}

// ListNominations returns the nominations of sessionID in submission order.
// An empty sessionID selects the newest active session.
func (s *NominationService) ListNominations(ctx context.Context, sessionID string) ([]Nomination, error) {
	if s == nil {
		return nil, fmt.Errorf("NominationService is nil")
	}
	if sessionID == "" {
		session, err := s.lifecycle.ActiveSession(ctx, PhaseNominationsOpen, PhaseVotingOpen)
		if err != nil {
			return nil, err
		}
		sessionID = session.ID
	}
	nominations, err := s.nominations.ListNominations(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err, nil)
	}
	return nominations, nil
}

// SetApproval approves or rejects nominations and reports how many changed.
func (s *NominationService) SetApproval(ctx context.Context, ids []string, approved bool) (updated int, err error) {
	if s == nil {
		err = fmt.Errorf("NominationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SetApproval", "approved", approved, "requested", len(ids))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update approval", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "approval updated", "updated", updated)
	}()

	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		err = fieldError("nomination_ids", "at least one nomination is required")
		return
	}

	updated, err = s.nominations.SetApproval(ctx, cleaned, approved, s.now())
	err = mapRepoError(err, nil)
	return
}
