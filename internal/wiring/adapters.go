package wiring

import (
	"context"
	"time"

	"github.com/example/election-manager/internal/application"
	"github.com/example/election-manager/internal/persistence"
)

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session, activate bool) (application.Session, error) {
	if err := a.repo.CreateSession(ctx, toPersistenceSession(session), activate); err != nil {
		return application.Session{}, err
	}
	return session, nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	model, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(model), nil
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context) ([]application.Session, error) {
	models, err := a.repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions, nil
}

func (a *sessionRepositoryAdapter) LatestSession(ctx context.Context, phases ...application.Phase) (application.Session, error) {
	names := make([]string, 0, len(phases))
	for _, phase := range phases {
		names = append(names, string(phase))
	}
	model, err := a.repo.LatestSession(ctx, names...)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(model), nil
}

func (a *sessionRepositoryAdapter) GetActiveElection(ctx context.Context) (application.ActiveElection, error) {
	model, err := a.repo.GetActiveElection(ctx)
	if err != nil {
		return application.ActiveElection{}, err
	}
	return application.ActiveElection{
		SessionID: model.SessionID,
		Phase:     application.Phase(model.Phase),
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func (a *sessionRepositoryAdapter) TransitionSession(ctx context.Context, t application.SessionTransition) (application.Session, error) {
	transition := persistence.SessionTransition{
		SessionID:      t.SessionID,
		From:           string(t.From),
		To:             string(t.To),
		NominationOpen: t.NominationOpen,
		VotingOpen:     t.VotingOpen,
		Activate:       t.Activate,
		At:             t.At,
	}
	if t.SnapshotID != "" {
		transition.Snapshot = &persistence.ResultSnapshot{ID: t.SnapshotID, SessionID: t.SessionID, ComputedAt: t.At}
	}
	model, err := a.repo.TransitionSession(ctx, transition)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(model), nil
}

type positionRepositoryAdapter struct {
	repo persistence.PositionRepository
}

func newPositionRepositoryAdapter(repo persistence.PositionRepository) *positionRepositoryAdapter {
	return &positionRepositoryAdapter{repo: repo}
}

func (a *positionRepositoryAdapter) CreatePosition(ctx context.Context, position application.Position) error {
	return a.repo.CreatePosition(ctx, persistence.Position{
		ID:        position.ID,
		Name:      position.Name,
		Order:     position.Order,
		CreatedAt: position.CreatedAt,
	})
}

func (a *positionRepositoryAdapter) GetPosition(ctx context.Context, id string) (application.Position, error) {
	model, err := a.repo.GetPosition(ctx, id)
	if err != nil {
		return application.Position{}, err
	}
	return toApplicationPosition(model), nil
}

func (a *positionRepositoryAdapter) ListPositions(ctx context.Context) ([]application.Position, error) {
	models, err := a.repo.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationPositions(models), nil
}

func (a *positionRepositoryAdapter) ListBallotPositions(ctx context.Context, sessionID string) ([]application.Position, error) {
	models, err := a.repo.ListBallotPositions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toApplicationPositions(models), nil
}

func (a *positionRepositoryAdapter) DeletePosition(ctx context.Context, id string) error {
	return a.repo.DeletePosition(ctx, id)
}

type nominationRepositoryAdapter struct {
	repo persistence.NominationRepository
}

func newNominationRepositoryAdapter(repo persistence.NominationRepository) *nominationRepositoryAdapter {
	return &nominationRepositoryAdapter{repo: repo}
}

func (a *nominationRepositoryAdapter) CreateNomination(ctx context.Context, n application.Nomination) error {
	return a.repo.CreateNomination(ctx, persistence.Nomination{
		ID:                n.ID,
		SessionID:         n.SessionID,
		FullName:          n.FullName,
		Email:             n.Email,
		PhoneNumber:       n.PhoneNumber,
		Gender:            n.Gender,
		Designation:       n.Designation,
		WorkplaceAddress:  n.WorkplaceAddress,
		LastTrainingDate:  cloneTime(n.LastTrainingDate),
		Interested:        n.Interested,
		DesiredPositionID: cloneString(n.DesiredPositionID),
		Approved:          n.Approved,
		PhotoPath:         cloneString(n.PhotoPath),
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
	})
}

func (a *nominationRepositoryAdapter) GetNomination(ctx context.Context, id string) (application.Nomination, error) {
	model, err := a.repo.GetNomination(ctx, id)
	if err != nil {
		return application.Nomination{}, err
	}
	return toApplicationNomination(model), nil
}

func (a *nominationRepositoryAdapter) ListNominations(ctx context.Context, sessionID string) ([]application.Nomination, error) {
	models, err := a.repo.ListNominations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toApplicationNominations(models), nil
}

func (a *nominationRepositoryAdapter) ListCandidates(ctx context.Context, sessionID, positionID string) ([]application.Nomination, error) {
	models, err := a.repo.ListCandidates(ctx, sessionID, positionID)
	if err != nil {
		return nil, err
	}
	return toApplicationNominations(models), nil
}

func (a *nominationRepositoryAdapter) SetApproval(ctx context.Context, ids []string, approved bool, at time.Time) (int, error) {
	return a.repo.SetApproval(ctx, ids, approved, at)
}

type ballotRepositoryAdapter struct {
	repo persistence.BallotRepository
}

func newBallotRepositoryAdapter(repo persistence.BallotRepository) *ballotRepositoryAdapter {
	return &ballotRepositoryAdapter{repo: repo}
}

func (a *ballotRepositoryAdapter) GetVoterByEmail(ctx context.Context, sessionID, email string) (application.Voter, error) {
	model, err := a.repo.GetVoterByEmail(ctx, sessionID, email)
	if err != nil {
		return application.Voter{}, err
	}
	return toApplicationVoter(model), nil
}

func (a *ballotRepositoryAdapter) HasVoted(ctx context.Context, sessionID, voterID, positionID string) (bool, error) {
	return a.repo.HasVoted(ctx, sessionID, voterID, positionID)
}

func (a *ballotRepositoryAdapter) CountVotes(ctx context.Context, sessionID, positionID string) ([]application.CandidateCount, error) {
	models, err := a.repo.CountVotes(ctx, sessionID, positionID)
	if err != nil {
		return nil, err
	}
	counts := make([]application.CandidateCount, 0, len(models))
	for _, m := range models {
		counts = append(counts, application.CandidateCount{CandidateID: m.NomineeID, Count: m.Count})
	}
	return counts, nil
}

func (a *ballotRepositoryAdapter) RecordVote(ctx context.Context, record application.VoteRecord) (application.VoteRecord, error) {
	v := record.Voter
	stored, err := a.repo.RecordVote(ctx, persistence.VoteRecord{
		Voter: persistence.Voter{
			ID:               v.ID,
			SessionID:        v.SessionID,
			FullName:         v.FullName,
			Email:            v.Email,
			Gender:           v.Gender,
			Designation:      v.Designation,
			WorkplaceAddress: v.WorkplaceAddress,
			LastTrainingDate: cloneTime(v.LastTrainingDate),
			VotedAt:          cloneTime(v.VotedAt),
			CreatedAt:        v.CreatedAt,
		},
		Vote: persistence.Vote{
			ID:         record.Vote.ID,
			SessionID:  record.Vote.SessionID,
			VoterID:    record.Vote.VoterID,
			PositionID: record.Vote.PositionID,
			NomineeID:  record.Vote.CandidateID,
			CreatedAt:  record.Vote.CreatedAt,
		},
	})
	if err != nil {
		return application.VoteRecord{}, err
	}
	return application.VoteRecord{
		Voter: toApplicationVoter(stored.Voter),
		Vote: application.Vote{
			ID:          stored.Vote.ID,
			SessionID:   stored.Vote.SessionID,
			VoterID:     stored.Vote.VoterID,
			PositionID:  stored.Vote.PositionID,
			CandidateID: stored.Vote.NomineeID,
			CreatedAt:   stored.Vote.CreatedAt,
		},
	}, nil
}

type resultRepositoryAdapter struct {
	repo persistence.ResultRepository
}

func newResultRepositoryAdapter(repo persistence.ResultRepository) *resultRepositoryAdapter {
	return &resultRepositoryAdapter{repo: repo}
}

func (a *resultRepositoryAdapter) ResultRows(ctx context.Context, sessionID string) ([]application.ResultRow, error) {
	rows, err := a.repo.ResultRows(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toApplicationResultRows(rows), nil
}

func (a *resultRepositoryAdapter) GetResultSnapshot(ctx context.Context, sessionID string) (application.ResultSnapshot, error) {
	snapshot, err := a.repo.GetResultSnapshot(ctx, sessionID)
	if err != nil {
		return application.ResultSnapshot{}, err
	}
	return application.ResultSnapshot{
		ID:         snapshot.ID,
		SessionID:  snapshot.SessionID,
		ComputedAt: snapshot.ComputedAt,
		Rows:       toApplicationResultRows(snapshot.Rows),
	}, nil
}

type formLabelRepositoryAdapter struct {
	repo persistence.FormLabelRepository
}

func newFormLabelRepositoryAdapter(repo persistence.FormLabelRepository) *formLabelRepositoryAdapter {
	return &formLabelRepositoryAdapter{repo: repo}
}

func (a *formLabelRepositoryAdapter) ListFormLabels(ctx context.Context, formType string) ([]application.FormLabel, error) {
	models, err := a.repo.ListFormLabels(ctx, formType)
	if err != nil {
		return nil, err
	}
	labels := make([]application.FormLabel, 0, len(models))
	for _, m := range models {
		labels = append(labels, application.FormLabel(m))
	}
	return labels, nil
}

func (a *formLabelRepositoryAdapter) UpsertFormLabel(ctx context.Context, label application.FormLabel) error {
	return a.repo.UpsertFormLabel(ctx, persistence.FormLabel(label))
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:              model.ID,
		Name:            model.Name,
		NominationStart: cloneTime(model.NominationStart),
		NominationEnd:   cloneTime(model.NominationEnd),
		VotingStart:     cloneTime(model.VotingStart),
		VotingEnd:       cloneTime(model.VotingEnd),
		Phase:           application.Phase(model.Phase),
		NominationOpen:  model.NominationOpen,
		VotingOpen:      model.VotingOpen,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:              session.ID,
		Name:            session.Name,
		NominationStart: cloneTime(session.NominationStart),
		NominationEnd:   cloneTime(session.NominationEnd),
		VotingStart:     cloneTime(session.VotingStart),
		VotingEnd:       cloneTime(session.VotingEnd),
		Phase:           string(session.Phase),
		NominationOpen:  session.NominationOpen,
		VotingOpen:      session.VotingOpen,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func toApplicationPosition(model persistence.Position) application.Position {
	return application.Position{ID: model.ID, Name: model.Name, Order: model.Order, CreatedAt: model.CreatedAt}
}

func toApplicationPositions(models []persistence.Position) []application.Position {
	positions := make([]application.Position, 0, len(models))
	for _, m := range models {
		positions = append(positions, toApplicationPosition(m))
	}
	return positions
}

func toApplicationNomination(model persistence.Nomination) application.Nomination {
	return application.Nomination{
		ID:                model.ID,
		SessionID:         model.SessionID,
		FullName:          model.FullName,
		Email:             model.Email,
		PhoneNumber:       model.PhoneNumber,
		Gender:            model.Gender,
		Designation:       model.Designation,
		WorkplaceAddress:  model.WorkplaceAddress,
		LastTrainingDate:  cloneTime(model.LastTrainingDate),
		Interested:        model.Interested,
		DesiredPositionID: cloneString(model.DesiredPositionID),
		Approved:          model.Approved,
		PhotoPath:         cloneString(model.PhotoPath),
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func toApplicationNominations(models []persistence.Nomination) []application.Nomination {
	nominations := make([]application.Nomination, 0, len(models))
	for _, m := range models {
		nominations = append(nominations, toApplicationNomination(m))
	}
	return nominations
}

func toApplicationVoter(model persistence.Voter) application.Voter {
	return application.Voter{
		ID:               model.ID,
		SessionID:        model.SessionID,
		FullName:         model.FullName,
		Email:            model.Email,
		Gender:           model.Gender,
		Designation:      model.Designation,
		WorkplaceAddress: model.WorkplaceAddress,
		LastTrainingDate: cloneTime(model.LastTrainingDate),
		VotedAt:          cloneTime(model.VotedAt),
		CreatedAt:        model.CreatedAt,
	}
}

func toApplicationResultRows(rows []persistence.ResultRow) []application.ResultRow {
	out := make([]application.ResultRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, application.ResultRow{
			PositionID:    r.PositionID,
			PositionName:  r.PositionName,
			PositionOrder: r.PositionOrder,
			CandidateID:   r.NomineeID,
			CandidateName: r.NomineeName,
			Votes:         r.Votes,
		})
	}
	return out
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
