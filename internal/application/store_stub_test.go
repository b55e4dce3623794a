package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/election-manager/internal/persistence"
)

// electionStoreStub keeps the whole election in memory and enforces the
// same constraints as the SQLite store.
type electionStoreStub struct {
	mu sync.Mutex

	sessions    []Session
	active      *ActiveElection
	positions   []Position
	nominations []Nomination
	voters      []Voter
	votes       []Vote
	snapshots   map[string]ResultSnapshot
	labels      []FormLabel

	recordErr error
}

func newElectionStoreStub() *electionStoreStub {
	return &electionStoreStub{snapshots: make(map[string]ResultSnapshot)}
}

func (s *electionStoreStub) CreateSession(ctx context.Context, session Session, activate bool) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.Name == session.Name || existing.ID == session.ID {
			return Session{}, persistence.ErrDuplicate
		}
	}
	if activate {
		if s.active != nil {
			return Session{}, persistence.ErrActiveElectionTaken
		}
		s.active = &ActiveElection{SessionID: session.ID, Phase: session.Phase, UpdatedAt: session.CreatedAt}
	}
	s.sessions = append(s.sessions, session)
	return session, nil
}

func (s *electionStoreStub) GetSession(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return Session{}, persistence.ErrNotFound
}

func (s *electionStoreStub) ListSessions(ctx context.Context) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.sessions))
	for i := len(s.sessions) - 1; i >= 0; i-- {
		out = append(out, s.sessions[i])
	}
	return out, nil
}

func (s *electionStoreStub) LatestSession(ctx context.Context, phases ...Phase) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if len(phases) == 0 || containsPhase(phases, s.sessions[i].Phase) {
			return s.sessions[i], nil
		}
	}
	return Session{}, persistence.ErrNotFound
}

func containsPhase(phases []Phase, phase Phase) bool {
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}

func (s *electionStoreStub) GetActiveElection(ctx context.Context) (ActiveElection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ActiveElection{}, persistence.ErrNotFound
	}
	return *s.active, nil
}

func (s *electionStoreStub) TransitionSession(ctx context.Context, t SessionTransition) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.sessions {
		if s.sessions[i].ID == t.SessionID {
			idx = i
		}
	}
	if idx < 0 {
		return Session{}, persistence.ErrNotFound
	}
	if s.sessions[idx].Phase != t.From {
		return Session{}, fmt.Errorf("%w: session is %s", persistence.ErrPhaseMismatch, s.sessions[idx].Phase)
	}
	if t.Activate && s.active != nil && s.active.SessionID != t.SessionID {
		return Session{}, persistence.ErrActiveElectionTaken
	}

	session := &s.sessions[idx]
	session.Phase = t.To
	session.NominationOpen = t.NominationOpen
	session.VotingOpen = t.VotingOpen
	session.UpdatedAt = t.At
	switch {
	case t.Activate:
		s.active = &ActiveElection{SessionID: session.ID, Phase: t.To, UpdatedAt: t.At}
	case s.active != nil && s.active.SessionID == session.ID:
		s.active = nil
	}
	if t.SnapshotID != "" {
		s.snapshots[session.ID] = ResultSnapshot{
			ID:         t.SnapshotID,
			SessionID:  session.ID,
			ComputedAt: t.At,
			Rows:       s.resultRowsLocked(session.ID),
		}
	}
	return *session, nil
}

func (s *electionStoreStub) CreatePosition(ctx context.Context, position Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.positions {
		if existing.Name == position.Name || existing.Order == position.Order {
			return persistence.ErrDuplicate
		}
	}
	s.positions = append(s.positions, position)
	return nil
}

func (s *electionStoreStub) GetPosition(ctx context.Context, id string) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.positions {
		if p.ID == id {
			return p, nil
		}
	}
	return Position{}, persistence.ErrNotFound
}

func (s *electionStoreStub) ListPositions(ctx context.Context) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedPositionsLocked(), nil
}

func (s *electionStoreStub) sortedPositionsLocked() []Position {
	out := append([]Position(nil), s.positions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *electionStoreStub) ListBallotPositions(ctx context.Context, sessionID string) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Position
	for _, p := range s.sortedPositionsLocked() {
		if len(s.candidatesLocked(sessionID, p.ID)) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *electionStoreStub) DeletePosition(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.positions {
		if p.ID == id {
			s.positions = append(s.positions[:i], s.positions[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *electionStoreStub) CreateNomination(ctx context.Context, nomination Nomination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.nominations {
		if existing.SessionID == nomination.SessionID && existing.Email == nomination.Email {
			return persistence.ErrDuplicate
		}
	}
	s.nominations = append(s.nominations, nomination)
	return nil
}

func (s *electionStoreStub) GetNomination(ctx context.Context, id string) (Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nominations {
		if n.ID == id {
			return n, nil
		}
	}
	return Nomination{}, persistence.ErrNotFound
}

func (s *electionStoreStub) ListNominations(ctx context.Context, sessionID string) ([]Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Nomination
	for _, n := range s.nominations {
		if n.SessionID == sessionID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *electionStoreStub) ListCandidates(ctx context.Context, sessionID, positionID string) ([]Nomination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidatesLocked(sessionID, positionID), nil
}

func (s *electionStoreStub) candidatesLocked(sessionID, positionID string) []Nomination {
	var out []Nomination
	for _, n := range s.nominations {
		if n.SessionID == sessionID && n.Approved && n.DesiredPositionID != nil && *n.DesiredPositionID == positionID {
			out = append(out, n)
		}
	}
	return out
}

func (s *electionStoreStub) SetApproval(ctx context.Context, ids []string, approved bool, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for i := range s.nominations {
		for _, id := range ids {
			if s.nominations[i].ID == id {
				s.nominations[i].Approved = approved
				s.nominations[i].UpdatedAt = at
				updated++
			}
		}
	}
	return updated, nil
}

func (s *electionStoreStub) GetVoterByEmail(ctx context.Context, sessionID, email string) (Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voters {
		if v.SessionID == sessionID && v.Email == email {
			return v, nil
		}
	}
	return Voter{}, persistence.ErrNotFound
}

func (s *electionStoreStub) HasVoted(ctx context.Context, sessionID, voterID, positionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.VoterID == voterID && v.PositionID == positionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *electionStoreStub) CountVotes(ctx context.Context, sessionID, positionID string) ([]CandidateCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, v := range s.votes {
		if v.SessionID == sessionID && v.PositionID == positionID {
			counts[v.CandidateID]++
		}
	}
	out := make([]CandidateCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, CandidateCount{CandidateID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateID < out[j].CandidateID })
	return out, nil
}

// RecordVote validates everything before touching state so a failed vote
// leaves the voter untouched.
func (s *electionStoreStub) RecordVote(ctx context.Context, record VoteRecord) (VoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return VoteRecord{}, s.recordErr
	}

	var session *Session
	for i := range s.sessions {
		if s.sessions[i].ID == record.Vote.SessionID {
			session = &s.sessions[i]
		}
	}
	if session == nil || session.Phase != PhaseVotingOpen {
		return VoteRecord{}, persistence.ErrPhaseMismatch
	}

	eligible := false
	for _, c := range s.candidatesLocked(record.Vote.SessionID, record.Vote.PositionID) {
		if c.ID == record.Vote.CandidateID {
			eligible = true
		}
	}
	if !eligible {
		return VoteRecord{}, persistence.ErrCandidateIneligible
	}

	voterIdx := -1
	for i, v := range s.voters {
		if v.SessionID == record.Voter.SessionID && v.Email == record.Voter.Email {
			voterIdx = i
		}
	}
	voterID := record.Voter.ID
	if voterIdx >= 0 {
		voterID = s.voters[voterIdx].ID
	}
	for _, v := range s.votes {
		if v.SessionID == record.Vote.SessionID && v.VoterID == voterID && v.PositionID == record.Vote.PositionID {
			return VoteRecord{}, persistence.ErrDuplicate
		}
	}

	voter := record.Voter
	voter.ID = voterID
	if voterIdx >= 0 {
		voter.CreatedAt = s.voters[voterIdx].CreatedAt
		s.voters[voterIdx] = voter
	} else {
		s.voters = append(s.voters, voter)
	}
	record.Voter = voter
	record.Vote.VoterID = voterID
	s.votes = append(s.votes, record.Vote)
	return record, nil
}

func (s *electionStoreStub) ResultRows(ctx context.Context, sessionID string) ([]ResultRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultRowsLocked(sessionID), nil
}

func (s *electionStoreStub) resultRowsLocked(sessionID string) []ResultRow {
	rows := make([]ResultRow, 0)
	for _, p := range s.sortedPositionsLocked() {
		for _, c := range s.candidatesLocked(sessionID, p.ID) {
			votes := 0
			for _, v := range s.votes {
				if v.SessionID == sessionID && v.PositionID == p.ID && v.CandidateID == c.ID {
					votes++
				}
			}
			rows = append(rows, ResultRow{
				PositionID:    p.ID,
				PositionName:  p.Name,
				PositionOrder: p.Order,
				CandidateID:   c.ID,
				CandidateName: c.FullName,
				Votes:         votes,
			})
		}
	}
	return rows
}

func (s *electionStoreStub) GetResultSnapshot(ctx context.Context, sessionID string) (ResultSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[sessionID]
	if !ok {
		return ResultSnapshot{}, persistence.ErrNotFound
	}
	return snapshot, nil
}

func (s *electionStoreStub) ListFormLabels(ctx context.Context, formType string) ([]FormLabel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FormLabel
	for _, l := range s.labels {
		if l.FormType == formType {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *electionStoreStub) UpsertFormLabel(ctx context.Context, label FormLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.labels {
		if l.FormType == label.FormType && l.FieldName == label.FieldName {
			s.labels[i] = label
			return nil
		}
	}
	s.labels = append(s.labels, label)
	return nil
}

var testTokenSecret = []byte("test-ballot-token-secret")

type electionHarness struct {
	store       *electionStoreStub
	now         time.Time
	lifecycle   *LifecycleService
	tally       *TallyService
	voting      *VotingService
	results     *ResultsService
	nominations *NominationService
	catalog     *CatalogService
	tokens      *BallotTokenSigner
}

func newElectionHarness(t *testing.T) *electionHarness {
	t.Helper()

	h := &electionHarness{
		store: newElectionStoreStub(),
		now:   time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
	var seq int
	ids := func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	clock := func() time.Time {
		h.now = h.now.Add(time.Second)
		return h.now
	}

	tokens, err := NewBallotTokenSigner(testTokenSecret, time.Hour, func() time.Time { return h.now })
	if err != nil {
		t.Fatalf("NewBallotTokenSigner: %v", err)
	}
	h.tokens = tokens

	h.lifecycle = NewLifecycleService(LifecycleServiceConfig{Sessions: h.store, IDGenerator: ids, Now: clock})
	h.tally = NewTallyService(h.lifecycle, h.store, h.store, nil)
	h.voting = NewVotingService(VotingServiceConfig{
		Lifecycle:   h.lifecycle,
		Tally:       h.tally,
		Positions:   h.store,
		Candidates:  h.store,
		Ballots:     h.store,
		Tokens:      tokens,
		IDGenerator: ids,
		Now:         clock,
	})
	h.results = NewResultsService(h.lifecycle, h.store, clock, nil)
	h.nominations = NewNominationService(NominationServiceConfig{
		Lifecycle:   h.lifecycle,
		Nominations: h.store,
		Positions:   h.store,
		IDGenerator: ids,
		Now:         clock,
	})
	h.catalog = NewCatalogService(CatalogServiceConfig{
		Positions:   h.store,
		Labels:      h.store,
		IDGenerator: ids,
		Now:         clock,
	})
	return h
}

func (h *electionHarness) createSession(t *testing.T, name string) Session {
	t.Helper()
	session, err := h.lifecycle.CreateSession(context.Background(), SessionInput{Name: name})
	if err != nil {
		t.Fatalf("CreateSession(%q): %v", name, err)
	}
	return session
}

func (h *electionHarness) createPosition(t *testing.T, name string, order int) Position {
	t.Helper()
	position, err := h.catalog.CreatePosition(context.Background(), PositionInput{Name: name, Order: order})
	if err != nil {
		t.Fatalf("CreatePosition(%q): %v", name, err)
	}
	return position
}

func (h *electionHarness) nominate(t *testing.T, name, email string, position Position) Nomination {
	t.Helper()
	interested := true
	nomination, err := h.nominations.Submit(context.Background(), NominationInput{
		FullName:          name,
		Email:             email,
		PhoneNumber:       "010-0000-0000",
		Gender:            GenderFemale,
		Designation:       "Engineer",
		WorkplaceAddress:  "Seoul",
		Interested:        &interested,
		DesiredPositionID: &position.ID,
	})
	if err != nil {
		t.Fatalf("Submit nomination %q: %v", name, err)
	}
	return nomination
}

func (h *electionHarness) approve(t *testing.T, nominations ...Nomination) {
	t.Helper()
	ids := make([]string, 0, len(nominations))
	for _, n := range nominations {
		ids = append(ids, n.ID)
	}
	if _, err := h.nominations.SetApproval(context.Background(), ids, true); err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
}

func (h *electionHarness) transition(t *testing.T, session Session, target Phase) Session {
	t.Helper()
	updated, err := h.lifecycle.Transition(context.Background(), session.ID, target)
	if err != nil {
		t.Fatalf("Transition(%s): %v", target, err)
	}
	return updated
}

func testVoter(email string) VoterInput {
	return VoterInput{
		FullName:         "Kim Voter",
		Email:            email,
		Gender:           GenderMale,
		Designation:      "Lecturer",
		WorkplaceAddress: "Busan",
	}
}

// election2025 is session "2025" with P1 (two approved candidates), P2
// (none approved) and P3 (one approved), open for voting.
type election2025 struct {
	session    Session
	p1, p2, p3 Position
	a, b, c    Nomination
	pending    Nomination
}

func seedElection2025(t *testing.T, h *electionHarness) election2025 {
	t.Helper()
	var e election2025
	e.session = h.createSession(t, "2025")
	e.p1 = h.createPosition(t, "President", 1)
	e.p2 = h.createPosition(t, "Vice President", 2)
	e.p3 = h.createPosition(t, "Treasurer", 3)
	e.a = h.nominate(t, "Candidate A", "a@example.org", e.p1)
	e.b = h.nominate(t, "Candidate B", "b@example.org", e.p1)
	e.pending = h.nominate(t, "Candidate P", "p@example.org", e.p2)
	e.c = h.nominate(t, "Candidate C", "c@example.org", e.p3)
	h.approve(t, e.a, e.b, e.c)
	e.session = h.transition(t, e.session, PhaseVotingOpen)
	return e
}
