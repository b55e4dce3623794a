package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/example/election-manager/internal/application"
)

var nomineeCounter uint64

// ----------------------------- Nomination fixtures -----------------------------

// NominationOption configures a generated nomination form.
type NominationOption func(*application.NominationInput)

// NewNominationInput returns a valid nomination form with a unique email.
func NewNominationInput(opts ...NominationOption) application.NominationInput {
	idx := atomic.AddUint64(&nomineeCounter, 1)
	interested := true
	input := application.NominationInput{
		FullName:         fmt.Sprintf("Nominee %03d", idx),
		Email:            fmt.Sprintf("nominee-%03d@example.com", idx),
		PhoneNumber:      "010-1234-5678",
		Gender:           application.GenderFemale,
		Designation:      "Volunteer",
		WorkplaceAddress: "Seoul",
		Interested:       &interested,
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithNomineeName overrides the nominee's full name.
func WithNomineeName(name string) NominationOption {
	return func(input *application.NominationInput) {
		input.FullName = name
	}
}

// WithNomineeEmail overrides the nominee's email.
func WithNomineeEmail(email string) NominationOption {
	return func(input *application.NominationInput) {
		input.Email = email
	}
}

// ForPosition sets the desired position.
func ForPosition(positionID string) NominationOption {
	return func(input *application.NominationInput) {
		id := positionID
		input.DesiredPositionID = &id
	}
}

// ------------------------------- Voter fixtures -------------------------------

// NewVoterInput returns a valid ballot identity form for email.
func NewVoterInput(email string) application.VoterInput {
	return application.VoterInput{
		FullName:         "Park Voter",
		Email:            email,
		Gender:           application.GenderMale,
		Designation:      "Lecturer",
		WorkplaceAddress: "Busan",
	}
}

// ------------------------------ Harness helpers ------------------------------

// CreateSession opens a session for nominations.
func (h *ElectionHarness) CreateSession(tb testing.TB, name string) application.Session {
	tb.Helper()
	session, err := h.Services.Lifecycle.CreateSession(context.Background(), application.SessionInput{Name: name})
	if err != nil {
		tb.Fatalf("CreateSession(%q): %v", name, err)
	}
	return session
}

// CreatePosition adds a position to the ballot.
func (h *ElectionHarness) CreatePosition(tb testing.TB, name string, order int) application.Position {
	tb.Helper()
	position, err := h.Services.Catalog.CreatePosition(context.Background(), application.PositionInput{Name: name, Order: order})
	if err != nil {
		tb.Fatalf("CreatePosition(%q): %v", name, err)
	}
	return position
}

// Nominate submits a nomination for position.
func (h *ElectionHarness) Nominate(tb testing.TB, name string, position application.Position, opts ...NominationOption) application.Nomination {
	tb.Helper()
	opts = append([]NominationOption{WithNomineeName(name), ForPosition(position.ID)}, opts...)
	nomination, err := h.Services.Nominations.Submit(context.Background(), NewNominationInput(opts...))
	if err != nil {
		tb.Fatalf("Submit nomination %q: %v", name, err)
	}
	return nomination
}

// Approve marks nominations as candidates.
func (h *ElectionHarness) Approve(tb testing.TB, nominations ...application.Nomination) {
	tb.Helper()
	ids := make([]string, 0, len(nominations))
	for _, n := range nominations {
		ids = append(ids, n.ID)
	}
	if _, err := h.Services.Nominations.SetApproval(context.Background(), ids, true); err != nil {
		tb.Fatalf("SetApproval: %v", err)
	}
}

// Transition applies an administrator phase command.
func (h *ElectionHarness) Transition(tb testing.TB, sessionID string, phase application.Phase) application.Session {
	tb.Helper()
	session, err := h.Services.Lifecycle.Transition(context.Background(), sessionID, phase)
	if err != nil {
		tb.Fatalf("Transition(%s, %s): %v", sessionID, phase, err)
	}
	return session
}

// Election2025 is session "2025" with P1 holding two approved candidates, P2
// holding only an unapproved nomination and P3 holding one approved candidate.
type Election2025 struct {
	Session    application.Session
	P1, P2, P3 application.Position
	A, B, C    application.Nomination
	Pending    application.Nomination
}

// SeedElection2025 builds Election2025 and opens voting.
func (h *ElectionHarness) SeedElection2025(tb testing.TB) Election2025 {
	tb.Helper()
	var e Election2025
	e.Session = h.CreateSession(tb, "2025")
	e.P1 = h.CreatePosition(tb, "President", 1)
	e.P2 = h.CreatePosition(tb, "Vice President", 2)
	e.P3 = h.CreatePosition(tb, "Treasurer", 3)
	e.A = h.Nominate(tb, "Candidate A", e.P1)
	e.B = h.Nominate(tb, "Candidate B", e.P1)
	e.Pending = h.Nominate(tb, "Pending Nominee", e.P2)
	e.C = h.Nominate(tb, "Candidate C", e.P3)
	h.Approve(tb, e.A, e.B, e.C)
	e.Session = h.Transition(tb, e.Session.ID, application.PhaseVotingOpen)
	return e
}
