package testfixtures

import (
	"context"
	"testing"

	"github.com/example/election-manager/internal/application"
)

func TestNewNominationInputIsUniqueAndOverridable(t *testing.T) {
	first := NewNominationInput()
	second := NewNominationInput(WithNomineeEmail("chosen@example.com"), ForPosition("pos-1"))

	if first.Email == second.Email {
		t.Fatalf("expected distinct emails, both %q", first.Email)
	}
	if second.Email != "chosen@example.com" {
		t.Fatalf("email override ignored: %q", second.Email)
	}
	if second.DesiredPositionID == nil || *second.DesiredPositionID != "pos-1" {
		t.Fatalf("position override ignored: %v", second.DesiredPositionID)
	}
}

func TestSeedElection2025(t *testing.T) {
	h := NewElectionHarness(t)
	e := h.SeedElection2025(t)

	if e.Session.Phase != application.PhaseVotingOpen {
		t.Fatalf("session phase = %q, want voting open", e.Session.Phase)
	}
	if e.P1.Order >= e.P2.Order || e.P2.Order >= e.P3.Order {
		t.Fatalf("positions out of order: %d %d %d", e.P1.Order, e.P2.Order, e.P3.Order)
	}

	nominations, err := h.Services.Nominations.ListNominations(context.Background(), e.Session.ID)
	if err != nil {
		t.Fatalf("ListNominations: %v", err)
	}
	approved := 0
	for _, n := range nominations {
		if n.Approved {
			approved++
		}
	}
	if len(nominations) != 4 || approved != 3 {
		t.Fatalf("got %d nominations with %d approved, want 4 and 3", len(nominations), approved)
	}
}
