package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("vote")

	first := gen.Next()
	second := gen.Next()

	if first != "vote-001" || second != "vote-002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("Issued = %d, want 2", gen.Issued())
	}
}

func TestIDGeneratorDefaultPrefix(t *testing.T) {
	if got := NewIDGenerator("").Next(); got != "id-001" {
		t.Fatalf("expected id-001, got %q", got)
	}
	var nilGen *IDGenerator
	if got := nilGen.NextFunc()(); got != "" {
		t.Fatalf("nil generator yielded %q", got)
	}
}
