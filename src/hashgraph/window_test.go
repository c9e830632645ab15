package hashgraph

import "testing"

func TestGenesisEventWindow(t *testing.T) {
	w := GenesisEventWindow()
	if w.LatestConsensusRound != 0 || w.NewEventBirthRound != 1 || w.AncientThreshold != 1 || w.ExpiredThreshold != 1 {
		t.Fatalf("unexpected genesis window %s", w)
	}
	if w.IsAncientRound(1) {
		t.Fatalf("round 1 should not be ancient in genesis window")
	}
	if !w.IsAncientRound(0) {
		t.Fatalf("round 0 should be ancient")
	}
}

func TestNewEventWindow(t *testing.T) {
	if _, err := NewEventWindow(10, 11, 5, 3); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
	if _, err := NewEventWindow(10, 11, 12, 3); err == nil {
		t.Fatalf("ancient threshold above birth round should be rejected")
	}
	if _, err := NewEventWindow(10, 11, 5, 6); err == nil {
		t.Fatalf("expired threshold above ancient threshold should be rejected")
	}
}

func TestIsAncient(t *testing.T) {
	w, _ := NewEventWindow(10, 11, 5, 3)
	if !w.IsAncient(EventDescriptor{BirthRound: 4}) {
		t.Fatalf("birth round 4 should be ancient")
	}
	if w.IsAncient(EventDescriptor{BirthRound: 5}) {
		t.Fatalf("birth round 5 should not be ancient")
	}
}
