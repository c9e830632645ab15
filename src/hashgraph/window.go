package hashgraph

import "fmt"

// FirstRound is the birth round of genesis events.
const FirstRound int64 = 1

// EventWindow is the ancientness horizon at a point in time. Events whose
// birth round is below AncientThreshold are ancient and must never be
// processed again. Events below ExpiredThreshold can be forgotten entirely,
// even by components that keep ancient data around for a while.
type EventWindow struct {
	LatestConsensusRound int64
	NewEventBirthRound   int64
	AncientThreshold     int64
	ExpiredThreshold     int64
}

// GenesisEventWindow is the window used before any round reaches consensus.
func GenesisEventWindow() EventWindow {
	return EventWindow{
		LatestConsensusRound: FirstRound - 1,
		NewEventBirthRound:   FirstRound,
		AncientThreshold:     FirstRound,
		ExpiredThreshold:     FirstRound,
	}
}

// NewEventWindow creates an EventWindow and checks that its thresholds are
// consistent: ExpiredThreshold <= AncientThreshold <= NewEventBirthRound.
func NewEventWindow(latestConsensusRound, newEventBirthRound, ancientThreshold, expiredThreshold int64) (EventWindow, error) {
	w := EventWindow{
		LatestConsensusRound: latestConsensusRound,
		NewEventBirthRound:   newEventBirthRound,
		AncientThreshold:     ancientThreshold,
		ExpiredThreshold:     expiredThreshold,
	}
	if ancientThreshold > newEventBirthRound {
		return w, fmt.Errorf("Ancient threshold %d is above new event birth round %d", ancientThreshold, newEventBirthRound)
	}
	if expiredThreshold > ancientThreshold {
		return w, fmt.Errorf("Expired threshold %d is above ancient threshold %d", expiredThreshold, ancientThreshold)
	}
	return w, nil
}

// IsAncient returns true if an Event with this descriptor is ancient.
func (w EventWindow) IsAncient(d EventDescriptor) bool {
	return w.IsAncientRound(d.BirthRound)
}

// IsAncientRound returns true if events born in this round are ancient.
func (w EventWindow) IsAncientRound(birthRound int64) bool {
	return birthRound < w.AncientThreshold
}

// String ...
func (w EventWindow) String() string {
	return fmt.Sprintf("EventWindow{latestConsensusRound=%d, newEventBirthRound=%d, ancient=%d, expired=%d}",
		w.LatestConsensusRound, w.NewEventBirthRound, w.AncientThreshold, w.ExpiredThreshold)
}
