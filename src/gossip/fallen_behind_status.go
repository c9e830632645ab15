package gossip

import "github.com/mosaicnetworks/eventgate/src/hashgraph"

// FallenBehindStatus is the outcome of comparing the EventWindows of two
// nodes.
type FallenBehindStatus int

const (
	// NoneFallenBehind means the nodes can sync.
	NoneFallenBehind FallenBehindStatus = iota
	// SelfFallenBehind means the peer has already expired events that self
	// still needs.
	SelfFallenBehind
	// OtherFallenBehind means self has already expired events that the peer
	// still needs.
	OtherFallenBehind
)

// String ...
func (s FallenBehindStatus) String() string {
	switch s {
	case NoneFallenBehind:
		return "NoneFallenBehind"
	case SelfFallenBehind:
		return "SelfFallenBehind"
	case OtherFallenBehind:
		return "OtherFallenBehind"
	default:
		return "Unknown"
	}
}

// GetFallenBehindStatus compares the window of self with the window of
// another node.
func GetFallenBehindStatus(self, other hashgraph.EventWindow) FallenBehindStatus {
	if other.AncientThreshold < self.ExpiredThreshold {
		return OtherFallenBehind
	}
	if self.AncientThreshold < other.ExpiredThreshold {
		return SelfFallenBehind
	}
	return NoneFallenBehind
}
