package gossip

import (
	"fmt"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/peers"
)

// SyncProgress is what a peer tells us about its own progress at the end of a
// sync.
type SyncProgress struct {
	Peer   peers.NodeID
	Window hashgraph.EventWindow
}

// RoundLag returns how many consensus rounds self is behind the peer. It is
// negative when self is ahead.
func (sp SyncProgress) RoundLag(self hashgraph.EventWindow) int64 {
	return sp.Window.LatestConsensusRound - self.LatestConsensusRound
}

// String ...
func (sp SyncProgress) String() string {
	return fmt.Sprintf("SyncProgress{peer=%s, %s}", sp.Peer, sp.Window)
}
