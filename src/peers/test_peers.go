package peers

import "fmt"

// NewTestPeers returns one peer per weight, with distinct synthetic public
// keys. It is used by tests and by the simulation.
func NewTestPeers(weights ...int64) []*Peer {
	res := make([]*Peer, len(weights))
	for i, w := range weights {
		res[i] = NewPeer(
			fmt.Sprintf("0X%08X%08X", i+1, 0xBAB1E),
			fmt.Sprintf("127.0.0.1:%d", 1337+i),
			fmt.Sprintf("peer%d", i),
			w)
	}
	return res
}

// NewTestRoster builds a Roster from NewTestPeers, from the point of view of
// the first peer.
func NewTestRoster(weights ...int64) (*Roster, []*Peer) {
	ps := NewTestPeers(weights...)
	r, err := NewRoster(ps[0].ID(), NewPeerSet(ps))
	if err != nil {
		panic(err)
	}
	return r, ps
}
