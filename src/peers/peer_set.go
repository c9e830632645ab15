package peers

import (
	"fmt"
)

//PeerSet is a set of Peers forming a consensus network
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByID     map[NodeID]*Peer `json:"-"`

	//cached values
	totalWeight *int64
}

/* Constructors */

//NewPeerSet creates a new PeerSet from a list of Peers
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByPubKey: make(map[string]*Peer),
		ByID:     make(map[NodeID]*Peer),
	}

	for _, peer := range peers {
		peerSet.ByPubKey[peer.PubKeyString()] = peer
		peerSet.ByID[peer.ID()] = peer
	}

	peerSet.Peers = peers

	return peerSet
}

/* ToSlice Methods */

//IDs returns the PeerSet's slice of IDs
func (peerSet *PeerSet) IDs() []NodeID {
	res := []NodeID{}

	for _, peer := range peerSet.Peers {
		res = append(res, peer.ID())
	}

	return res
}

/* Utilities */

//Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByID)
}

//TotalWeight returns the sum of the weights of every peer
func (peerSet *PeerSet) TotalWeight() int64 {
	if peerSet.totalWeight == nil {
		var val int64
		for _, p := range peerSet.ByID {
			val += p.Weight
		}
		peerSet.totalWeight = &val
	}
	return *peerSet.totalWeight
}

// Validate checks that peer IDs and public keys are unique and that no weight
// is negative.
func (peerSet *PeerSet) Validate() error {
	if len(peerSet.ByID) != len(peerSet.Peers) {
		return fmt.Errorf("PeerSet contains duplicate IDs")
	}
	if len(peerSet.ByPubKey) != len(peerSet.Peers) {
		return fmt.Errorf("PeerSet contains duplicate public keys")
	}
	for _, p := range peerSet.Peers {
		if p.Weight < 0 {
			return fmt.Errorf("Peer %s has negative weight %d", p.ID(), p.Weight)
		}
	}
	return nil
}
