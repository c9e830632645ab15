package peers

import (
	"fmt"
)

// Roster is a validated PeerSet seen from one of its members. It is immutable.
type Roster struct {
	selfID  NodeID
	peerSet *PeerSet
	others  []*Peer

	otherWeight int64
}

// NewRoster creates a Roster for selfID. It fails if the PeerSet is invalid or
// does not contain selfID.
func NewRoster(selfID NodeID, peerSet *PeerSet) (*Roster, error) {
	if peerSet == nil {
		return nil, fmt.Errorf("Roster requires a PeerSet")
	}

	if err := peerSet.Validate(); err != nil {
		return nil, err
	}

	if _, ok := peerSet.ByID[selfID]; !ok {
		return nil, fmt.Errorf("Self %s does not belong to the PeerSet", selfID)
	}

	_, others := ExcludePeer(peerSet.Peers, selfID)

	var otherWeight int64
	for _, p := range others {
		otherWeight += p.Weight
	}

	return &Roster{
		selfID:      selfID,
		peerSet:     peerSet,
		others:      others,
		otherWeight: otherWeight,
	}, nil
}

// SelfID returns the ID of the peer this Roster belongs to.
func (r *Roster) SelfID() NodeID {
	return r.selfID
}

// PeerSet returns the underlying PeerSet, including self.
func (r *Roster) PeerSet() *PeerSet {
	return r.peerSet
}

// Others returns every peer except self.
func (r *Roster) Others() []*Peer {
	return r.others
}

// OtherCount returns the number of peers, excluding self.
func (r *Roster) OtherCount() int {
	return len(r.others)
}

// OtherWeight returns the total weight of all the peers, excluding self.
func (r *Roster) OtherWeight() int64 {
	return r.otherWeight
}

// Contains returns true if id is a member of the Roster, self included.
func (r *Roster) Contains(id NodeID) bool {
	_, ok := r.peerSet.ByID[id]
	return ok
}

// WeightOf returns the weight of a member.
func (r *Roster) WeightOf(id NodeID) (int64, bool) {
	p, ok := r.peerSet.ByID[id]
	if !ok {
		return 0, false
	}
	return p.Weight, true
}
