package peers

import (
	"fmt"
	"strings"

	"github.com/mosaicnetworks/eventgate/src/common"
)

// NodeID is the numeric identifier of a peer, derived from its public key.
type NodeID uint32

// String ...
func (id NodeID) String() string {
	return fmt.Sprintf("%d", uint32(id))
}

// Peer is a participant in the network.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string
	Weight    int64

	id NodeID
}

// NewPeer creates a new peer based on a public key, a network address, a
// moniker, and a weight.
func NewPeer(pubKeyHex, netAddr, moniker string, weight int64) *Peer {
	peer := &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
		Weight:    weight,
	}
	return peer
}

// ID returns an ID for the peer, calculating a hash is one is not available.
func (p *Peer) ID() NodeID {
	if p.id == 0 {
		p.id = NodeID(common.Hash32(p.PubKeyBytes()))
	}
	return p.id
}

// PubKeyString returns the upper-case version of PubKeyHex. It is used for
// indexing in maps with string keys.
func (p *Peer) PubKeyString() string {
	return strings.ToUpper(p.PubKeyHex)
}

// PubKeyBytes converts the hex string representation to a byte slice. A key
// that is not valid hex is hashed as is.
func (p *Peer) PubKeyBytes() []byte {
	if len(p.PubKeyHex) > 2 {
		if b, err := common.DecodeFromString(p.PubKeyHex); err == nil {
			return b
		}
	}
	return []byte(p.PubKeyHex)
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, peer NodeID) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.ID() != peer {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
