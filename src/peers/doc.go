// Package peers defines the participants of a consensus network and the
// weighted roster they form.
//
// A peer is identified by its public key, from which a numeric NodeID is
// derived, and optionaly a moniker which is a non-unique user-friendly name.
// Each peer carries a voting weight. A PeerSet is a plain collection of peers;
// a Roster is a PeerSet seen from the point of view of one of its members,
// which is how the gossip estimators consume it: they need the weight of every
// other peer, excluding self.
//
// Rosters are immutable. A change of membership or weights requires creating a
// new Roster, and new instances of the components that were built from the old
// one.
//
// Upon starting up, a node expects to find a peers.json file in its data
// directory, containing the list of peers with their weights.
package peers
