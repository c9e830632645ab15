package node

import (
	"context"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
)

// Consumer receives the events released by the intake stage, in topological
// order. It is typically the consensus engine.
type Consumer interface {
	ConsumeEvents(events []*hashgraph.Event)
}

// Broadcaster sends the events created by this node to its peers.
type Broadcaster interface {
	Broadcast(event *hashgraph.Event)
}

// Reconnector is the gossip side of the reconnect protocol. Once the node has
// fallen behind, PauseGossip is called, and the gossip layer must call
// FallenBehindMonitor.NotifySyncProtocolPaused when it has stopped. Reconnect
// then obtains a recent state from a peer and returns the EventWindow the node
// should restart from.
type Reconnector interface {
	PauseGossip()
	Reconnect(ctx context.Context) (hashgraph.EventWindow, error)
	ResumeGossip()
}
