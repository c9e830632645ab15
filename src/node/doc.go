// Package node runs the intake stage of a peer.
//
// A Node owns the event creation Manager, and with it the OrphanBuffer, on a
// single goroutine. Gossiped events, event windows from the consensus engine,
// platform status changes, and sync reports from the gossip layer all reach
// that goroutine through channels, so none of the underlying components need
// to be safe for concurrent use.
//
// Lifecycle
//
// A Node starts in the Replaying state, in which the events of its EventStore
// go through the OrphanBuffer again and are handed to the Consumer. It then
// enters the Running state: a heartbeat prompts the Manager to create events,
// which are passed to the Broadcaster, and gossiped events are persisted as
// they are released.
//
// Reconnect
//
// When enough peers report that this node is too far behind, the Node enters
// the Reconnecting state. Event creation stops, the Reconnector pauses gossip
// and obtains a new EventWindow from a peer, and the intake stage is cleared
// and restarted from that window.
package node
