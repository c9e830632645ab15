// Package store persists the events released by the intake stage so that a
// restarted node can replay them before it starts gossiping.
package store

import (
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
)

// EventStore is an append-only log of released events.
type EventStore interface {
	// Append adds an event at the end of the log.
	Append(event *hashgraph.Event) error
	// Replay calls fn on every event, in the order they were appended. The
	// events carry OriginStorage. Replay stops at the first error returned by
	// fn.
	Replay(fn func(*hashgraph.Event) error) error
	// Prune removes the events born before ancientThreshold and returns how
	// many were removed.
	Prune(ancientThreshold int64) (int, error)
	// Len returns the number of events in the log.
	Len() int
	// Close ...
	Close() error
}
