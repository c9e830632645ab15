package hashgraph

import "github.com/mosaicnetworks/eventgate/src/peers"

// IntakeEventCounter keeps track of events that are somewhere in the intake
// pipeline. Components that drop an event must report its exit so that the
// peer who sent it is not considered to have events in flight forever.
type IntakeEventCounter interface {
	EventEnteredIntakePipeline(sender peers.NodeID)
	EventExitedIntakePipeline(sender peers.NodeID)
}

// NoOpIntakeEventCounter ignores every notification.
type NoOpIntakeEventCounter struct{}

// EventEnteredIntakePipeline ...
func (NoOpIntakeEventCounter) EventEnteredIntakePipeline(peers.NodeID) {}

// EventExitedIntakePipeline ...
func (NoOpIntakeEventCounter) EventExitedIntakePipeline(peers.NodeID) {}
