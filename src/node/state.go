package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a node: Replaying, Running, Reconnecting, or
// Shutdown
type State uint32

const (
	// Replaying is the initial state, in which the node feeds the events of
	// its store to the intake stage and does not accept gossip.
	Replaying State = iota

	// Running is the state in which the node processes gossiped events and
	// creates its own.
	Running

	// Reconnecting is the state in which the node has fallen behind and waits
	// for the reconnect protocol to give it a new starting point.
	Reconnecting

	// Shutdown is the state in which the node stops processing anything.
	Shutdown
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Replaying:
		return "Replaying"
	case Running:
		return "Running"
	case Reconnecting:
		return "Reconnecting"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// stateManager wraps a State with get and set methods. It also keeps track of
// the node's goroutines so that Shutdown can wait for them.
type stateManager struct {
	state State
	wg    sync.WaitGroup
}

func (s *stateManager) getState() State {
	stateAddr := (*uint32)(&s.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (s *stateManager) setState(st State) {
	stateAddr := (*uint32)(&s.state)
	atomic.StoreUint32(stateAddr, uint32(st))
}

// goFunc launches a goroutine and adds it to the waitgroup.
func (s *stateManager) goFunc(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

func (s *stateManager) waitRoutines() {
	s.wg.Wait()
}
