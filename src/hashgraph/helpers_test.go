package hashgraph

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/eventgate/src/peers"
)

var (
	testClockMu sync.Mutex
	testClock   = time.Unix(1600000000, 0)
)

// newTestEvent creates an Event with a unique creation time so that no two
// test events share a hash.
func newTestEvent(creator peers.NodeID, birthRound int64, selfParent *Event, otherParents ...*Event) *Event {
	testClockMu.Lock()
	testClock = testClock.Add(time.Millisecond)
	created := testClock
	testClockMu.Unlock()

	var sp *EventDescriptor
	if selfParent != nil {
		d := selfParent.Descriptor()
		sp = &d
	}

	ops := []EventDescriptor{}
	for _, o := range otherParents {
		ops = append(ops, o.Descriptor())
	}

	e := NewEvent(creator, birthRound, sp, ops, created, [][]byte{[]byte("tx")}, nil)
	e.SetSenderID(creator)
	return e
}

type recordingCounter struct {
	entered map[peers.NodeID]int
	exited  map[peers.NodeID]int
}

func newRecordingCounter() *recordingCounter {
	return &recordingCounter{
		entered: make(map[peers.NodeID]int),
		exited:  make(map[peers.NodeID]int),
	}
}

func (c *recordingCounter) EventEnteredIntakePipeline(id peers.NodeID) {
	c.entered[id]++
}

func (c *recordingCounter) EventExitedIntakePipeline(id peers.NodeID) {
	c.exited[id]++
}

func (c *recordingCounter) totalExited() int {
	total := 0
	for _, n := range c.exited {
		total += n
	}
	return total
}
