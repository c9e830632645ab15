package gossip

import (
	"sync"

	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
)

// EventCounter counts, per peer, the events that were received through gossip
// and have not left the intake pipeline yet. Gossip goroutines increment it and
// the intake stage decrements it, so it is safe for concurrent use.
type EventCounter struct {
	sync.Mutex

	counts  map[peers.NodeID]int64
	total   int64
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewEventCounter ...
func NewEventCounter(m *metrics.Metrics, logger *logrus.Entry) *EventCounter {
	return &EventCounter{
		counts:  make(map[peers.NodeID]int64),
		metrics: m,
		logger:  logger,
	}
}

// EventEnteredIntakePipeline implements hashgraph.IntakeEventCounter
func (c *EventCounter) EventEnteredIntakePipeline(sender peers.NodeID) {
	c.Lock()
	defer c.Unlock()

	c.counts[sender]++
	c.total++
	c.metrics.SetUnprocessedEvents(c.total)
}

// EventExitedIntakePipeline implements hashgraph.IntakeEventCounter
func (c *EventCounter) EventExitedIntakePipeline(sender peers.NodeID) {
	c.Lock()
	defer c.Unlock()

	n := c.counts[sender]
	if n <= 0 {
		c.logger.WithField("peer", sender).Error("Event exited the intake pipeline without entering it")
		return
	}

	if n == 1 {
		delete(c.counts, sender)
	} else {
		c.counts[sender] = n - 1
	}
	c.total--
	c.metrics.SetUnprocessedEvents(c.total)
}

// HasUnprocessedEvents returns true if events from the peer are still being
// processed.
func (c *EventCounter) HasUnprocessedEvents(sender peers.NodeID) bool {
	c.Lock()
	defer c.Unlock()
	return c.counts[sender] > 0
}

// Total returns the number of events in the pipeline, across all peers.
func (c *EventCounter) Total() int64 {
	c.Lock()
	defer c.Unlock()
	return c.total
}

// Reset forgets every count.
func (c *EventCounter) Reset() {
	c.Lock()
	defer c.Unlock()

	c.counts = make(map[peers.NodeID]int64)
	c.total = 0
	c.metrics.SetUnprocessedEvents(0)
}
