package gossip

import (
	"sync"
	"testing"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var _ hashgraph.IntakeEventCounter = (*EventCounter)(nil)

func TestEventCounter(t *testing.T) {
	c := NewEventCounter(nil, common.NewTestEntry(t, logrus.DebugLevel))

	a, b := peers.NodeID(1), peers.NodeID(2)

	c.EventEnteredIntakePipeline(a)
	c.EventEnteredIntakePipeline(a)
	c.EventEnteredIntakePipeline(b)

	assert.True(t, c.HasUnprocessedEvents(a))
	assert.Equal(t, int64(3), c.Total())

	c.EventExitedIntakePipeline(a)
	c.EventExitedIntakePipeline(b)
	assert.True(t, c.HasUnprocessedEvents(a))
	assert.False(t, c.HasUnprocessedEvents(b))

	// an unmatched exit is logged and ignored
	c.EventExitedIntakePipeline(b)
	assert.Equal(t, int64(1), c.Total())

	c.Reset()
	assert.False(t, c.HasUnprocessedEvents(a))
	assert.Equal(t, int64(0), c.Total())
}

func TestEventCounterConcurrent(t *testing.T) {
	c := NewEventCounter(nil, common.NewTestEntry(t, logrus.InfoLevel))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id peers.NodeID) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.EventEnteredIntakePipeline(id)
			}
			for j := 0; j < 100; j++ {
				c.EventExitedIntakePipeline(id)
			}
		}(peers.NodeID(i))
	}
	wg.Wait()

	assert.Equal(t, int64(0), c.Total())
}
