package sim

import (
	"context"
	"math/rand"
	"sync"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/peers"
)

// link carries the events of one node to another. Enqueueing never blocks, so
// that a node's intake goroutine can broadcast while the receiving node is
// busy.
type link struct {
	sync.Mutex

	from  peers.NodeID
	to    int
	queue []*hashgraph.Event

	signalCh chan struct{}
	rand     *rand.Rand
}

func newLink(from peers.NodeID, to int, seed int64) *link {
	return &link{
		from:     from,
		to:       to,
		signalCh: make(chan struct{}, 1),
		rand:     rand.New(rand.NewSource(seed)),
	}
}

func (l *link) enqueue(e *hashgraph.Event) {
	l.Lock()
	l.queue = append(l.queue, e)
	l.Unlock()

	select {
	case l.signalCh <- struct{}{}:
	default:
	}
}

// next waits for pending events and returns them in random order.
func (l *link) next(ctx context.Context) ([]*hashgraph.Event, error) {
	select {
	case <-l.signalCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.Lock()
	batch := l.queue
	l.queue = nil
	l.Unlock()

	l.rand.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})

	return batch, nil
}

// copyEvent gives the receiver its own Event, with a fresh NGen and origin.
// The body is shared and never modified.
func copyEvent(e *hashgraph.Event, sender peers.NodeID) *hashgraph.Event {
	c := &hashgraph.Event{Body: e.Body}
	c.SetSenderID(sender)
	return c
}
