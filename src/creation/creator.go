package creation

import (
	"time"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
)

// Creator builds new events once the Manager has decided that creation is
// permitted.
type Creator interface {
	// RegisterEvent tells the Creator about an event that was released by the
	// OrphanBuffer, including the events it created itself.
	RegisterEvent(event *hashgraph.Event)
	// SetEventWindow ...
	SetEventWindow(window hashgraph.EventWindow)
	// MaybeCreateEvent returns a new event, or nil if there is nothing worth
	// building on.
	MaybeCreateEvent() (*hashgraph.Event, error)
	// Clear forgets everything.
	Clear()
}

// SimpleCreator creates an event whenever a peer has produced an event newer
// than the one last used as other-parent. Peers are visited round-robin. A
// node without peers only builds on its own events.
type SimpleCreator struct {
	roster *peers.Roster
	pool   TransactionPool
	maxTx  int
	now    func() time.Time

	window hashgraph.EventWindow

	// latest released event of each creator
	tips map[peers.NodeID]*hashgraph.Event

	// tip of each peer last used as other-parent
	used map[peers.NodeID]hashgraph.EventDescriptor

	// round-robin position over the roster
	next int

	logger *logrus.Entry
}

// NewSimpleCreator creates a SimpleCreator. The maxTx argument limits the
// number of application transactions per event (non-positive means no limit).
// If now is nil, time.Now is used.
func NewSimpleCreator(roster *peers.Roster, pool TransactionPool, maxTx int, now func() time.Time, logger *logrus.Entry) *SimpleCreator {
	if now == nil {
		now = time.Now
	}

	c := &SimpleCreator{
		roster: roster,
		pool:   pool,
		maxTx:  maxTx,
		now:    now,
		logger: logger,
	}
	c.Clear()

	return c
}

// RegisterEvent implements Creator
func (c *SimpleCreator) RegisterEvent(event *hashgraph.Event) {
	if c.window.IsAncient(event.Descriptor()) {
		return
	}

	if tip, ok := c.tips[event.Creator()]; ok && tip.NGen() >= event.NGen() {
		// a branch or an older event, keep the current tip
		return
	}

	c.tips[event.Creator()] = event
}

// SetEventWindow implements Creator
func (c *SimpleCreator) SetEventWindow(window hashgraph.EventWindow) {
	c.window = window

	for id, tip := range c.tips {
		if window.IsAncient(tip.Descriptor()) {
			delete(c.tips, id)
		}
	}
	for id, d := range c.used {
		if window.IsAncient(d) {
			delete(c.used, id)
		}
	}
}

// MaybeCreateEvent implements Creator
func (c *SimpleCreator) MaybeCreateEvent() (*hashgraph.Event, error) {
	selfID := c.roster.SelfID()
	selfTip := c.tips[selfID]

	otherParents := []hashgraph.EventDescriptor{}
	if other := c.pickOtherParent(); other != nil {
		otherParents = append(otherParents, other.Descriptor())
	} else if selfTip != nil && c.roster.OtherCount() > 0 {
		return nil, nil
	}

	var selfParent *hashgraph.EventDescriptor
	created := c.now()
	if selfTip != nil {
		d := selfTip.Descriptor()
		selfParent = &d
		if !created.After(selfTip.TimeCreated()) {
			created = selfTip.TimeCreated().Add(time.Nanosecond)
		}
	}

	birthRound := c.window.NewEventBirthRound
	if birthRound < hashgraph.FirstRound {
		birthRound = hashgraph.FirstRound
	}

	txs, sigTxs := c.pool.GetTransactions(c.maxTx)

	event := hashgraph.NewEvent(selfID, birthRound, selfParent, otherParents, created, txs, sigTxs)
	event.SetSenderID(selfID)

	for _, p := range otherParents {
		c.used[p.Creator] = p
	}

	c.logger.WithFields(logrus.Fields{
		"birth_round":   birthRound,
		"other_parents": len(otherParents),
		"transactions":  len(txs),
	}).Debug("Created event")

	return event, nil
}

// Clear implements Creator
func (c *SimpleCreator) Clear() {
	c.window = hashgraph.GenesisEventWindow()
	c.tips = make(map[peers.NodeID]*hashgraph.Event)
	c.used = make(map[peers.NodeID]hashgraph.EventDescriptor)
	c.next = 0
}

// pickOtherParent returns the first tip, in round-robin order starting after
// the last chosen peer, that has not been used as other-parent yet.
func (c *SimpleCreator) pickOtherParent() *hashgraph.Event {
	others := c.roster.Others()
	for i := 0; i < len(others); i++ {
		idx := (c.next + i) % len(others)
		id := others[idx].ID()

		tip, ok := c.tips[id]
		if !ok {
			continue
		}
		if used, ok := c.used[id]; ok && used == tip.Descriptor() {
			continue
		}

		c.next = idx + 1
		return tip
	}
	return nil
}
