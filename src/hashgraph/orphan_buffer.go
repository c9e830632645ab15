package hashgraph

import (
	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/sirupsen/logrus"
)

// OrphanedEvent is an Event that is waiting for some of its parents.
type OrphanedEvent struct {
	Event          *Event
	missingParents map[EventDescriptor]struct{}
}

// MissingParents returns the number of parents the event is still waiting for.
func (o *OrphanedEvent) MissingParents() int {
	return len(o.missingParents)
}

// OrphanBuffer takes Events in any order and releases them in topological
// order: an Event is only released once all its non-ancient parents have been
// released. Ancient parents are considered resolved. Events that are, or
// become, ancient are dropped.
//
// OrphanBuffer also assigns the NGen of every Event it releases.
//
// OrphanBuffer is not safe for concurrent use. It is meant to be driven by a
// single goroutine.
type OrphanBuffer struct {
	eventWindow EventWindow

	// currentOrphanCount counts the events that have entered the buffer and
	// have not been released or dropped yet.
	currentOrphanCount int

	// eventsWithParents contains the non-ancient events that have already been
	// released.
	eventsWithParents *common.SequenceMap[EventDescriptor, *Event]

	// missingParentMap maps a missing parent to the orphans waiting for it.
	missingParentMap *common.SequenceMap[EventDescriptor, []*OrphanedEvent]

	// orphans indexes the buffered orphans by their own descriptor.
	orphans *common.SequenceMap[EventDescriptor, *OrphanedEvent]

	intakeEventCounter IntakeEventCounter
	metrics            *metrics.Metrics
	logger             *logrus.Entry
}

// NewOrphanBuffer creates an empty OrphanBuffer with the genesis EventWindow.
// The metrics argument may be nil.
func NewOrphanBuffer(intakeEventCounter IntakeEventCounter, m *metrics.Metrics, logger *logrus.Entry) *OrphanBuffer {
	if intakeEventCounter == nil {
		intakeEventCounter = NoOpIntakeEventCounter{}
	}

	ob := &OrphanBuffer{
		intakeEventCounter: intakeEventCounter,
		metrics:            m,
		logger:             logger,
	}

	ob.reset()

	return ob
}

func (ob *OrphanBuffer) reset() {
	ob.eventWindow = GenesisEventWindow()
	ob.currentOrphanCount = 0

	floor := ob.eventWindow.AncientThreshold
	ob.eventsWithParents = common.NewSequenceMap[EventDescriptor, *Event]("EventsWithParents", floor, birthRoundOf)
	ob.missingParentMap = common.NewSequenceMap[EventDescriptor, []*OrphanedEvent]("MissingParents", floor, birthRoundOf)
	ob.orphans = common.NewSequenceMap[EventDescriptor, *OrphanedEvent]("Orphans", floor, birthRoundOf)

	ob.metrics.SetOrphanCount(0)
}

// EventWindow returns the current EventWindow.
func (ob *OrphanBuffer) EventWindow() EventWindow {
	return ob.eventWindow
}

// OrphanCount returns the number of events in the buffer that have not been
// released or dropped yet.
func (ob *OrphanBuffer) OrphanCount() int {
	return ob.currentOrphanCount
}

// HandleEvent adds an Event to the buffer and returns the Events that it
// unblocked, in topological order. The list is empty if the Event is missing
// parents, if it is ancient, or if it is a duplicate.
func (ob *OrphanBuffer) HandleEvent(event *Event) []*Event {
	d := event.Descriptor()

	if ob.eventWindow.IsAncient(d) {
		ob.drop(event, "ancient")
		return nil
	}

	if ob.eventsWithParents.Contains(d) || ob.orphans.Contains(d) {
		ob.drop(event, "duplicate")
		return nil
	}

	ob.currentOrphanCount++

	missingParents := ob.missingParents(event)
	if len(missingParents) == 0 {
		return ob.eventIsNotAnOrphan(event)
	}

	orphan := &OrphanedEvent{
		Event:          event,
		missingParents: make(map[EventDescriptor]struct{}, len(missingParents)),
	}
	for _, p := range missingParents {
		orphan.missingParents[p] = struct{}{}
	}

	put(ob.logger, ob.orphans, d, orphan)
	for _, p := range missingParents {
		waiting, _ := ob.missingParentMap.Get(p)
		put(ob.logger, ob.missingParentMap, p, append(waiting, orphan))
	}

	ob.metrics.SetOrphanCount(ob.currentOrphanCount)

	return nil
}

// SetEventWindow moves the ancientness horizon forward. Resolved events that
// became ancient are forgotten, and orphans whose missing parents all became
// ancient are released. The released Events are returned in topological order.
// A window whose ancient threshold is lower than the current one is ignored.
func (ob *OrphanBuffer) SetEventWindow(eventWindow EventWindow) []*Event {
	if eventWindow.AncientThreshold < ob.eventWindow.AncientThreshold {
		ob.logger.WithFields(logrus.Fields{
			"current": ob.eventWindow.AncientThreshold,
			"new":     eventWindow.AncientThreshold,
		}).Warn("Ignoring EventWindow that moves backwards")
		return nil
	}

	ob.eventWindow = eventWindow
	threshold := eventWindow.AncientThreshold

	ob.eventsWithParents.ShiftWindow(threshold)
	ob.orphans.ShiftWindow(threshold)

	// Collect first, then cascade, so that the maps are not modified while
	// they are being shifted.
	ancientParents := ob.missingParentMap.ShiftWindow(threshold)

	unorphaned := []*Event{}
	for _, entry := range ancientParents {
		for _, orphan := range entry.Value {
			delete(orphan.missingParents, entry.Key)
			if len(orphan.missingParents) == 0 {
				unorphaned = append(unorphaned, ob.eventIsNotAnOrphan(orphan.Event)...)
			}
		}
	}

	ob.metrics.SetOrphanCount(ob.currentOrphanCount)

	ob.logger.WithFields(logrus.Fields{
		"ancient_threshold": threshold,
		"ancient_parents":   len(ancientParents),
		"released":          len(unorphaned),
		"orphans":           ob.currentOrphanCount,
	}).Debug("SetEventWindow")

	return unorphaned
}

// Clear discards every buffered event and resets the buffer to the genesis
// EventWindow.
func (ob *OrphanBuffer) Clear() {
	ob.reset()
}

// missingParents returns the declared parents that are neither released nor
// ancient, in declaration order and without duplicates.
func (ob *OrphanBuffer) missingParents(event *Event) []EventDescriptor {
	res := []EventDescriptor{}
	seen := make(map[EventDescriptor]struct{})

	for _, p := range event.Parents() {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		if ob.eventWindow.IsAncient(p) || ob.eventsWithParents.Contains(p) {
			continue
		}
		res = append(res, p)
	}

	return res
}

// eventIsNotAnOrphan releases an Event whose parents are all resolved, and
// every orphan that this unblocks, transitively. It uses an explicit stack
// rather than recursion because parent chains can be arbitrarily deep.
func (ob *OrphanBuffer) eventIsNotAnOrphan(event *Event) []*Event {
	unorphaned := []*Event{}

	stack := []*Event{event}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ob.currentOrphanCount--

		d := current.Descriptor()
		ob.orphans.Remove(d)

		if ob.eventWindow.IsAncient(d) {
			// The event became ancient while it was waiting.
			ob.drop(current, "ancient")
			continue
		}

		unorphaned = append(unorphaned, current)
		put(ob.logger, ob.eventsWithParents, d, current)
		current.setNGen(ob.nGen(current))

		children, _ := ob.missingParentMap.Remove(d)
		for _, child := range children {
			delete(child.missingParents, d)
			if len(child.missingParents) == 0 {
				stack = append(stack, child.Event)
			}
		}
	}

	ob.metrics.EventsReleased(len(unorphaned))
	ob.metrics.SetOrphanCount(ob.currentOrphanCount)

	return unorphaned
}

// nGen is one more than the highest NGen among the parents that are known
// locally.
func (ob *OrphanBuffer) nGen(event *Event) int64 {
	max := FirstNGen - 1
	for _, p := range event.Parents() {
		parent, ok := ob.eventsWithParents.Get(p)
		if ok && parent.NGen() > max {
			max = parent.NGen()
		}
	}
	return max + 1
}

// drop discards an event. Only gossiped events are tracked by the intake
// counter.
func (ob *OrphanBuffer) drop(event *Event, reason string) {
	if event.Origin() == OriginGossip {
		ob.intakeEventCounter.EventExitedIntakePipeline(event.SenderID())
	}
	ob.metrics.EventDropped(reason)
}

// put inserts into one of the windowed maps. Callers check ancientness first,
// so an error here means the window and the maps disagree.
func put[V any](logger *logrus.Entry, m *common.SequenceMap[EventDescriptor, V], d EventDescriptor, v V) {
	if err := m.Put(d, v); err != nil {
		logger.WithError(err).WithField("event", d).Error("Inserting below the window floor")
	}
}
