package hashgraph

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
)

// randomDAG builds a DAG of n events spread over the given number of creators.
// Each event has its creator's previous event as self-parent and up to two
// random earlier events as other-parents.
func randomDAG(r *rand.Rand, n, creators int) []*Event {
	events := make([]*Event, 0, n)
	last := make(map[peers.NodeID]*Event)

	for i := 0; i < n; i++ {
		creator := peers.NodeID(r.Intn(creators) + 1)

		others := []*Event{}
		for j := 0; j < 2 && len(events) > 0; j++ {
			if r.Intn(2) == 0 {
				others = append(others, events[r.Intn(len(events))])
			}
		}

		e := newTestEvent(creator, 1, last[creator], others...)
		last[creator] = e
		events = append(events, e)
	}

	return events
}

func TestOrphanBufferTopologicalOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	logger := common.NewTestEntry(t, logrus.WarnLevel)

	properties.Property("every event is released once, after its parents", prop.ForAll(
		func(seed int64, n int, creators int) bool {
			r := rand.New(rand.NewSource(seed))
			dag := randomDAG(r, n, creators)

			delivery := make([]*Event, len(dag))
			copy(delivery, dag)
			r.Shuffle(len(delivery), func(i, j int) {
				delivery[i], delivery[j] = delivery[j], delivery[i]
			})

			ob := NewOrphanBuffer(nil, nil, logger)

			position := make(map[EventDescriptor]int)
			for _, e := range delivery {
				for _, released := range ob.HandleEvent(e) {
					d := released.Descriptor()
					if _, ok := position[d]; ok {
						return false
					}
					for _, p := range released.Parents() {
						if _, ok := position[p]; !ok {
							return false
						}
					}
					position[d] = len(position)
				}
			}

			return len(position) == len(dag) && ob.OrphanCount() == 0
		},
		gen.Int64(),
		gen.IntRange(1, 60),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

// roundedDAG is like randomDAG but spreads the events over several birth
// rounds. An event is never born before its parents.
func roundedDAG(r *rand.Rand, n, creators int) []*Event {
	events := make([]*Event, 0, n)
	last := make(map[peers.NodeID]*Event)

	for i := 0; i < n; i++ {
		creator := peers.NodeID(r.Intn(creators) + 1)

		parents := []*Event{}
		if sp := last[creator]; sp != nil {
			parents = append(parents, sp)
		}
		others := []*Event{}
		for j := 0; j < 2 && len(events) > 0; j++ {
			if r.Intn(2) == 0 {
				o := events[r.Intn(len(events))]
				others = append(others, o)
				parents = append(parents, o)
			}
		}

		birthRound := FirstRound
		for _, p := range parents {
			if p.BirthRound() > birthRound {
				birthRound = p.BirthRound()
			}
		}
		birthRound += int64(r.Intn(2))

		e := newTestEvent(creator, birthRound, last[creator], others...)
		last[creator] = e
		events = append(events, e)
	}

	return events
}

func TestOrphanBufferWindowShifts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	logger := common.NewTestEntry(t, logrus.WarnLevel)

	properties.Property("shifting the window never re-emits, never emits ancient events and loses nothing", prop.ForAll(
		func(seed int64, n int, creators int) bool {
			r := rand.New(rand.NewSource(seed))
			dag := roundedDAG(r, n, creators)
			maxRound := FirstRound
			for _, e := range dag {
				if e.BirthRound() > maxRound {
					maxRound = e.BirthRound()
				}
			}

			// every event is delivered twice
			delivery := make([]*Event, 0, 2*len(dag))
			delivery = append(delivery, dag...)
			delivery = append(delivery, dag...)
			r.Shuffle(len(delivery), func(i, j int) {
				delivery[i], delivery[j] = delivery[j], delivery[i]
			})

			counter := newRecordingCounter()
			ob := NewOrphanBuffer(counter, nil, logger)

			emitted := make(map[EventDescriptor]struct{})
			emit := func(released []*Event) bool {
				w := ob.EventWindow()
				for _, e := range released {
					d := e.Descriptor()
					if _, ok := emitted[d]; ok {
						t.Logf("%s emitted twice", d)
						return false
					}
					if w.IsAncient(d) {
						t.Logf("%s emitted while ancient in %s", d, w)
						return false
					}
					for _, p := range e.Parents() {
						if _, ok := emitted[p]; !ok && !w.IsAncient(p) {
							t.Logf("%s emitted before its parent %s", d, p)
							return false
						}
					}
					emitted[d] = struct{}{}
				}
				return true
			}

			threshold := FirstRound
			shift := func() bool {
				threshold += int64(r.Intn(2))
				if threshold > maxRound+1 {
					threshold = maxRound + 1
				}
				w := EventWindow{
					LatestConsensusRound: threshold + 2,
					NewEventBirthRound:   threshold + 3,
					AncientThreshold:     threshold,
					ExpiredThreshold:     threshold,
				}

				before := ob.OrphanCount()
				if !emit(ob.SetEventWindow(w)) {
					return false
				}
				if ob.OrphanCount() > before {
					t.Logf("orphans went from %d to %d", before, ob.OrphanCount())
					return false
				}

				// the same window again changes nothing
				before = ob.OrphanCount()
				return len(ob.SetEventWindow(w)) == 0 && ob.OrphanCount() == before
			}

			for _, e := range delivery {
				if !emit(ob.HandleEvent(e)) {
					return false
				}
				if r.Intn(4) == 0 && !shift() {
					return false
				}
			}

			submitted := len(delivery)
			accounted := len(emitted) + counter.totalExited() + ob.OrphanCount()
			if accounted != submitted {
				t.Logf("emitted %d + exited %d + buffered %d != submitted %d",
					len(emitted), counter.totalExited(), ob.OrphanCount(), submitted)
				return false
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 60),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
