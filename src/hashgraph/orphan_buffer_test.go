package hashgraph

import (
	"testing"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/sirupsen/logrus"
)

func initOrphanBuffer(t *testing.T) (*OrphanBuffer, *recordingCounter) {
	counter := newRecordingCounter()
	ob := NewOrphanBuffer(counter, nil, common.NewTestEntry(t, logrus.DebugLevel))
	return ob, counter
}

func checkReleased(t *testing.T, released []*Event, expected ...*Event) {
	t.Helper()
	if len(released) != len(expected) {
		t.Fatalf("should release %d events, not %d", len(expected), len(released))
	}
	for i, e := range expected {
		if released[i].Descriptor() != e.Descriptor() {
			t.Fatalf("released[%d] should be %s, not %s", i, e, released[i])
		}
	}
}

func TestOrphanBufferReleasesParentFirst(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	p := newTestEvent(1, 1, nil)
	e2 := newTestEvent(1, 1, p)

	checkReleased(t, ob.HandleEvent(e2))
	if ob.OrphanCount() != 1 {
		t.Fatalf("orphan count should be 1, not %d", ob.OrphanCount())
	}

	checkReleased(t, ob.HandleEvent(p), p, e2)
	if ob.OrphanCount() != 0 {
		t.Fatalf("orphan count should be 0, not %d", ob.OrphanCount())
	}

	if p.NGen() != FirstNGen {
		t.Fatalf("p NGen should be %d, not %d", FirstNGen, p.NGen())
	}
	if e2.NGen() != FirstNGen+1 {
		t.Fatalf("e2 NGen should be %d, not %d", FirstNGen+1, e2.NGen())
	}
}

func TestOrphanBufferMultipleParents(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	a := newTestEvent(1, 1, nil)
	b := newTestEvent(2, 1, nil)
	b2 := newTestEvent(2, 1, b)
	e := newTestEvent(1, 1, a, b2)

	checkReleased(t, ob.HandleEvent(e))
	checkReleased(t, ob.HandleEvent(b2))
	checkReleased(t, ob.HandleEvent(a), a)
	checkReleased(t, ob.HandleEvent(b), b, b2, e)

	if e.NGen() != 3 {
		t.Fatalf("e NGen should be 3, not %d", e.NGen())
	}
	if ob.OrphanCount() != 0 {
		t.Fatalf("orphan count should be 0, not %d", ob.OrphanCount())
	}
}

func TestOrphanBufferDuplicates(t *testing.T) {
	ob, counter := initOrphanBuffer(t)

	p := newTestEvent(1, 1, nil)
	e2 := newTestEvent(1, 1, p)

	checkReleased(t, ob.HandleEvent(e2))
	// duplicate of a buffered orphan
	checkReleased(t, ob.HandleEvent(e2))
	if ob.OrphanCount() != 1 {
		t.Fatalf("duplicate orphan should not be counted, count is %d", ob.OrphanCount())
	}
	if counter.exited[1] != 1 {
		t.Fatalf("duplicate should exit the intake pipeline")
	}

	checkReleased(t, ob.HandleEvent(p), p, e2)

	// duplicates of released events
	checkReleased(t, ob.HandleEvent(p))
	checkReleased(t, ob.HandleEvent(e2))
	if counter.exited[1] != 3 {
		t.Fatalf("3 duplicates should have exited, not %d", counter.exited[1])
	}
}

func TestOrphanBufferAncientEvent(t *testing.T) {
	ob, counter := initOrphanBuffer(t)

	w, _ := NewEventWindow(6, 7, 5, 3)
	checkReleased(t, ob.SetEventWindow(w))

	e := newTestEvent(2, 3, nil)
	checkReleased(t, ob.HandleEvent(e))

	if counter.exited[2] != 1 {
		t.Fatalf("ancient event should exit the intake pipeline")
	}
	if ob.OrphanCount() != 0 {
		t.Fatalf("ancient event should not be buffered")
	}
}

func TestOrphanBufferAncientParentIsResolved(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	w, _ := NewEventWindow(6, 7, 5, 3)
	ob.SetEventWindow(w)

	old := newTestEvent(1, 2, nil)
	e := newTestEvent(1, 5, old)

	checkReleased(t, ob.HandleEvent(e), e)
	if e.NGen() != FirstNGen {
		t.Fatalf("e NGen should be %d, not %d", FirstNGen, e.NGen())
	}
}

func TestOrphanBufferParentAgesOut(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	p := newTestEvent(1, 2, nil)
	e := newTestEvent(1, 5, p)

	checkReleased(t, ob.HandleEvent(e))

	w, _ := NewEventWindow(3, 4, 3, 1)
	checkReleased(t, ob.SetEventWindow(w), e)
	if e.NGen() != FirstNGen {
		t.Fatalf("e NGen should be %d, not %d", FirstNGen, e.NGen())
	}
	if ob.OrphanCount() != 0 {
		t.Fatalf("orphan count should be 0, not %d", ob.OrphanCount())
	}

	// the late parent is now ancient and must be dropped
	checkReleased(t, ob.HandleEvent(p))
}

func TestOrphanBufferOrphanBecomesAncient(t *testing.T) {
	ob, counter := initOrphanBuffer(t)

	p := newTestEvent(1, 2, nil)
	e := newTestEvent(1, 2, p)

	checkReleased(t, ob.HandleEvent(e))

	w, _ := NewEventWindow(3, 4, 3, 1)
	checkReleased(t, ob.SetEventWindow(w))

	if ob.OrphanCount() != 0 {
		t.Fatalf("orphan count should be 0, not %d", ob.OrphanCount())
	}
	if counter.exited[1] != 1 {
		t.Fatalf("ancient orphan should exit the intake pipeline")
	}
}

func TestOrphanBufferIgnoresRegressingWindow(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	w, _ := NewEventWindow(10, 11, 8, 5)
	ob.SetEventWindow(w)

	older, _ := NewEventWindow(7, 8, 4, 2)
	checkReleased(t, ob.SetEventWindow(older))

	if ob.EventWindow() != w {
		t.Fatalf("window should still be %s, not %s", w, ob.EventWindow())
	}
}

func TestOrphanBufferDeepChain(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	const depth = 20000

	chain := make([]*Event, depth)
	chain[0] = newTestEvent(1, 1, nil)
	for i := 1; i < depth; i++ {
		chain[i] = newTestEvent(1, 1, chain[i-1])
	}

	for i := depth - 1; i > 0; i-- {
		checkReleased(t, ob.HandleEvent(chain[i]))
	}
	if ob.OrphanCount() != depth-1 {
		t.Fatalf("orphan count should be %d, not %d", depth-1, ob.OrphanCount())
	}

	released := ob.HandleEvent(chain[0])
	checkReleased(t, released, chain...)

	if chain[depth-1].NGen() != depth {
		t.Fatalf("last NGen should be %d, not %d", depth, chain[depth-1].NGen())
	}
}

func TestOrphanBufferClear(t *testing.T) {
	ob, _ := initOrphanBuffer(t)

	w, _ := NewEventWindow(10, 11, 8, 5)
	ob.SetEventWindow(w)

	p := newTestEvent(1, 9, nil)
	e := newTestEvent(1, 9, p)
	ob.HandleEvent(e)

	ob.Clear()

	if ob.OrphanCount() != 0 {
		t.Fatalf("orphan count should be 0 after Clear")
	}
	if ob.EventWindow() != GenesisEventWindow() {
		t.Fatalf("Clear should reset the window to genesis")
	}

	// events from before the window are accepted again
	low := newTestEvent(2, 1, nil)
	checkReleased(t, ob.HandleEvent(low), low)

	// and the cleared orphan is forgotten
	checkReleased(t, ob.HandleEvent(p), p)
}
