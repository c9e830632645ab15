package store

import (
	"errors"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
)

// createTestEvents returns a chain of events from one creator, with birth
// rounds 1, 1, 2, 2, 3, 3...
func createTestEvents(n int) []*hashgraph.Event {
	res := make([]*hashgraph.Event, n)

	var sp *hashgraph.EventDescriptor
	for i := 0; i < n; i++ {
		e := hashgraph.NewEvent(peers.NodeID(7), int64(i/2+1), sp, nil,
			time.Unix(1600000000, int64(i)),
			[][]byte{[]byte("tx")}, nil)
		e.SetSenderID(peers.NodeID(9))
		e.SetTimeReceived(time.Unix(1600000001, int64(i)))
		d := e.Descriptor()
		sp = &d
		res[i] = e
	}

	return res
}

func replayAll(t *testing.T, s EventStore) []*hashgraph.Event {
	res := []*hashgraph.Event{}
	err := s.Replay(func(e *hashgraph.Event) error {
		res = append(res, e)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func checkReplay(t *testing.T, s EventStore, expected []*hashgraph.Event) {
	t.Helper()

	replayed := replayAll(t, s)
	if len(replayed) != len(expected) {
		t.Fatalf("should replay %d events, not %d", len(expected), len(replayed))
	}

	for i, e := range expected {
		r := replayed[i]
		if r.Hex() != e.Hex() {
			t.Fatalf("replayed[%d] should be %s, not %s", i, e.Hex(), r.Hex())
		}
		if r.Origin() != hashgraph.OriginStorage {
			t.Fatalf("replayed[%d] origin should be Storage, not %s", i, r.Origin())
		}
		if r.SenderID() != e.SenderID() {
			t.Fatalf("replayed[%d] sender should be %s, not %s", i, e.SenderID(), r.SenderID())
		}
		if !r.TimeReceived().Equal(e.TimeReceived()) {
			t.Fatalf("replayed[%d] time received should be %v, not %v", i, e.TimeReceived(), r.TimeReceived())
		}
		if r.NGen() != hashgraph.NGenUndefined {
			t.Fatalf("replayed[%d] NGen should be undefined", i)
		}
	}
}

func testEventStore(t *testing.T, s EventStore) {
	events := createTestEvents(10)

	for _, e := range events {
		if err := s.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	if s.Len() != 10 {
		t.Fatalf("store should contain 10 events, not %d", s.Len())
	}

	checkReplay(t, s, events)

	// birth rounds 1 and 2 are ancient
	pruned, err := s.Prune(3)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 4 {
		t.Fatalf("should prune 4 events, not %d", pruned)
	}
	if s.Len() != 6 {
		t.Fatalf("store should contain 6 events, not %d", s.Len())
	}

	checkReplay(t, s, events[4:])

	// pruning is idempotent
	pruned, err = s.Prune(3)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 0 {
		t.Fatalf("second prune should remove nothing, removed %d", pruned)
	}

	// Replay stops at the first error
	stop := errors.New("stop")
	count := 0
	err = s.Replay(func(e *hashgraph.Event) error {
		count++
		return stop
	})
	if err != stop {
		t.Fatalf("Replay should return the callback error, not %v", err)
	}
	if count != 1 {
		t.Fatalf("Replay should stop after the first event")
	}
}

func TestInmemEventStore(t *testing.T) {
	s := NewInmemEventStore()
	testEventStore(t, s)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(createTestEvents(1)[0]); !common.IsStore(err, common.Closed) {
		t.Fatalf("Append on a closed store should fail with Closed, not %v", err)
	}
}

func TestBadgerEventStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "eventgate-badger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	logger := common.NewTestEntry(t, logrus.InfoLevel)

	s, err := NewBadgerEventStore(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	testEventStore(t, s)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(createTestEvents(1)[0]); !common.IsStore(err, common.Closed) {
		t.Fatalf("Append on a closed store should fail with Closed, not %v", err)
	}
}

func TestBadgerEventStoreReopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "eventgate-badger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	logger := common.NewTestEntry(t, logrus.InfoLevel)
	events := createTestEvents(6)

	s, err := NewBadgerEventStore(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events[:4] {
		if err := s.Append(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewBadgerEventStore(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.Len() != 4 {
		t.Fatalf("reopened store should contain 4 events, not %d", s.Len())
	}

	// new events are appended after the old ones
	for _, e := range events[4:] {
		if err := s.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	checkReplay(t, s, events)
}

func TestBirthRoundKeyOrdering(t *testing.T) {
	a := birthRoundKey(2, 100)
	b := birthRoundKey(3, 1)
	if string(a) >= string(b) {
		t.Fatalf("keys should sort by birth round first")
	}

	round, seq := parseBirthRoundKey(b)
	if round != 3 || seq != 1 {
		t.Fatalf("parsed (%d, %d), expected (3, 1)", round, seq)
	}
}
