package hashgraph

import (
	"reflect"
	"testing"
	"time"
)

func TestEventHash(t *testing.T) {
	p := newTestEvent(1, 1, nil)
	e := newTestEvent(1, 1, p)

	if p.Hex() == e.Hex() {
		t.Fatalf("different events should have different hashes")
	}

	clone := NewEvent(e.Creator(), e.BirthRound(), e.SelfParent(), e.OtherParents(),
		e.TimeCreated(), e.Transactions(), e.SignatureTransactions())
	if clone.Hex() != e.Hex() {
		t.Fatalf("identical bodies should have identical hashes")
	}
	if clone.Descriptor() != e.Descriptor() {
		t.Fatalf("identical bodies should have identical descriptors")
	}

	// local fields are not part of the identity
	clone.SetOrigin(OriginStorage)
	clone.SetTimeReceived(time.Now())
	if clone.Descriptor() != e.Descriptor() {
		t.Fatalf("local fields should not change the descriptor")
	}
}

func TestEventBodyMarshalling(t *testing.T) {
	p := newTestEvent(1, 1, nil)
	o := newTestEvent(2, 1, nil)
	e := newTestEvent(1, 2, p, o)

	raw, err := e.Body.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var body EventBody
	if err := body.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(body, e.Body) {
		t.Fatalf("unmarshalled body should be %#v, not %#v", e.Body, body)
	}
}

func TestEventParents(t *testing.T) {
	p := newTestEvent(1, 1, nil)
	o1 := newTestEvent(2, 1, nil)
	o2 := newTestEvent(3, 1, nil)
	e := newTestEvent(1, 1, p, o1, o2)

	parents := e.Parents()
	if len(parents) != 3 {
		t.Fatalf("should have 3 parents, not %d", len(parents))
	}
	if parents[0] != p.Descriptor() {
		t.Fatalf("self-parent should come first")
	}

	if len(p.Parents()) != 0 {
		t.Fatalf("first event should have no parents")
	}
}

func TestEventNGenIsSetOnce(t *testing.T) {
	e := newTestEvent(1, 1, nil)
	if e.NGen() != NGenUndefined {
		t.Fatalf("NGen should start undefined")
	}
	e.setNGen(4)
	e.setNGen(7)
	if e.NGen() != 4 {
		t.Fatalf("NGen should be 4, not %d", e.NGen())
	}
}
