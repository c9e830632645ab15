package peers

import (
	"io/ioutil"
	"os"
	"testing"
)

func TestRoster(t *testing.T) {
	ps := NewTestPeers(1, 2, 3, 4)

	r, err := NewRoster(ps[1].ID(), NewPeerSet(ps))
	if err != nil {
		t.Fatal(err)
	}

	if r.SelfID() != ps[1].ID() {
		t.Fatalf("wrong self")
	}
	if r.OtherCount() != 3 {
		t.Fatalf("should have 3 other peers, not %d", r.OtherCount())
	}
	if r.OtherWeight() != 8 {
		t.Fatalf("other weight should be 8, not %d", r.OtherWeight())
	}
	if r.PeerSet().TotalWeight() != 10 {
		t.Fatalf("total weight should be 10, not %d", r.PeerSet().TotalWeight())
	}
	for _, p := range r.Others() {
		if p.ID() == r.SelfID() {
			t.Fatalf("Others should not contain self")
		}
	}
	if w, ok := r.WeightOf(ps[3].ID()); !ok || w != 4 {
		t.Fatalf("weight of peer 3 should be 4, not %d", w)
	}
	if !r.Contains(r.SelfID()) {
		t.Fatalf("Contains should include self")
	}
}

func TestRosterValidation(t *testing.T) {
	ps := NewTestPeers(1, 1)

	if _, err := NewRoster(NodeID(12345), NewPeerSet(ps)); err == nil {
		t.Fatalf("a roster that does not contain self should be rejected")
	}

	dup := append(NewTestPeers(1, 1), NewTestPeers(1)...)
	if _, err := NewRoster(dup[0].ID(), NewPeerSet(dup)); err == nil {
		t.Fatalf("duplicate IDs should be rejected")
	}

	neg := NewTestPeers(1, -1)
	if _, err := NewRoster(neg[0].ID(), NewPeerSet(neg)); err == nil {
		t.Fatalf("negative weights should be rejected")
	}

	if _, err := NewRoster(ps[0].ID(), nil); err == nil {
		t.Fatalf("nil PeerSet should be rejected")
	}
}

func TestJSONPeerSet(t *testing.T) {
	// Create a test dir
	dir, err := ioutil.TempDir("", "eventgate")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	store := NewJSONPeerSet(dir)

	// Try a read, should get nothing
	if _, err := store.PeerSet(); err == nil {
		t.Fatalf("store.PeerSet() should generate an error")
	}

	ps := NewTestPeers(5, 6, 7)
	if err := store.Write(ps); err != nil {
		t.Fatalf("err: %v", err)
	}

	loaded, err := store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if loaded.Len() != 3 {
		t.Fatalf("should have 3 peers, not %d", loaded.Len())
	}
	for i, p := range loaded.Peers {
		if p.ID() != ps[i].ID() {
			t.Fatalf("peers[%d] ID should be %s, not %s", i, ps[i].ID(), p.ID())
		}
		if p.Weight != ps[i].Weight {
			t.Fatalf("peers[%d] Weight should be %d, not %d", i, ps[i].Weight, p.Weight)
		}
	}
}

func TestJSONPeerSetUnweighted(t *testing.T) {
	dir, err := ioutil.TempDir("", "eventgate")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	store := NewJSONPeerSet(dir)
	if err := store.Write(NewTestPeers(0, 0)); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.PeerSet()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TotalWeight() != 2 {
		t.Fatalf("unweighted peers should count for one each")
	}
}
