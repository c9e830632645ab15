package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// None of these should panic
	m.SetOrphanCount(3)
	m.EventsReleased(2)
	m.EventDropped("ancient")
	m.SetFallenBehind(true, 2)
	m.SetPeerSyncLag("peer0", 4)
	m.SetSyncLag(1.5)
	m.CreationAttempt("Idle")
	m.EventCreated()
	m.SetUnprocessedEvents(7)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetOrphanCount(5)
	m.EventsReleased(3)
	m.EventsReleased(0)
	m.EventDropped("duplicate")
	m.EventDropped("duplicate")
	m.SetFallenBehind(true, 2)
	m.SetPeerSyncLag("peer1", 4)
	m.CreationAttempt("RateLimited")

	if v := testutil.ToFloat64(m.OrphanCount); v != 5 {
		t.Fatalf("orphan count should be 5, not %v", v)
	}
	if v := testutil.ToFloat64(m.EventsReleasedCnt); v != 3 {
		t.Fatalf("released should be 3, not %v", v)
	}
	if v := testutil.ToFloat64(m.EventsDroppedCnt.WithLabelValues("duplicate")); v != 2 {
		t.Fatalf("duplicates should be 2, not %v", v)
	}
	if v := testutil.ToFloat64(m.FallenBehind); v != 1 {
		t.Fatalf("fallen behind should be 1, not %v", v)
	}
	if v := testutil.ToFloat64(m.FallenBehindReporters); v != 2 {
		t.Fatalf("reporters should be 2, not %v", v)
	}
	if v := testutil.ToFloat64(m.PeerSyncLag.WithLabelValues("peer1")); v != 4 {
		t.Fatalf("peer1 lag should be 4, not %v", v)
	}
	if v := testutil.ToFloat64(m.CreationStatus.WithLabelValues("RateLimited")); v != 1 {
		t.Fatalf("RateLimited attempts should be 1, not %v", v)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Fatalf("registry should contain the eventgate collectors")
	}
}
