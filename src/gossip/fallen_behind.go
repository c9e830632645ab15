package gossip

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
)

// FallenBehindMonitor collects the reports of peers that consider this node
// too far behind to sync with. Once the reporters carry enough weight the
// node is declared behind, and it stays so until Reset is called, typically
// after a successful reconnect.
//
// It is safe for concurrent use: every gossip connection reports into it while
// the reconnect controller waits on it.
type FallenBehindMonitor struct {
	sync.Mutex

	roster    *peers.Roster
	threshold float64

	reported       map[peers.NodeID]struct{}
	reportedWeight int64
	behind         bool

	// fallenBehindCh is closed when the node transitions to behind. Reset
	// replaces it.
	fallenBehindCh chan struct{}

	// gossipPausedCh holds at most one pending notification.
	gossipPausedCh chan struct{}

	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewFallenBehindMonitor creates a FallenBehindMonitor. The threshold is the
// fraction of the other peers' weight that must be exceeded by the reporters.
func NewFallenBehindMonitor(roster *peers.Roster, threshold float64, m *metrics.Metrics, logger *logrus.Entry) *FallenBehindMonitor {
	return &FallenBehindMonitor{
		roster:         roster,
		threshold:      threshold,
		reported:       make(map[peers.NodeID]struct{}),
		fallenBehindCh: make(chan struct{}),
		gossipPausedCh: make(chan struct{}, 1),
		metrics:        m,
		logger:         logger,
	}
}

// Report records that a peer told us we are behind.
func (m *FallenBehindMonitor) Report(id peers.NodeID) {
	m.Lock()
	defer m.Unlock()

	w, ok := m.otherWeight(id)
	if !ok {
		m.logger.WithField("peer", id).Warn("Ignoring fallen behind report from unknown peer")
		return
	}

	if _, ok := m.reported[id]; ok {
		return
	}

	m.reported[id] = struct{}{}
	m.reportedWeight += w

	if !m.behind && m.thresholdReached() {
		m.behind = true
		close(m.fallenBehindCh)
		m.logger.WithFields(logrus.Fields{
			"reporters":       len(m.reported),
			"reported_weight": m.reportedWeight,
			"peer_weight":     m.roster.OtherWeight(),
		}).Info("Fallen behind")
	}

	m.metrics.SetFallenBehind(m.behind, len(m.reported))
}

// Clear records that a peer no longer considers us behind. It does not reset
// the behind flag.
func (m *FallenBehindMonitor) Clear(id peers.NodeID) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.reported[id]; !ok {
		return
	}

	w, _ := m.otherWeight(id)
	delete(m.reported, id)
	m.reportedWeight -= w

	m.metrics.SetFallenBehind(m.behind, len(m.reported))
}

// Reset forgets every report and the behind flag.
func (m *FallenBehindMonitor) Reset() {
	m.Lock()
	defer m.Unlock()

	m.reported = make(map[peers.NodeID]struct{})
	m.reportedWeight = 0

	if m.behind {
		m.behind = false
		m.fallenBehindCh = make(chan struct{})
	}

	m.metrics.SetFallenBehind(false, 0)
}

// HasFallenBehind ...
func (m *FallenBehindMonitor) HasFallenBehind() bool {
	m.Lock()
	defer m.Unlock()
	return m.behind
}

// IsBehindPeer returns true if the peer currently reports us as behind.
func (m *FallenBehindMonitor) IsBehindPeer(id peers.NodeID) bool {
	m.Lock()
	defer m.Unlock()
	_, ok := m.reported[id]
	return ok
}

// ReportedCount returns the number of peers currently reporting us as behind.
func (m *FallenBehindMonitor) ReportedCount() int {
	m.Lock()
	defer m.Unlock()
	return len(m.reported)
}

// AwaitFallenBehind blocks until the node has fallen behind or ctx is done,
// in which case it returns ctx.Err().
func (m *FallenBehindMonitor) AwaitFallenBehind(ctx context.Context) error {
	m.Lock()
	ch := m.fallenBehindCh
	m.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Check compares the windows of self and a peer and reports or clears the
// peer accordingly.
func (m *FallenBehindMonitor) Check(self, peer hashgraph.EventWindow, id peers.NodeID) FallenBehindStatus {
	status := GetFallenBehindStatus(self, peer)
	if status == SelfFallenBehind {
		m.Report(id)
	} else {
		m.Clear(id)
	}
	return status
}

// NotifySyncProtocolPaused signals that gossip has stopped. A notification
// sent while nobody waits is kept until the next AwaitGossipPaused. Repeated
// notifications collapse into one.
func (m *FallenBehindMonitor) NotifySyncProtocolPaused() {
	select {
	case m.gossipPausedCh <- struct{}{}:
	default:
	}
}

// AwaitGossipPaused blocks until NotifySyncProtocolPaused is called, or until
// ctx is done. It consumes the notification. It is meant for a single waiter.
func (m *FallenBehindMonitor) AwaitGossipPaused(ctx context.Context) error {
	select {
	case <-m.gossipPausedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// thresholdReached requires the lock. The unanimous clause lets a threshold
// of 1 be reached.
func (m *FallenBehindMonitor) thresholdReached() bool {
	others := m.roster.OtherCount()
	if float64(m.reportedWeight) > m.threshold*float64(m.roster.OtherWeight()) {
		return true
	}
	return others > 0 && len(m.reported) == others
}

func (m *FallenBehindMonitor) otherWeight(id peers.NodeID) (int64, bool) {
	if id == m.roster.SelfID() {
		return 0, false
	}
	return m.roster.WeightOf(id)
}
