package gossip

import (
	"fmt"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/mosaicnetworks/eventgate/src/peers"
)

// WeightAndLag is the latest round lag reported by a peer, along with the
// peer's weight.
type WeightAndLag struct {
	Weight int64
	Lag    int64
}

// SyncLagCalculator estimates how far behind the network this node is, as the
// weighted median of the round lags observed in syncs with each peer. Peers
// that have not synced yet count as not lagging.
//
// SyncLagCalculator is not safe for concurrent use.
type SyncLagCalculator struct {
	roster  *peers.Roster
	lags    map[peers.NodeID]*WeightAndLag
	metrics *metrics.Metrics
}

// NewSyncLagCalculator creates a SyncLagCalculator for every peer of the
// roster except self. The metrics argument may be nil.
func NewSyncLagCalculator(roster *peers.Roster, m *metrics.Metrics) *SyncLagCalculator {
	lags := make(map[peers.NodeID]*WeightAndLag, roster.OtherCount())
	for _, p := range roster.Others() {
		lags[p.ID()] = &WeightAndLag{Weight: p.Weight}
	}

	return &SyncLagCalculator{
		roster:  roster,
		lags:    lags,
		metrics: m,
	}
}

// ReportSyncLag overwrites the lag of a peer. It panics if the id is self or
// is not part of the roster.
func (c *SyncLagCalculator) ReportSyncLag(id peers.NodeID, roundDiff int64) {
	if id == c.roster.SelfID() {
		panic(fmt.Sprintf("Cannot report sync lag for self (%s)", id))
	}

	wl, ok := c.lags[id]
	if !ok {
		panic(fmt.Sprintf("Cannot report sync lag for unknown peer %s", id))
	}

	wl.Lag = roundDiff
	c.metrics.SetPeerSyncLag(id.String(), roundDiff)
}

// SyncRoundLag returns the weighted median of the peer lags, never less
// than 0. It is 0 when the peers carry no weight.
func (c *SyncLagCalculator) SyncRoundLag() float64 {
	values := make([]common.WeightedValue, 0, len(c.lags))
	for _, p := range c.roster.Others() {
		wl := c.lags[p.ID()]
		values = append(values, common.WeightedValue{
			Weight: wl.Weight,
			Value:  float64(wl.Lag),
		})
	}

	median := common.WeightedMedian(values)
	if median < 0 {
		median = 0
	}

	c.metrics.SetSyncLag(median)

	return median
}

// Lag returns the last lag reported by a peer.
func (c *SyncLagCalculator) Lag(id peers.NodeID) (WeightAndLag, bool) {
	wl, ok := c.lags[id]
	if !ok {
		return WeightAndLag{}, false
	}
	return *wl, true
}

// Reset sets every peer's lag back to 0.
func (c *SyncLagCalculator) Reset() {
	for id, wl := range c.lags {
		wl.Lag = 0
		c.metrics.SetPeerSyncLag(id.String(), 0)
	}
}
