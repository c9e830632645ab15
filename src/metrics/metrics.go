// Package metrics exposes the prometheus instrumentation of the event intake
// and creation components. A nil *Metrics is valid and records nothing, so
// components can be used without a registry in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventgate"

// Metrics groups the collectors updated by the node's components.
type Metrics struct {
	OrphanCount       prometheus.Gauge
	EventsReleasedCnt prometheus.Counter
	EventsDroppedCnt  *prometheus.CounterVec

	FallenBehind          prometheus.Gauge
	FallenBehindReporters prometheus.Gauge

	PeerSyncLag *prometheus.GaugeVec
	SyncLag     prometheus.Gauge

	CreationStatus *prometheus.CounterVec
	EventsCreated  prometheus.Counter

	UnprocessedEvents prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. If reg is
// nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrphanCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphan_buffer_size",
			Help:      "Number of events waiting for their parents in the orphan buffer",
		}),
		EventsReleasedCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_released_total",
			Help:      "Number of events released by the orphan buffer",
		}),
		EventsDroppedCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Number of events dropped by the orphan buffer",
		}, []string{"reason"}),
		FallenBehind: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fallen_behind",
			Help:      "1 if this node has fallen behind its peers, 0 otherwise",
		}),
		FallenBehindReporters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fallen_behind_reporters",
			Help:      "Number of peers that reported this node as behind",
		}),
		PeerSyncLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_sync_round_lag",
			Help:      "Consensus round lag reported for each peer",
		}, []string{"peer"}),
		SyncLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_round_lag",
			Help:      "Weighted median of the peer round lags",
		}),
		CreationStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_creation_status_total",
			Help:      "Number of event creation attempts by resulting status",
		}, []string{"status"}),
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_created_total",
			Help:      "Number of events created by this node",
		}),
		UnprocessedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_unprocessed_events",
			Help:      "Number of events somewhere in the intake pipeline",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrphanCount,
			m.EventsReleasedCnt,
			m.EventsDroppedCnt,
			m.FallenBehind,
			m.FallenBehindReporters,
			m.PeerSyncLag,
			m.SyncLag,
			m.CreationStatus,
			m.EventsCreated,
			m.UnprocessedEvents,
		)
	}

	return m
}

// SetOrphanCount ...
func (m *Metrics) SetOrphanCount(n int) {
	if m == nil {
		return
	}
	m.OrphanCount.Set(float64(n))
}

// EventsReleased ...
func (m *Metrics) EventsReleased(n int) {
	if m == nil || n == 0 {
		return
	}
	m.EventsReleasedCnt.Add(float64(n))
}

// EventDropped ...
func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDroppedCnt.WithLabelValues(reason).Inc()
}

// SetFallenBehind records the fallen-behind flag and the number of reporters.
func (m *Metrics) SetFallenBehind(behind bool, reporters int) {
	if m == nil {
		return
	}
	v := 0.0
	if behind {
		v = 1
	}
	m.FallenBehind.Set(v)
	m.FallenBehindReporters.Set(float64(reporters))
}

// SetPeerSyncLag ...
func (m *Metrics) SetPeerSyncLag(peer string, lag int64) {
	if m == nil {
		return
	}
	m.PeerSyncLag.WithLabelValues(peer).Set(float64(lag))
}

// SetSyncLag ...
func (m *Metrics) SetSyncLag(lag float64) {
	if m == nil {
		return
	}
	m.SyncLag.Set(lag)
}

// CreationAttempt counts one creation attempt that ended in status.
func (m *Metrics) CreationAttempt(status string) {
	if m == nil {
		return
	}
	m.CreationStatus.WithLabelValues(status).Inc()
}

// EventCreated ...
func (m *Metrics) EventCreated() {
	if m == nil {
		return
	}
	m.EventsCreated.Inc()
}

// SetUnprocessedEvents ...
func (m *Metrics) SetUnprocessedEvents(n int64) {
	if m == nil {
		return
	}
	m.UnprocessedEvents.Set(float64(n))
}
