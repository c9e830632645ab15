package creation

import (
	"time"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/sirupsen/logrus"
)

// Options holds the thresholds of the default rule chain.
type Options struct {
	// MaxSyncLag is the median round lag at which creation stops.
	MaxSyncLag int64
	// MaxCreationRate is in events per second. Non-positive means unlimited.
	MaxCreationRate float64
	// MaxUnhealthyDuration is how long the node may be unhealthy before
	// creation stops.
	MaxUnhealthyDuration time.Duration
	// Now is the clock used by the rate limit. Defaults to time.Now.
	Now func() time.Time
}

// Manager decides when to create events and feeds every event, local or not,
// through the OrphanBuffer.
//
// Manager is not safe for concurrent use. It is driven by the intake stage.
type Manager struct {
	creator      Creator
	orphanBuffer *hashgraph.OrphanBuffer
	rules        Rules

	platformStatus    PlatformStatus
	quiescenceCommand QuiescenceCommand
	unhealthyDuration time.Duration

	status EventCreationStatus

	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewManager creates a Manager with the default rule chain: platform status,
// quiescence, health, sync lag, then rate.
func NewManager(creator Creator,
	orphanBuffer *hashgraph.OrphanBuffer,
	pool TransactionPool,
	syncLag SyncLagSource,
	opts Options,
	m *metrics.Metrics,
	logger *logrus.Entry) *Manager {

	manager := &Manager{
		creator:        creator,
		orphanBuffer:   orphanBuffer,
		platformStatus: StartingUp,
		metrics:        m,
		logger:         logger,
	}

	manager.rules = Rules{
		NewPlatformStatusRule(manager.PlatformStatus, pool),
		NewQuiescenceRule(manager.QuiescenceCommand),
		NewHealthRule(manager.UnhealthyDuration, opts.MaxUnhealthyDuration),
		NewSyncLagRule(syncLag, opts.MaxSyncLag),
		NewMaximumRateRule(opts.MaxCreationRate, opts.Now),
	}

	return manager
}

// NewManagerWithRules creates a Manager that evaluates the given rules instead
// of the default chain.
func NewManagerWithRules(creator Creator,
	orphanBuffer *hashgraph.OrphanBuffer,
	rules Rules,
	m *metrics.Metrics,
	logger *logrus.Entry) *Manager {

	return &Manager{
		creator:        creator,
		orphanBuffer:   orphanBuffer,
		rules:          rules,
		platformStatus: StartingUp,
		metrics:        m,
		logger:         logger,
	}
}

// RegisterEvent passes an event through the OrphanBuffer and registers every
// event it releases with the Creator. It returns the released events.
func (m *Manager) RegisterEvent(event *hashgraph.Event) []*hashgraph.Event {
	released := m.orphanBuffer.HandleEvent(event)
	for _, e := range released {
		m.creator.RegisterEvent(e)
	}
	return released
}

// SetEventWindow updates the OrphanBuffer and the Creator. Events released by
// the OrphanBuffer are registered and returned.
func (m *Manager) SetEventWindow(window hashgraph.EventWindow) []*hashgraph.Event {
	released := m.orphanBuffer.SetEventWindow(window)
	m.creator.SetEventWindow(m.orphanBuffer.EventWindow())
	for _, e := range released {
		m.creator.RegisterEvent(e)
	}
	return released
}

// MaybeCreateEvent creates an event if the rules permit it and the Creator
// finds parents. The new event goes through the OrphanBuffer like any other,
// and is returned with the list of events this released.
func (m *Manager) MaybeCreateEvent() (*hashgraph.Event, []*hashgraph.Event, error) {
	if !m.rules.IsEventCreationPermitted() {
		m.setStatus(m.rules.EventCreationStatus())
		return nil, nil, nil
	}

	m.setStatus(AttemptingCreation)

	event, err := m.creator.MaybeCreateEvent()
	if err != nil {
		m.setStatus(Idle)
		return nil, nil, err
	}
	if event == nil {
		m.setStatus(NoEligibleParents)
		return nil, nil, nil
	}

	m.rules.EventWasCreated()

	if m.quiescenceCommand == BreakQuiesce {
		m.quiescenceCommand = DontQuiesce
	}

	event.SetOrigin(hashgraph.OriginLocal)
	event.SetTimeReceived(time.Now())

	released := m.RegisterEvent(event)

	m.metrics.EventCreated()
	m.setStatus(Idle)

	return event, released, nil
}

// UpdatePlatformStatus ...
func (m *Manager) UpdatePlatformStatus(status PlatformStatus) {
	if status != m.platformStatus {
		m.logger.WithFields(logrus.Fields{
			"from": m.platformStatus,
			"to":   status,
		}).Debug("Platform status")
	}
	m.platformStatus = status
}

// PlatformStatus ...
func (m *Manager) PlatformStatus() PlatformStatus {
	return m.platformStatus
}

// SetQuiescenceCommand ...
func (m *Manager) SetQuiescenceCommand(command QuiescenceCommand) {
	m.quiescenceCommand = command
}

// QuiescenceCommand ...
func (m *Manager) QuiescenceCommand() QuiescenceCommand {
	return m.quiescenceCommand
}

// ReportUnhealthyDuration records for how long the node has been unhealthy.
// Zero means healthy.
func (m *Manager) ReportUnhealthyDuration(d time.Duration) {
	m.unhealthyDuration = d
}

// UnhealthyDuration ...
func (m *Manager) UnhealthyDuration() time.Duration {
	return m.unhealthyDuration
}

// Status returns the outcome of the last creation attempt.
func (m *Manager) Status() EventCreationStatus {
	return m.status
}

// OrphanBuffer ...
func (m *Manager) OrphanBuffer() *hashgraph.OrphanBuffer {
	return m.orphanBuffer
}

// Clear resets the OrphanBuffer and the Creator, typically before a
// reconnect.
func (m *Manager) Clear() {
	m.orphanBuffer.Clear()
	m.creator.Clear()
	m.status = Idle
}

func (m *Manager) setStatus(status EventCreationStatus) {
	if status != AttemptingCreation && status != Idle {
		m.metrics.CreationAttempt(status.String())
	}
	if status != m.status {
		m.logger.WithFields(logrus.Fields{
			"from": m.status,
			"to":   status,
		}).Debug("Event creation status")
	}
	m.status = status
}
