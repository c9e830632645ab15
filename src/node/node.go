package node

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mosaicnetworks/eventgate/src/config"
	"github.com/mosaicnetworks/eventgate/src/creation"
	"github.com/mosaicnetworks/eventgate/src/gossip"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/mosaicnetworks/eventgate/src/store"
	"github.com/sirupsen/logrus"
)

// reconnectRetryDelay is the pause between two failed reconnect attempts.
const reconnectRetryDelay = time.Second

// reconnected carries the outcome of a reconnect to the intake goroutine,
// which closes done once it has restarted from the new window.
type reconnected struct {
	window hashgraph.EventWindow
	done   chan struct{}
}

// Node runs the intake stage of a peer. A single goroutine owns the Manager,
// and therefore the OrphanBuffer and the SyncLagCalculator. Every input,
// gossiped events, event windows, status changes, and heartbeats, is passed to
// it through a channel.
type Node struct {
	stateManager

	conf   *config.Config
	logger *logrus.Entry
	roster *peers.Roster

	manager *creation.Manager
	syncLag *gossip.SyncLagCalculator
	monitor *gossip.FallenBehindMonitor
	counter *gossip.EventCounter

	store       store.EventStore
	consumer    Consumer
	broadcaster Broadcaster
	reconnector Reconnector
	metrics     *metrics.Metrics

	controlTimer *ControlTimer

	eventCh        chan *hashgraph.Event
	windowCh       chan hashgraph.EventWindow
	statusCh       chan creation.PlatformStatus
	quiescenceCh   chan creation.QuiescenceCommand
	unhealthyCh    chan time.Duration
	syncProgressCh chan gossip.SyncProgress
	reconnectedCh  chan reconnected
	statsCh        chan chan map[string]string

	// owned by the intake goroutine
	window            hashgraph.EventWindow
	reportedUnhealthy time.Duration
	backlogSince      time.Time
	start             time.Time
	createdEvents     int
	releasedEvents    int
	reconnects        int
}

// NewNode creates a Node. The consumer, broadcaster, and reconnector may be
// nil. The metrics may be nil.
func NewNode(conf *config.Config,
	roster *peers.Roster,
	pool creation.TransactionPool,
	eventStore store.EventStore,
	consumer Consumer,
	broadcaster Broadcaster,
	reconnector Reconnector,
	m *metrics.Metrics,
) *Node {

	logger := conf.Logger().WithField("this_id", roster.SelfID())

	counter := gossip.NewEventCounter(m, logger.WithField("component", "event-counter"))
	syncLag := gossip.NewSyncLagCalculator(roster, m)
	monitor := gossip.NewFallenBehindMonitor(roster,
		conf.FallenBehindThreshold,
		m,
		logger.WithField("component", "fallen-behind"))

	orphanBuffer := hashgraph.NewOrphanBuffer(counter, m, logger.WithField("component", "orphan-buffer"))

	creator := creation.NewSimpleCreator(roster,
		pool,
		conf.MaxTransactions,
		nil,
		logger.WithField("component", "creator"))

	manager := creation.NewManager(creator,
		orphanBuffer,
		pool,
		syncLag,
		conf.CreationOptions(),
		m,
		logger.WithField("component", "creation"))

	node := Node{
		conf:           conf,
		logger:         logger,
		roster:         roster,
		manager:        manager,
		syncLag:        syncLag,
		monitor:        monitor,
		counter:        counter,
		store:          eventStore,
		consumer:       consumer,
		broadcaster:    broadcaster,
		reconnector:    reconnector,
		metrics:        m,
		controlTimer:   NewFixedControlTimer(),
		eventCh:        make(chan *hashgraph.Event, conf.IntakeBuffer),
		windowCh:       make(chan hashgraph.EventWindow),
		statusCh:       make(chan creation.PlatformStatus),
		quiescenceCh:   make(chan creation.QuiescenceCommand),
		unhealthyCh:    make(chan time.Duration),
		syncProgressCh: make(chan gossip.SyncProgress),
		reconnectedCh:  make(chan reconnected),
		statsCh:        make(chan chan map[string]string),
		window:         hashgraph.GenesisEventWindow(),
	}

	return &node
}

// ID returns the ID of this node.
func (n *Node) ID() peers.NodeID {
	return n.roster.SelfID()
}

// FallenBehindMonitor is exposed to the gossip layer, which reports the peers
// that consider this node behind and notifies when gossip is paused.
func (n *Node) FallenBehindMonitor() *gossip.FallenBehindMonitor {
	return n.monitor
}

// EventCounter ...
func (n *Node) EventCounter() *gossip.EventCounter {
	return n.counter
}

// Run replays the event store, then processes inputs until ctx is done. It
// returns an error only if the replay fails.
func (n *Node) Run(ctx context.Context) error {
	n.start = time.Now()

	if err := n.replay(); err != nil {
		n.setState(Shutdown)
		return err
	}

	n.setState(Running)
	n.manager.UpdatePlatformStatus(creation.Active)

	n.goFunc(func() { n.controlTimer.Run(ctx, n.conf.HeartbeatTimeout) })
	n.goFunc(func() { n.reconnectLoop(ctx) })

	n.intakeLoop(ctx)

	n.setState(Shutdown)
	n.waitRoutines()

	n.logger.Debug("Node stopped")

	return nil
}

// RunAsync runs the node in a goroutine.
func (n *Node) RunAsync(ctx context.Context) {
	go func() {
		if err := n.Run(ctx); err != nil {
			n.logger.WithError(err).Error("Node failed")
		}
	}()
}

// replay feeds the stored events to the Manager. They are not stored again.
func (n *Node) replay() error {
	if n.store == nil {
		return nil
	}

	n.setState(Replaying)
	n.manager.UpdatePlatformStatus(creation.ReplayingEvents)

	count := 0
	err := n.store.Replay(func(e *hashgraph.Event) error {
		count++
		n.processReleased(n.manager.RegisterEvent(e), false)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replaying event store: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"events":  count,
		"orphans": n.manager.OrphanBuffer().OrphanCount(),
	}).Info("Replayed event store")

	return nil
}

func (n *Node) intakeLoop(ctx context.Context) {
	for {
		select {
		case e := <-n.eventCh:
			n.processReleased(n.manager.RegisterEvent(e), true)
		case w := <-n.windowCh:
			n.setEventWindow(w)
		case s := <-n.statusCh:
			n.manager.UpdatePlatformStatus(s)
		case c := <-n.quiescenceCh:
			n.manager.SetQuiescenceCommand(c)
		case d := <-n.unhealthyCh:
			n.reportedUnhealthy = d
		case sp := <-n.syncProgressCh:
			n.processSyncProgress(sp)
		case r := <-n.reconnectedCh:
			n.reset(r.window)
			close(r.done)
		case ch := <-n.statsCh:
			ch <- n.stats()
		case <-n.controlTimer.tickCh:
			n.heartbeat()
			n.controlTimer.Reset(ctx, n.conf.HeartbeatTimeout)
		case <-ctx.Done():
			return
		}
	}
}

// heartbeat updates the health of the node and tries to create an event.
func (n *Node) heartbeat() {
	n.manager.ReportUnhealthyDuration(n.unhealthyDuration())

	if n.getState() != Running {
		return
	}

	event, released, err := n.manager.MaybeCreateEvent()
	if err != nil {
		n.logger.WithError(err).Error("Creating event")
		return
	}
	if event == nil {
		return
	}

	n.createdEvents++

	if n.broadcaster != nil {
		n.broadcaster.Broadcast(event)
	}

	n.processReleased(released, true)
}

// unhealthyDuration is the longest of the externally reported duration and
// the time the intake buffer has been full.
func (n *Node) unhealthyDuration() time.Duration {
	d := n.reportedUnhealthy

	if cap(n.eventCh) == 0 || len(n.eventCh) < cap(n.eventCh) {
		n.backlogSince = time.Time{}
		return d
	}

	if n.backlogSince.IsZero() {
		n.backlogSince = time.Now()
	}
	if backlog := time.Since(n.backlogSince); backlog > d {
		d = backlog
	}
	return d
}

// processReleased persists the released events and hands them downstream.
// Events read back from the store are never appended again.
func (n *Node) processReleased(released []*hashgraph.Event, persist bool) {
	if len(released) == 0 {
		return
	}

	for _, e := range released {
		if persist && n.store != nil && e.Origin() != hashgraph.OriginStorage {
			if err := n.store.Append(e); err != nil {
				n.logger.WithError(err).WithField("event", e.Descriptor()).Error("Storing event")
			}
		}
		if e.Origin() == hashgraph.OriginGossip {
			n.counter.EventExitedIntakePipeline(e.SenderID())
		}
	}

	n.releasedEvents += len(released)

	if n.consumer != nil {
		n.consumer.ConsumeEvents(released)
	}
}

func (n *Node) setEventWindow(w hashgraph.EventWindow) {
	n.processReleased(n.manager.SetEventWindow(w), true)
	n.window = n.manager.OrphanBuffer().EventWindow()

	if n.store != nil {
		if _, err := n.store.Prune(n.window.ExpiredThreshold); err != nil {
			n.logger.WithError(err).Error("Pruning event store")
		}
	}
}

func (n *Node) processSyncProgress(sp gossip.SyncProgress) {
	if sp.Peer == n.roster.SelfID() || !n.roster.Contains(sp.Peer) {
		n.logger.WithField("peer", sp.Peer).Warn("Ignoring sync progress from unknown peer")
		return
	}

	n.syncLag.ReportSyncLag(sp.Peer, sp.RoundLag(n.window))
	n.monitor.Check(n.window, sp.Window, sp.Peer)
}

// reset restarts the intake stage from the window obtained by a reconnect.
// Events that were waiting in the intake buffer are discarded.
func (n *Node) reset(w hashgraph.EventWindow) {
	n.manager.Clear()
	n.syncLag.Reset()

drain:
	for {
		select {
		case <-n.eventCh:
		default:
			break drain
		}
	}
	n.counter.Reset()
	n.monitor.Reset()

	n.setEventWindow(w)
	n.manager.UpdatePlatformStatus(creation.ReconnectComplete)

	n.reconnects++
	n.setState(Running)

	n.logger.WithField("window", w).Info("Reconnect complete")
}

// reconnectLoop waits until the node has fallen behind, then runs the
// reconnect protocol.
func (n *Node) reconnectLoop(ctx context.Context) {
	for {
		if err := n.monitor.AwaitFallenBehind(ctx); err != nil {
			return
		}

		n.logger.Warn("Fallen behind")
		n.setState(Reconnecting)

		if err := send(ctx, n.statusCh, creation.Behind); err != nil {
			return
		}

		if n.reconnector == nil {
			n.logger.Error("Fallen behind but there is no Reconnector")
			<-ctx.Done()
			return
		}

		n.reconnector.PauseGossip()
		if err := n.monitor.AwaitGossipPaused(ctx); err != nil {
			return
		}

		window, err := n.reconnect(ctx)
		if err != nil {
			return
		}

		r := reconnected{window: window, done: make(chan struct{})}
		if err := send(ctx, n.reconnectedCh, r); err != nil {
			return
		}
		select {
		case <-r.done:
		case <-ctx.Done():
			return
		}

		n.reconnector.ResumeGossip()
	}
}

// reconnect calls the Reconnector until it returns a window. Gossip stays
// paused between attempts. The error is only ever the one of ctx.
func (n *Node) reconnect(ctx context.Context) (hashgraph.EventWindow, error) {
	for {
		window, err := n.reconnector.Reconnect(ctx)
		if err == nil {
			return window, nil
		}
		if ctx.Err() != nil {
			return hashgraph.EventWindow{}, ctx.Err()
		}

		n.logger.WithError(err).Error("Reconnect failed")

		select {
		case <-time.After(reconnectRetryDelay):
		case <-ctx.Done():
			return hashgraph.EventWindow{}, ctx.Err()
		}
	}
}

/*******************************************************************************
Inputs
*******************************************************************************/

// SubmitEvent passes an event received from a peer to the intake stage. It
// blocks while the intake buffer is full.
func (n *Node) SubmitEvent(ctx context.Context, event *hashgraph.Event) error {
	if n.getState() == Shutdown {
		return fmt.Errorf("Node is shut down")
	}

	event.SetOrigin(hashgraph.OriginGossip)
	event.SetTimeReceived(time.Now())
	n.counter.EventEnteredIntakePipeline(event.SenderID())

	select {
	case n.eventCh <- event:
		return nil
	case <-ctx.Done():
		n.counter.EventExitedIntakePipeline(event.SenderID())
		return ctx.Err()
	}
}

// SetEventWindow is called by the consensus engine after each round.
func (n *Node) SetEventWindow(ctx context.Context, w hashgraph.EventWindow) error {
	return send(ctx, n.windowCh, w)
}

// UpdatePlatformStatus ...
func (n *Node) UpdatePlatformStatus(ctx context.Context, s creation.PlatformStatus) error {
	return send(ctx, n.statusCh, s)
}

// SetQuiescenceCommand ...
func (n *Node) SetQuiescenceCommand(ctx context.Context, c creation.QuiescenceCommand) error {
	return send(ctx, n.quiescenceCh, c)
}

// ReportUnhealthyDuration ...
func (n *Node) ReportUnhealthyDuration(ctx context.Context, d time.Duration) error {
	return send(ctx, n.unhealthyCh, d)
}

// SubmitSyncProgress is called by the gossip layer at the end of a sync with a
// peer.
func (n *Node) SubmitSyncProgress(ctx context.Context, sp gossip.SyncProgress) error {
	return send(ctx, n.syncProgressCh, sp)
}

func send[T any](ctx context.Context, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

/*******************************************************************************
Stats
*******************************************************************************/

// GetStats returns a snapshot of the intake stage.
func (n *Node) GetStats(ctx context.Context) (map[string]string, error) {
	ch := make(chan map[string]string, 1)
	if err := send(ctx, n.statsCh, ch); err != nil {
		return nil, err
	}
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Node) stats() map[string]string {
	storedEvents := "0"
	if n.store != nil {
		storedEvents = strconv.Itoa(n.store.Len())
	}

	s := map[string]string{
		"id":                     n.roster.SelfID().String(),
		"state":                  n.getState().String(),
		"platform_status":        n.manager.PlatformStatus().String(),
		"creation_status":        n.manager.Status().String(),
		"quiescence":             n.manager.QuiescenceCommand().String(),
		"orphans":                strconv.Itoa(n.manager.OrphanBuffer().OrphanCount()),
		"sync_lag":               strconv.FormatFloat(n.syncLag.SyncRoundLag(), 'f', 2, 64),
		"fallen_behind":          strconv.FormatBool(n.monitor.HasFallenBehind()),
		"fallen_behind_reports":  strconv.Itoa(n.monitor.ReportedCount()),
		"unprocessed_events":     strconv.FormatInt(n.counter.Total(), 10),
		"stored_events":          storedEvents,
		"latest_consensus_round": strconv.FormatInt(n.window.LatestConsensusRound, 10),
		"ancient_threshold":      strconv.FormatInt(n.window.AncientThreshold, 10),
		"created_events":         strconv.Itoa(n.createdEvents),
		"released_events":        strconv.Itoa(n.releasedEvents),
		"reconnects":             strconv.Itoa(n.reconnects),
		"num_peers":              strconv.Itoa(n.roster.OtherCount()),
		"uptime":                 time.Since(n.start).Truncate(time.Millisecond).String(),
	}
	return s
}
