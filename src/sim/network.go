package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/eventgate/src/config"
	"github.com/mosaicnetworks/eventgate/src/creation"
	"github.com/mosaicnetworks/eventgate/src/gossip"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/mosaicnetworks/eventgate/src/node"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/mosaicnetworks/eventgate/src/store"
	"github.com/sirupsen/logrus"
)

// Options configures a simulated Network.
type Options struct {
	// Weights holds one entry per node.
	Weights []int64

	// RoundSize is the number of released events after which a node closes a
	// round.
	RoundSize int

	// NonAncientRounds is the number of rounds, counting the latest, whose
	// events are not ancient.
	NonAncientRounds int64

	// Interval is the period of the advancer, of the sync progress
	// reports, and of the transaction generator.
	Interval time.Duration

	// Seed makes the delivery order reproducible.
	Seed int64

	// Metrics, if not nil, are attached to the first node.
	Metrics *metrics.Metrics
}

// DefaultOptions returns the options of a 4 node network.
func DefaultOptions() Options {
	return Options{
		Weights:          []int64{1, 1, 1, 1},
		RoundSize:        8,
		NonAncientRounds: 4,
		Interval:         20 * time.Millisecond,
		Seed:             1,
	}
}

// Network is a set of Nodes connected by an in-memory gossip fabric.
type Network struct {
	opts   Options
	logger *logrus.Entry

	peers     []*peers.Peer
	nodes     []*node.Node
	pools     []*creation.InmemTransactionPool
	consumers []*consumer

	// links[i] are the outgoing links of node i
	links [][]*link

	paused []atomic.Bool

	sync.Mutex
	windows []hashgraph.EventWindow

	ctx context.Context
}

// NewNetwork creates the Nodes of a Network. They all share conf.
func NewNetwork(conf *config.Config, opts Options) (*Network, error) {
	if len(opts.Weights) == 0 {
		return nil, fmt.Errorf("A network needs at least one node")
	}
	if opts.RoundSize <= 0 {
		return nil, fmt.Errorf("RoundSize must be positive, not %d", opts.RoundSize)
	}
	if opts.NonAncientRounds <= 0 {
		return nil, fmt.Errorf("NonAncientRounds must be positive, not %d", opts.NonAncientRounds)
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("Interval must be positive, not %v", opts.Interval)
	}

	count := len(opts.Weights)
	ps := peers.NewTestPeers(opts.Weights...)
	peerSet := peers.NewPeerSet(ps)

	net := &Network{
		opts:      opts,
		logger:    conf.Logger().WithField("component", "sim"),
		peers:     ps,
		nodes:     make([]*node.Node, count),
		pools:     make([]*creation.InmemTransactionPool, count),
		consumers: make([]*consumer, count),
		links:     make([][]*link, count),
		paused:    make([]atomic.Bool, count),
		windows:   make([]hashgraph.EventWindow, count),
	}

	for i, p := range ps {
		roster, err := peers.NewRoster(p.ID(), peerSet)
		if err != nil {
			return nil, err
		}

		var m *metrics.Metrics
		if i == 0 {
			m = opts.Metrics
		}

		net.pools[i] = creation.NewInmemTransactionPool()
		net.consumers[i] = &consumer{}
		net.windows[i] = hashgraph.GenesisEventWindow()

		net.nodes[i] = node.NewNode(conf,
			roster,
			net.pools[i],
			store.NewInmemEventStore(),
			net.consumers[i],
			&broadcaster{net: net, from: i},
			&reconnector{net: net, index: i},
			m)

		for j := range ps {
			if j != i {
				net.links[i] = append(net.links[i], newLink(p.ID(), j, opts.Seed+int64(i*count+j)))
			}
		}
	}

	return net, nil
}

// Nodes ...
func (net *Network) Nodes() []*node.Node {
	return net.nodes
}

// Released returns the events released by a node, in release order.
func (net *Network) Released(i int) []*hashgraph.Event {
	return net.consumers[i].get()
}

// Window returns the last EventWindow given to a node.
func (net *Network) Window(i int) hashgraph.EventWindow {
	net.Lock()
	defer net.Unlock()
	return net.windows[i]
}

// Run runs the nodes and the fabric until ctx is done. It returns the first
// error returned by a node.
func (net *Network) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	net.ctx = ctx

	var wg sync.WaitGroup
	errCh := make(chan error, len(net.nodes))

	for i := range net.nodes {
		n := net.nodes[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.Run(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()

		for _, l := range net.links[i] {
			wg.Add(1)
			go func(l *link) {
				defer wg.Done()
				net.deliver(ctx, l)
			}(l)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		net.advance(ctx)
	}()

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (net *Network) deliver(ctx context.Context, l *link) {
	for {
		batch, err := l.next(ctx)
		if err != nil {
			return
		}
		for _, e := range batch {
			if net.paused[l.to].Load() {
				continue
			}
			if err := net.nodes[l.to].SubmitEvent(ctx, copyEvent(e, l.from)); err != nil {
				if ctx.Err() != nil {
					return
				}
				net.logger.WithError(err).Warn("Delivering event")
			}
		}
	}
}

// advance periodically moves the windows forward, exchanges sync progress,
// and feeds transactions to the pools.
func (net *Network) advance(ctx context.Context) {
	ticker := time.NewTicker(net.opts.Interval)
	defer ticker.Stop()

	tx := 0
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		for i, pool := range net.pools {
			pool.SubmitTransaction([]byte(fmt.Sprintf("node%d_tx%d", i, tx)))
		}
		tx++

		for i, n := range net.nodes {
			if net.paused[i].Load() {
				continue
			}
			if w, ok := net.nextWindow(i); ok {
				if err := n.SetEventWindow(ctx, w); err != nil {
					return
				}
			}
		}

		for i, n := range net.nodes {
			for j, p := range net.peers {
				if i == j {
					continue
				}
				sp := gossip.SyncProgress{Peer: p.ID(), Window: net.Window(j)}
				if err := n.SubmitSyncProgress(ctx, sp); err != nil {
					return
				}
			}
		}
	}
}

// nextWindow derives a node's window from the number of events it released.
func (net *Network) nextWindow(i int) (hashgraph.EventWindow, bool) {
	round := hashgraph.FirstRound + int64(net.consumers[i].count()/net.opts.RoundSize)

	net.Lock()
	defer net.Unlock()

	if round <= net.windows[i].NewEventBirthRound {
		return hashgraph.EventWindow{}, false
	}

	ancient := round - net.opts.NonAncientRounds + 1
	if ancient < hashgraph.FirstRound {
		ancient = hashgraph.FirstRound
	}

	w := hashgraph.EventWindow{
		LatestConsensusRound: round - 1,
		NewEventBirthRound:   round,
		AncientThreshold:     ancient,
		ExpiredThreshold:     ancient,
	}
	net.windows[i] = w

	return w, true
}

// mostAdvanced returns the node, other than i, with the highest latest
// consensus round.
func (net *Network) mostAdvanced(i int) int {
	net.Lock()
	defer net.Unlock()

	best := -1
	for j, w := range net.windows {
		if j == i {
			continue
		}
		if best < 0 || w.LatestConsensusRound > net.windows[best].LatestConsensusRound {
			best = j
		}
	}
	return best
}

/*******************************************************************************
Node collaborators
*******************************************************************************/

type consumer struct {
	sync.Mutex
	events []*hashgraph.Event
	// released counts the events that contribute to closing rounds. A
	// reconnect overwrites it.
	released int
}

func (c *consumer) ConsumeEvents(events []*hashgraph.Event) {
	c.Lock()
	defer c.Unlock()
	c.events = append(c.events, events...)
	c.released += len(events)
}

func (c *consumer) get() []*hashgraph.Event {
	c.Lock()
	defer c.Unlock()
	return append([]*hashgraph.Event{}, c.events...)
}

func (c *consumer) count() int {
	c.Lock()
	defer c.Unlock()
	return c.released
}

func (c *consumer) setCount(n int) {
	c.Lock()
	defer c.Unlock()
	c.released = n
}

type broadcaster struct {
	net  *Network
	from int
}

func (b *broadcaster) Broadcast(e *hashgraph.Event) {
	if b.net.paused[b.from].Load() {
		return
	}
	for _, l := range b.net.links[b.from] {
		l.enqueue(e)
	}
}

// reconnector restarts a node from the window of the most advanced peer.
type reconnector struct {
	net   *Network
	index int
}

func (r *reconnector) PauseGossip() {
	r.net.paused[r.index].Store(true)
	r.net.nodes[r.index].FallenBehindMonitor().NotifySyncProtocolPaused()
}

func (r *reconnector) Reconnect(ctx context.Context) (hashgraph.EventWindow, error) {
	peer := r.net.mostAdvanced(r.index)
	if peer < 0 {
		return hashgraph.EventWindow{}, fmt.Errorf("No peer to reconnect to")
	}

	r.net.consumers[r.index].setCount(r.net.consumers[peer].count())

	r.net.Lock()
	w := r.net.windows[peer]
	r.net.windows[r.index] = w
	r.net.Unlock()

	r.net.logger.WithFields(logrus.Fields{
		"node": r.index,
		"peer": peer,
		"lcr":  w.LatestConsensusRound,
	}).Info("Reconnecting")

	return w, nil
}

func (r *reconnector) ResumeGossip() {
	r.net.paused[r.index].Store(false)
	n := r.net.nodes[r.index]
	if err := n.UpdatePlatformStatus(r.net.ctx, creation.Active); err != nil {
		r.net.logger.WithError(err).Debug("Resuming gossip")
	}
}
