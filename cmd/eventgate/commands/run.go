package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/eventgate/src/creation"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/node"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/mosaicnetworks/eventgate/src/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that starts a node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		Long:    "Run a node from the peers.json of the data directory. Lines read on stdin are submitted as transactions.",
		PreRunE: loadConfig,
		RunE:    runNode,
	}
	AddConfigFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runNode(cmd *cobra.Command, args []string) error {
	conf := &_config.EventGate
	logger := conf.Logger()

	peerSet, err := peers.NewJSONPeerSet(conf.DataDir).PeerSet()
	if err != nil {
		logger.Error("Cannot load peers.json:", err)
		return err
	}
	if peerSet == nil {
		return fmt.Errorf("peers.json in %s is empty", conf.DataDir)
	}

	self, err := conf.SelfPeer(peerSet)
	if err != nil {
		return err
	}

	roster, err := peers.NewRoster(self.ID(), peerSet)
	if err != nil {
		return err
	}

	eventStore, err := openStore()
	if err != nil {
		logger.Error("Cannot open event store:", err)
		return err
	}
	defer eventStore.Close()

	m, stopMetrics := newMetrics(conf)
	defer stopMetrics()

	pool := creation.NewInmemTransactionPool()

	n := node.NewNode(conf,
		roster,
		pool,
		eventStore,
		&logConsumer{logger: logger.WithField("component", "consumer")},
		nil,
		nil,
		m)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go readTransactions(ctx, pool)
	go logStats(ctx, n, _config.StatsInterval, logger)

	return n.Run(ctx)
}

func openStore() (store.EventStore, error) {
	conf := &_config.EventGate
	if !conf.Store {
		return store.NewInmemEventStore(), nil
	}
	return store.NewBadgerEventStore(conf.DatabaseDir, conf.Logger().WithField("component", "badger"))
}

// readTransactions submits every line of stdin as a transaction.
func readTransactions(ctx context.Context, pool *creation.InmemTransactionPool) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		pool.SubmitTransaction([]byte(scanner.Text()))
	}
}

func logStats(ctx context.Context, n *node.Node, interval time.Duration, logger *logrus.Entry) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		stats, err := n.GetStats(ctx)
		if err != nil {
			return
		}

		fields := logrus.Fields{}
		for k, v := range stats {
			fields[k] = v
		}
		logger.WithFields(fields).Info("Stats")
	}
}

// logConsumer stands in for consensus when a node runs on its own.
type logConsumer struct {
	logger *logrus.Entry
}

func (c *logConsumer) ConsumeEvents(events []*hashgraph.Event) {
	for _, e := range events {
		c.logger.WithFields(logrus.Fields{
			"event":        e.Descriptor(),
			"ngen":         e.NGen(),
			"origin":       e.Origin(),
			"transactions": len(e.Transactions()),
		}).Debug("Released event")
	}
}
