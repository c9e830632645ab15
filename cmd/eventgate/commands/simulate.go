package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/eventgate/src/sim"
	"github.com/spf13/cobra"
)

var simOptions = sim.DefaultOptions()

var (
	simNodes    = len(simOptions.Weights)
	simDuration = 10 * time.Second
)

//NewSimulateCmd returns the command that runs an in-process network
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Run a network of nodes in a single process",
		PreRunE: loadConfig,
		RunE:    simulate,
	}
	AddConfigFlags(cmd)
	AddSimulateFlags(cmd)
	return cmd
}

//AddSimulateFlags adds flags to the simulate command
func AddSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&simNodes, "nodes", simNodes, "Number of nodes, all with the same weight")
	cmd.Flags().IntVar(&simOptions.RoundSize, "round-size", simOptions.RoundSize, "Released events per round")
	cmd.Flags().Int64Var(&simOptions.NonAncientRounds, "non-ancient-rounds", simOptions.NonAncientRounds, "Rounds kept before events become ancient")
	cmd.Flags().DurationVar(&simOptions.Interval, "interval", simOptions.Interval, "Period of window updates and sync reports")
	cmd.Flags().Int64Var(&simOptions.Seed, "seed", simOptions.Seed, "Seed of the delivery order")
	cmd.Flags().DurationVar(&simDuration, "duration", simDuration, "How long to run the network (0 to run until interrupted)")
}

func simulate(cmd *cobra.Command, args []string) error {
	conf := &_config.EventGate

	if simNodes <= 0 {
		return fmt.Errorf("--nodes must be positive, not %d", simNodes)
	}
	simOptions.Weights = make([]int64, simNodes)
	for i := range simOptions.Weights {
		simOptions.Weights[i] = 1
	}

	m, stopMetrics := newMetrics(conf)
	defer stopMetrics()
	simOptions.Metrics = m

	network, err := sim.NewNetwork(conf, simOptions)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- network.Run(ctx) }()

	var timeout <-chan time.Time
	if simDuration > 0 {
		timeout = time.After(simDuration)
	}

	select {
	case err := <-errCh:
		return err
	case <-timeout:
	case <-ctx.Done():
	}

	for i, n := range network.Nodes() {
		statsCtx, statsCancel := context.WithTimeout(ctx, time.Second)
		stats, err := n.GetStats(statsCtx)
		statsCancel()
		if err != nil {
			conf.Logger().WithError(err).Warnf("No stats for node %d", i)
			continue
		}
		printStats(fmt.Sprintf("node %d", i), stats)
	}

	cancel()

	return <-errCh
}
