package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mosaicnetworks/eventgate/src/config"
	"github.com/mosaicnetworks/eventgate/src/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//CLIConfig contains configuration for the Run and Simulate commands
type CLIConfig struct {
	EventGate config.Config `mapstructure:",squash"`

	// LogFiles writes the info and debug logs to files in the data directory.
	LogFiles bool `mapstructure:"log-files"`

	// StatsInterval is the period at which a running node logs its stats.
	StatsInterval time.Duration `mapstructure:"stats-interval"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		EventGate:     *config.NewDefaultConfig(),
		LogFiles:      false,
		StatsInterval: 10 * time.Second,
	}
}

var _config = NewDefaultCLIConfig()

// AddConfigFlags adds the flags shared by the run and simulate commands.
func AddConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.EventGate.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.EventGate.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().Bool("log-files", _config.LogFiles, "Also write info and debug logs to files in the datadir")
	cmd.Flags().String("moniker", _config.EventGate.Moniker, "Moniker or public key of this node in peers.json")

	// Store
	cmd.Flags().Bool("store", _config.EventGate.Store, "Persist events in badgerDB")
	cmd.Flags().String("db", _config.EventGate.DatabaseDir, "Database directory")

	// Intake and creation
	cmd.Flags().Float64("fallen-behind-threshold", _config.EventGate.FallenBehindThreshold, "Fraction of peer weight that must report us behind")
	cmd.Flags().Int64("max-sync-lag", _config.EventGate.MaxSyncLag, "Rounds of sync lag that stop event creation")
	cmd.Flags().Float64("max-creation-rate", _config.EventGate.MaxCreationRate, "Events per second (0 for no limit)")
	cmd.Flags().Duration("max-unhealthy-duration", _config.EventGate.MaxUnhealthyDuration, "Unhealthy time tolerated before creation stops")
	cmd.Flags().Duration("heartbeat", _config.EventGate.HeartbeatTimeout, "Time between event creation attempts")
	cmd.Flags().Int("intake-buffer", _config.EventGate.IntakeBuffer, "Capacity of the intake queue")
	cmd.Flags().Int("max-transactions", _config.EventGate.MaxTransactions, "Max transactions per event")

	// Metrics
	cmd.Flags().String("metrics-listen", _config.EventGate.MetricsAddr, "Listen IP:Port for prometheus metrics")
	cmd.Flags().Bool("no-metrics", _config.EventGate.NoMetrics, "Do not serve metrics")
	cmd.Flags().Duration("stats-interval", _config.StatsInterval, "Time between stats logs")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.EventGate.SetDataDir(_config.EventGate.DataDir)

	if err := _config.EventGate.Validate(); err != nil {
		return err
	}

	if _config.LogFiles {
		addLogFiles(_config.EventGate.BaseLogger(), _config.EventGate.DataDir)
	}

	logFields := logrus.Fields{
		"eventgate.DataDir":               _config.EventGate.DataDir,
		"eventgate.LogLevel":              _config.EventGate.LogLevel,
		"eventgate.Moniker":               _config.EventGate.Moniker,
		"eventgate.Store":                 _config.EventGate.Store,
		"eventgate.FallenBehindThreshold": _config.EventGate.FallenBehindThreshold,
		"eventgate.MaxSyncLag":            _config.EventGate.MaxSyncLag,
		"eventgate.MaxCreationRate":       _config.EventGate.MaxCreationRate,
		"eventgate.MaxUnhealthyDuration":  _config.EventGate.MaxUnhealthyDuration,
		"eventgate.HeartbeatTimeout":      _config.EventGate.HeartbeatTimeout,
		"eventgate.IntakeBuffer":          _config.EventGate.IntakeBuffer,
		"eventgate.MaxTransactions":       _config.EventGate.MaxTransactions,
		"eventgate.NoMetrics":             _config.EventGate.NoMetrics,
	}

	if _config.EventGate.Store {
		logFields["eventgate.DatabaseDir"] = _config.EventGate.DatabaseDir
	}
	if !_config.EventGate.NoMetrics {
		logFields["eventgate.MetricsAddr"] = _config.EventGate.MetricsAddr
	}

	_config.EventGate.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/eventgate.toml (.json, .yaml also work)
	viper.SetConfigName("eventgate")               // name of config file (without extension)
	viper.AddConfigPath(_config.EventGate.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.EventGate.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.EventGate.Logger().Debugf("No config file found in: %s", _config.EventGate.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

func addLogFiles(logger *logrus.Logger, dir string) {
	pathMap := lfshook.PathMap{}

	for level, name := range map[logrus.Level]string{
		logrus.InfoLevel:  "eventgate_info.log",
		logrus.DebugLevel: "eventgate_debug.log",
	} {
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logger.Infof("Failed to open %s, using default stderr", path)
			continue
		}
		f.Close()
		pathMap[level] = path
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))
}

// newMetrics registers the collectors and, unless metrics are disabled, serves
// them over HTTP. The returned function stops the server.
func newMetrics(conf *config.Config) (*metrics.Metrics, func()) {
	if conf.NoMetrics {
		return nil, func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := metrics.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    conf.MetricsAddr,
		Handler: mux,
	}

	logger := conf.Logger().WithField("component", "metrics")
	go func() {
		logger.WithField("listen", conf.MetricsAddr).Info("Serving metrics")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Metrics server")
		}
	}()

	return m, func() { server.Close() }
}

func printStats(title string, stats map[string]string) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println(title)
	for _, k := range keys {
		fmt.Printf("  %-24s %s\n", k, stats[k])
	}
}
