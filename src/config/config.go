package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/creation"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the name, without extension, of the configuration
	// file read from the data directory
	DefaultConfigFile = "eventgate"
)

// Default configuration values.
const (
	DefaultLogLevel              = "debug"
	DefaultStore                 = false
	DefaultFallenBehindThreshold = 0.5
	DefaultMaxSyncLag            = 10
	DefaultMaxCreationRate       = 20
	DefaultMaxUnhealthyDuration  = 1 * time.Second
	DefaultHeartbeatTimeout      = 50 * time.Millisecond
	DefaultIntakeBuffer          = 1000
	DefaultMaxTransactions       = 100
	DefaultMetricsAddr           = "127.0.0.1:2112"
	DefaultNoMetrics             = false
)

// Config contains all the configuration properties of an eventgate node.
type Config struct {
	// DataDir is the top-level directory containing the configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// Moniker identifies this node in peers.json. The public key of the peer
	// can be used instead.
	Moniker string `mapstructure:"moniker"`

	// Store activates persistant storage of the released events.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// FallenBehindThreshold is the fraction of the peers' weight that must
	// report this node as behind before it tries to reconnect.
	FallenBehindThreshold float64 `mapstructure:"fallen-behind-threshold"`

	// MaxSyncLag is the median round lag at which event creation stops.
	MaxSyncLag int64 `mapstructure:"max-sync-lag"`

	// MaxCreationRate is the maximum number of events created per second. 0
	// means unlimited.
	MaxCreationRate float64 `mapstructure:"max-creation-rate"`

	// MaxUnhealthyDuration is how long the node may be unhealthy before it
	// stops creating events.
	MaxUnhealthyDuration time.Duration `mapstructure:"max-unhealthy-duration"`

	// HeartbeatTimeout is the period at which the node considers creating an
	// event.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// IntakeBuffer is the capacity of the channel that feeds gossiped events to
	// the intake stage.
	IntakeBuffer int `mapstructure:"intake-buffer"`

	// MaxTransactions limits the number of application transactions per
	// event.
	MaxTransactions int `mapstructure:"max-transactions"`

	// MetricsAddr is the address:port where prometheus metrics are served.
	MetricsAddr string `mapstructure:"metrics-listen"`

	// NoMetrics disables the metrics endpoint.
	NoMetrics bool `mapstructure:"no-metrics"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:               DefaultDataDir(),
		LogLevel:              DefaultLogLevel,
		Store:                 DefaultStore,
		DatabaseDir:           DefaultDatabaseDir(),
		FallenBehindThreshold: DefaultFallenBehindThreshold,
		MaxSyncLag:            DefaultMaxSyncLag,
		MaxCreationRate:       DefaultMaxCreationRate,
		MaxUnhealthyDuration:  DefaultMaxUnhealthyDuration,
		HeartbeatTimeout:      DefaultHeartbeatTimeout,
		IntakeBuffer:          DefaultIntakeBuffer,
		MaxTransactions:       DefaultMaxTransactions,
		MetricsAddr:           DefaultMetricsAddr,
		NoMetrics:             DefaultNoMetrics,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests. Creation is not rate limited and the heartbeat
// is short.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.MaxCreationRate = 0
	config.HeartbeatTimeout = 5 * time.Millisecond
	config.NoMetrics = true
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Validate checks the numeric options.
func (c *Config) Validate() error {
	if c.FallenBehindThreshold < 0 || c.FallenBehindThreshold > 1 {
		return fmt.Errorf("fallen-behind-threshold must be between 0 and 1, not %v", c.FallenBehindThreshold)
	}
	if c.MaxSyncLag <= 0 {
		return fmt.Errorf("max-sync-lag must be positive, not %d", c.MaxSyncLag)
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat must be positive, not %v", c.HeartbeatTimeout)
	}
	if c.IntakeBuffer < 0 {
		return fmt.Errorf("intake-buffer cannot be negative")
	}
	return nil
}

// CreationOptions returns the thresholds of the event creation rules.
func (c *Config) CreationOptions() creation.Options {
	return creation.Options{
		MaxSyncLag:           c.MaxSyncLag,
		MaxCreationRate:      c.MaxCreationRate,
		MaxUnhealthyDuration: c.MaxUnhealthyDuration,
	}
}

// SelfPeer finds this node in a PeerSet, by public key or by moniker.
func (c *Config) SelfPeer(peerSet *peers.PeerSet) (*peers.Peer, error) {
	if p, ok := peerSet.ByPubKey[strings.ToUpper(c.Moniker)]; ok {
		return p, nil
	}
	for _, p := range peerSet.Peers {
		if p.Moniker == c.Moniker {
			return p, nil
		}
	}
	return nil, fmt.Errorf("No peer with moniker or public key %q", c.Moniker)
}

// Logger returns a formatted logrus Entry, with prefix set to "eventgate".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "eventgate")
}

// BaseLogger returns the logger behind Logger, so that hooks can be added.
func (c *Config) BaseLogger() *logrus.Logger {
	c.Logger()
	return c.logger
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".EventGate")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "EventGate")
		} else {
			return filepath.Join(home, ".eventgate")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
