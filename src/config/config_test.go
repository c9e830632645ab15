package config

import (
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/sirupsen/logrus"
)

func TestDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()

	if err := c.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if c.FallenBehindThreshold != 0.5 {
		t.Fatalf("default fallen behind threshold should be 0.5")
	}

	opts := c.CreationOptions()
	if opts.MaxSyncLag != DefaultMaxSyncLag || opts.MaxCreationRate != DefaultMaxCreationRate {
		t.Fatalf("creation options do not match the config: %+v", opts)
	}
}

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/node0")
	if c.DatabaseDir != filepath.Join("/tmp/node0", DefaultBadgerFile) {
		t.Fatalf("default database dir should follow the data dir, got %s", c.DatabaseDir)
	}

	c.DatabaseDir = "/elsewhere"
	c.SetDataDir("/tmp/node1")
	if c.DatabaseDir != "/elsewhere" {
		t.Fatalf("explicit database dir should not change")
	}
}

func TestValidate(t *testing.T) {
	c := NewTestConfig(t, logrus.DebugLevel)
	c.FallenBehindThreshold = 1.5
	if err := c.Validate(); err == nil {
		t.Fatalf("threshold above 1 should be rejected")
	}

	c = NewTestConfig(t, logrus.DebugLevel)
	c.MaxSyncLag = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("non-positive max sync lag should be rejected")
	}
}

func TestSelfPeer(t *testing.T) {
	ps := peers.NewPeerSet(peers.NewTestPeers(1, 1, 1))
	c := NewTestConfig(t, logrus.DebugLevel)

	c.Moniker = "peer1"
	p, err := c.SelfPeer(ps)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID() != ps.Peers[1].ID() {
		t.Fatalf("wrong peer selected by moniker")
	}

	c.Moniker = ps.Peers[2].PubKeyString()
	p, err = c.SelfPeer(ps)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID() != ps.Peers[2].ID() {
		t.Fatalf("wrong peer selected by public key")
	}

	c.Moniker = "nobody"
	if _, err := c.SelfPeer(ps); err == nil {
		t.Fatalf("unknown moniker should be rejected")
	}
}
