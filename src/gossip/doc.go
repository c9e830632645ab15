// Package gossip contains the estimators that the gossip protocol feeds and
// that the event creation rules and the reconnect controller read.
//
// SyncLagCalculator keeps the latest round lag reported by each peer and
// computes their weighted median. FallenBehindMonitor counts the peers that
// consider this node to be behind and wakes the reconnect controller once
// enough of them agree. EventCounter tracks how many events each peer has in
// the intake pipeline.
package gossip
