// Package hashgraph defines the Events of the gossip DAG and the OrphanBuffer
// that sits at the end of the intake pipeline.
//
// Events
//
// An Event is identified by its EventDescriptor: the hash of its body, its
// creator, and its birth round. Events reference one self-parent (the previous
// Event of the same creator) and any number of other-parents through their
// descriptors.
//
// EventWindow
//
// The consensus layer periodically announces an EventWindow. Events born
// before the window's ancient threshold are ancient: they are no longer needed
// to reach consensus and are dropped wherever they show up. Ancient parents
// are considered resolved.
//
// OrphanBuffer
//
// Events arrive from peers in arbitrary order. The OrphanBuffer holds an Event
// until all its non-ancient parents have been released, then releases it
// together with every Event it unblocks, so that downstream components only
// ever see Events in topological order. Released Events are assigned an NGen,
// which is one more than the highest NGen of their locally known parents.
package hashgraph
