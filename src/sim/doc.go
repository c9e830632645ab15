// Package sim runs several Nodes in a single process.
//
// The Nodes share a roster and exchange events through an in-memory fabric
// that delivers every created event to every other Node, in shuffled order and
// from one goroutine per link. Consensus is replaced by a trivial advancer
// that closes a round every time a Node has released a fixed number of
// events, and derives the Node's EventWindow from it.
package sim
