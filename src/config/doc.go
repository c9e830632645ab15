// Package config defines the configuration of an eventgate node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package. On top of these options, a node relies on a data directory,
// defined by Config.DataDir, where it expects to find:
//
//  peers.json // a JSON file containing the weighted list of peers.
//  eventgate.toml // (optional) the configuration options, when started from the command line.
//  badger_db // (optional) the event store, when Store is set.
package config
