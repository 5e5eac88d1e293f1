// Package live publishes collections and cells to remote observers over
// HTTP and WebSocket.
//
// A Hub holds one feed per published name. Every change of a published
// source produces a new snapshot of its full content; snapshots are numbered
// per feed. Change records themselves never leave the process.
//
// Routes served by Hub.Handler:
//
//	GET /collections             list of feeds and their latest sequence numbers
//	GET /collections/{name}      latest snapshot of one feed
//	GET /collections/{name}/ws   WebSocket stream: the latest snapshot, then every new one
//
// Each WebSocket connection subscribes under its own cancellation scope,
// which is cancelled when the client goes away, when the connection cannot
// keep up, or when the hub is closed.
package live
