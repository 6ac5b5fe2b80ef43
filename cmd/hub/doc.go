// Package main runs the in-memory hub that forwarders and chat clients
// exchange messages through during development and tests.
//
// Flags
//
//	--listen        address to serve on (default :8080)
//	--presence-ttl  how long a heartbeat keeps a key online (default 15s)
//	--log-level     zap level (default info)
//
// All state is held in memory and lost on process exit. The hub only ever
// sees message text addressed between keys; it holds no private keys.
package main
