// Package app wires the forwarder's dependencies and runs its driver loop.
//
// It builds the identity store, hub transport, relay engine and metrics
// registry from Config, exposing them via the Wire struct for commands to
// use. Drive is the single goroutine that iterates the transport; nothing
// else touches relay state.
package app
