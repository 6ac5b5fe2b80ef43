// Package relay implements the forwarder's per-peer reliable-delivery engine.
//
// An Engine sits on top of a domain.Transport and turns its unreliable,
// callback-driven sends into an ordered, at-least-once channel per
// recipient. It is made of a few small parts sharing one state:
//
//   - Directory: one PeerRecord per known alias (queue, flow control,
//     routing and nickname tables).
//   - WorkSet: aliases that are connected and have backlog.
//   - delivery: one message in flight per peer, ack matching and
//     timeout-driven resend.
//   - interpreter: executes parsed !alias, !forward and !help commands.
//   - router: picks the destination of ordinary text and interposes
//     "!sender" markers when the sender changes.
//
// # Concurrency
//
// The Engine has no locks and starts no goroutines. All callbacks and ticks
// must come from one goroutine, which is what domain.Transport.Iterate
// guarantees. Duplicate delivery is possible when acks are lost; receivers
// do not deduplicate.
package relay
