// Package hub is a development stand-in for the peer-to-peer network: an
// in-memory store-and-forward server plus its HTTP client.
//
// HTTP API
//
//	POST /presence/{key}       heartbeat with {name, status}
//	GET  /presence/{key}       {online, name, status}
//	POST /msg/{to}             enqueue an Envelope, returns {id}
//	GET  /msg/{key}?limit=N    up to N queued envelopes
//	POST /msg/{key}/ack        {count: N} drops the first N and issues receipts
//	GET  /receipts/{key}       receipts for envelopes key sent, drained on read
//
// Keys are 64 hex characters. A key is online while its last heartbeat is
// younger than the presence TTL. The hub never interprets message text.
package hub
