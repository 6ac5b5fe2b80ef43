// Package store provides file-based persistence for the forwarder's identity.
//
// The identity is serialised as JSON, sealed with a key derived from a
// passphrase (scrypt, then ChaCha20-Poly1305) and written atomically via a
// temp file and rename. Methods are concurrency-safe via internal locking.
// Queued messages are never persisted.
package store
