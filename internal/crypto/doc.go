// Package crypto exposes the minimal primitives used by the forwarder.
//
// Contents
//
//   - X25519 key generation and clamping (GenerateX25519, NewIdentity)
//   - Peer key hex handling (KeyHex, NormalizeKeyHex, ParsePeerKey)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// The relay engine never encrypts anything itself; these helpers only serve
// the forwarder's own identity and the normalisation of keys typed by users.
package crypto
