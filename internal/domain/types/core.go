package types

import "math"

// Alias is the transport-assigned handle of a known peer. It is unique and
// stable for the lifetime of the process.
type Alias uint32

// NoAlias marks an unset alias (no receiver chosen, no previous sender).
const NoAlias Alias = math.MaxUint32

// Valid reports whether a is a real handle.
func (a Alias) Valid() bool { return a != NoAlias }

// PeerKey is a peer's public key as lowercase hex.
type PeerKey string

// String returns the string form of the key.
func (k PeerKey) String() string { return string(k) }

// Short returns the first 8 hex characters for log lines.
func (k PeerKey) Short() string {
	if len(k) <= 8 {
		return string(k)
	}
	return string(k[:8])
}

// Sequence is the transport-assigned id of a sent message. It increases
// monotonically per peer and may wrap.
type Sequence uint32

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
