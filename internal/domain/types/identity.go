package types

// Identity holds the forwarder's long-term X25519 key pair. The hex form of
// Public is the key other peers use to reach the forwarder.
type Identity struct {
	Public  X25519Public  `json:"public"`
	Private X25519Private `json:"private"`
}
