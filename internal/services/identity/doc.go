// Package identity manages creation, encryption and loading of the
// forwarder's identity.
//
// It enforces passphrase policy on creation, generates the X25519 key pair
// and persists it via the domain.IdentityStore.
package identity
