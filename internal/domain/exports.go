package domain

import (
	interfaces "github.com/Aesylwinn/tox-forward/internal/domain/interfaces"
	types "github.com/Aesylwinn/tox-forward/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Alias         = types.Alias
	PeerKey       = types.PeerKey
	Sequence      = types.Sequence
	Fingerprint   = types.Fingerprint
	Identity      = types.Identity
	Envelope      = types.Envelope
	Receipt       = types.Receipt
	Presence      = types.Presence
	X25519Public  = types.X25519Public
	X25519Private = types.X25519Private
)

// NoAlias marks an unset alias.
const NoAlias = types.NoAlias

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Callbacks       = interfaces.Callbacks
	Transport       = interfaces.Transport
	IdentityStore   = interfaces.IdentityStore
	HubClient       = interfaces.HubClient
	IdentityService = interfaces.IdentityService
)
