package interfaces

import (
	"context"

	domaintypes "github.com/Aesylwinn/tox-forward/internal/domain/types"
)

// Callbacks receives transport events. A transport invokes them from a
// single goroutine and never concurrently with each other.
type Callbacks interface {
	OnConnectivityChanged(alias domaintypes.Alias, online bool)
	OnSendAcknowledged(alias domaintypes.Alias, seq domaintypes.Sequence)
	OnMessageReceived(alias domaintypes.Alias, payload string)
	// OnPeerRequest is raised for a key that is not yet a known peer.
	OnPeerRequest(key domaintypes.PeerKey, message string)
	// OnTick fires once per driver iteration, after all other events.
	OnTick()
}

// Transport is the peer network as seen by the relay engine.
type Transport interface {
	// Bind registers the receiver of all subsequent callbacks.
	Bind(cb Callbacks)

	// RegisterPeerNoHandshake admits key without a request round trip.
	RegisterPeerNoHandshake(key domaintypes.PeerKey) (domaintypes.Alias, error)
	PeerExists(alias domaintypes.Alias) bool
	IsPeerConnected(alias domaintypes.Alias) bool
	PeerByKey(key domaintypes.PeerKey) (domaintypes.Alias, bool)
	PeerKey(alias domaintypes.Alias) (domaintypes.PeerKey, bool)

	// SendToPeer hands payload to the network and returns its sequence id.
	// Delivery is only evidenced by a later OnSendAcknowledged.
	SendToPeer(alias domaintypes.Alias, payload string) (domaintypes.Sequence, error)

	// Iterate performs one driver step: it dispatches pending events to the
	// bound Callbacks and finishes with OnTick.
	Iterate(ctx context.Context) error
}
