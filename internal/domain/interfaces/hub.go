package interfaces

import (
	"context"

	domaintypes "github.com/Aesylwinn/tox-forward/internal/domain/types"
)

// HubClient is how a peer talks to the development hub, all with context.
type HubClient interface {
	Heartbeat(ctx context.Context, key domaintypes.PeerKey, p domaintypes.Presence) error
	Presence(ctx context.Context, key domaintypes.PeerKey) (domaintypes.Presence, error)

	SendMessage(ctx context.Context, env domaintypes.Envelope) error
	FetchMessages(ctx context.Context, key domaintypes.PeerKey, limit int) ([]domaintypes.Envelope, error)
	AckMessages(ctx context.Context, key domaintypes.PeerKey, count int) error
	FetchReceipts(ctx context.Context, key domaintypes.PeerKey) ([]domaintypes.Receipt, error)
}
