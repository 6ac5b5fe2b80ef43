package domain

import "errors"

var (
	// ErrPeerRejected is returned when the transport refuses to admit a key.
	ErrPeerRejected = errors.New("peer rejected by transport")
	// ErrUnknownPeer is returned for an alias the transport does not know.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrNotFound is returned by stores when nothing has been saved yet.
	ErrNotFound = errors.New("not found")
)
