// Package memnet is an in-memory domain.Transport. Tests and local demos use
// it to script connectivity, inbound messages and acknowledgments without a
// network.
//
// Events injected with SetOnline, Deliver, Request and Ack are queued and
// dispatched in order by the next Iterate, which then fires OnTick. Sends
// made during a tick are acknowledged on the following Iterate when
// auto-ack is on.
package memnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// Sent is one SendToPeer call as the network saw it.
type Sent struct {
	Alias   domain.Alias
	Seq     domain.Sequence
	Payload string
}

type peer struct {
	key     domain.PeerKey
	online  bool
	nextSeq domain.Sequence
}

// Network is a scripted loopback transport.
type Network struct {
	mu sync.Mutex

	cb        domain.Callbacks
	nextAlias domain.Alias
	byKey     map[domain.PeerKey]domain.Alias
	peers     map[domain.Alias]*peer
	rejected  map[domain.PeerKey]struct{}

	events  []func(domain.Callbacks)
	sent    []Sent
	autoAck bool
	sendErr error
}

var _ domain.Transport = (*Network)(nil)

// New returns an empty network.
func New() *Network {
	return &Network{
		byKey:    make(map[domain.PeerKey]domain.Alias),
		peers:    make(map[domain.Alias]*peer),
		rejected: make(map[domain.PeerKey]struct{}),
	}
}

// Bind sets the receiver of callbacks.
func (n *Network) Bind(cb domain.Callbacks) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cb = cb
}

// RegisterPeerNoHandshake assigns the next alias to key, or returns the
// existing one. Keys marked with Reject fail with domain.ErrPeerRejected.
func (n *Network) RegisterPeerNoHandshake(key domain.PeerKey) (domain.Alias, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.rejected[key]; ok {
		return domain.NoAlias, domain.ErrPeerRejected
	}
	if a, ok := n.byKey[key]; ok {
		return a, nil
	}
	a := n.nextAlias
	n.nextAlias++
	n.byKey[key] = a
	n.peers[a] = &peer{key: key}
	return a, nil
}

func (n *Network) PeerExists(a domain.Alias) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.peers[a]
	return ok
}

func (n *Network) IsPeerConnected(a domain.Alias) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.peers[a]
	return ok && p.online
}

func (n *Network) PeerByKey(key domain.PeerKey) (domain.Alias, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a, ok := n.byKey[key]
	return a, ok
}

func (n *Network) PeerKey(a domain.Alias) (domain.PeerKey, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.peers[a]
	if !ok {
		return "", false
	}
	return p.key, true
}

// SendToPeer records payload and returns the peer's next sequence id.
func (n *Network) SendToPeer(a domain.Alias, payload string) (domain.Sequence, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return 0, n.sendErr
	}
	p, ok := n.peers[a]
	if !ok {
		return 0, fmt.Errorf("send to %d: %w", a, domain.ErrUnknownPeer)
	}
	seq := p.nextSeq
	p.nextSeq++
	n.sent = append(n.sent, Sent{Alias: a, Seq: seq, Payload: payload})
	if n.autoAck && p.online {
		n.events = append(n.events, func(cb domain.Callbacks) { cb.OnSendAcknowledged(a, seq) })
	}
	return seq, nil
}

// Iterate dispatches queued events in order and then fires OnTick.
func (n *Network) Iterate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	cb := n.cb
	events := n.events
	n.events = nil
	n.mu.Unlock()

	if cb == nil {
		return fmt.Errorf("memnet: no callbacks bound")
	}
	for _, ev := range events {
		ev(cb)
	}
	cb.OnTick()
	return nil
}

// Reject makes future registrations of key fail.
func (n *Network) Reject(key domain.PeerKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected[key] = struct{}{}
}

// SetAutoAck acknowledges every send to an online peer on the next Iterate.
func (n *Network) SetAutoAck(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.autoAck = on
}

// FailSends makes SendToPeer return err until called again with nil.
func (n *Network) FailSends(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sendErr = err
}

// SetNextSequence sets the id the next send to a will get.
func (n *Network) SetNextSequence(a domain.Alias, seq domain.Sequence) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.peers[a]; ok {
		p.nextSeq = seq
	}
}

// SetOnline flips a's connectivity immediately and queues the callback.
func (n *Network) SetOnline(a domain.Alias, online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.peers[a]; ok {
		p.online = online
	}
	n.events = append(n.events, func(cb domain.Callbacks) { cb.OnConnectivityChanged(a, online) })
}

// Deliver queues an inbound message from a.
func (n *Network) Deliver(a domain.Alias, payload string) {
	n.queue(func(cb domain.Callbacks) { cb.OnMessageReceived(a, payload) })
}

// Request queues a peer request from an unknown key.
func (n *Network) Request(key domain.PeerKey, message string) {
	n.queue(func(cb domain.Callbacks) { cb.OnPeerRequest(key, message) })
}

// Ack queues an acknowledgment of seq from a.
func (n *Network) Ack(a domain.Alias, seq domain.Sequence) {
	n.queue(func(cb domain.Callbacks) { cb.OnSendAcknowledged(a, seq) })
}

func (n *Network) queue(ev func(domain.Callbacks)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// Sent returns every send so far, oldest first.
func (n *Network) Sent() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Sent(nil), n.sent...)
}

// SentTo returns the payloads sent to a, oldest first.
func (n *Network) SentTo(a domain.Alias) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.Alias == a {
			out = append(out, s.Payload)
		}
	}
	return out
}
