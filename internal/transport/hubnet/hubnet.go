// Package hubnet implements domain.Transport on top of the development hub.
//
// Aliases are handed out in registration order and sequence ids count up per
// peer. SendToPeer only buffers; the outbox is flushed by the next Iterate,
// which also heartbeats, pulls inbound envelopes (deduplicated by envelope
// id), turns hub receipts into acknowledgments, polls presence and finally
// fires OnTick. A Transport is not safe for concurrent use: the engine and
// the driver share one goroutine.
package hubnet

import (
	"context"
	"fmt"
	"maps"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/crypto"
	"github.com/Aesylwinn/tox-forward/internal/domain"
)

const (
	defaultFetchLimit = 64
	defaultDedupSize  = 4096
)

// Options configures a Transport.
type Options struct {
	// Self is the forwarder's own key, used as the sender of every envelope.
	Self domain.PeerKey
	// Profile is published with each heartbeat.
	Profile domain.Presence

	FetchLimit int
	DedupSize  int
	Logger     *zap.Logger
}

type peer struct {
	key     domain.PeerKey
	online  bool
	nextSeq domain.Sequence
}

// Transport is a hub-backed domain.Transport.
type Transport struct {
	hub     domain.HubClient
	self    domain.PeerKey
	profile domain.Presence
	cb      domain.Callbacks

	nextAlias domain.Alias
	byKey     map[domain.PeerKey]domain.Alias
	peers     map[domain.Alias]*peer

	outbox     []domain.Envelope
	seen       *lru.Cache[string, struct{}]
	fetchLimit int
	log        *zap.Logger
}

var _ domain.Transport = (*Transport)(nil)

// New returns a transport speaking to hub as opts.Self.
func New(hub domain.HubClient, opts Options) (*Transport, error) {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = defaultFetchLimit
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = defaultDedupSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	seen, err := lru.New[string, struct{}](opts.DedupSize)
	if err != nil {
		return nil, fmt.Errorf("dedup cache: %w", err)
	}
	return &Transport{
		hub:        hub,
		self:       opts.Self,
		profile:    opts.Profile,
		byKey:      make(map[domain.PeerKey]domain.Alias),
		peers:      make(map[domain.Alias]*peer),
		seen:       seen,
		fetchLimit: opts.FetchLimit,
		log:        opts.Logger.Named("hubnet"),
	}, nil
}

func (t *Transport) Bind(cb domain.Callbacks) { t.cb = cb }

// RegisterPeerNoHandshake admits key. Malformed keys and our own key are
// rejected.
func (t *Transport) RegisterPeerNoHandshake(key domain.PeerKey) (domain.Alias, error) {
	k, err := crypto.ParsePeerKey(key.String())
	if err != nil {
		return domain.NoAlias, fmt.Errorf("%w: %v", domain.ErrPeerRejected, err)
	}
	if k == t.self {
		return domain.NoAlias, fmt.Errorf("%w: own key", domain.ErrPeerRejected)
	}
	if a, ok := t.byKey[k]; ok {
		return a, nil
	}
	a := t.nextAlias
	t.nextAlias++
	t.byKey[k] = a
	t.peers[a] = &peer{key: k}
	return a, nil
}

func (t *Transport) PeerExists(a domain.Alias) bool {
	_, ok := t.peers[a]
	return ok
}

func (t *Transport) IsPeerConnected(a domain.Alias) bool {
	p, ok := t.peers[a]
	return ok && p.online
}

func (t *Transport) PeerByKey(key domain.PeerKey) (domain.Alias, bool) {
	a, ok := t.byKey[key]
	return a, ok
}

func (t *Transport) PeerKey(a domain.Alias) (domain.PeerKey, bool) {
	p, ok := t.peers[a]
	if !ok {
		return "", false
	}
	return p.key, true
}

// SendToPeer buffers payload for the next Iterate and returns its sequence.
func (t *Transport) SendToPeer(a domain.Alias, payload string) (domain.Sequence, error) {
	p, ok := t.peers[a]
	if !ok {
		return 0, fmt.Errorf("send to %d: %w", a, domain.ErrUnknownPeer)
	}
	seq := p.nextSeq
	p.nextSeq++
	t.outbox = append(t.outbox, domain.Envelope{From: t.self, To: p.key, Seq: seq, Text: payload})
	return seq, nil
}

// Iterate runs one driver step. Hub errors are collected and returned after
// OnTick has fired; a failing hub never stops the tick.
func (t *Transport) Iterate(ctx context.Context) error {
	if t.cb == nil {
		return fmt.Errorf("hubnet: no callbacks bound")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs error
	if err := t.hub.Heartbeat(ctx, t.self, t.profile); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("heartbeat: %w", err))
	}
	errs = multierr.Append(errs, t.flush(ctx))
	errs = multierr.Append(errs, t.receive(ctx))
	errs = multierr.Append(errs, t.receipts(ctx))
	errs = multierr.Append(errs, t.presence(ctx))

	t.cb.OnTick()
	return errs
}

// flush posts buffered envelopes in order, keeping whatever failed.
func (t *Transport) flush(ctx context.Context) error {
	for i, env := range t.outbox {
		if err := t.hub.SendMessage(ctx, env); err != nil {
			t.outbox = t.outbox[i:]
			return fmt.Errorf("send: %w", err)
		}
	}
	t.outbox = t.outbox[:0]
	return nil
}

func (t *Transport) receive(ctx context.Context) error {
	envs, err := t.hub.FetchMessages(ctx, t.self, t.fetchLimit)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if len(envs) == 0 {
		return nil
	}

	for _, env := range envs {
		if env.ID != "" {
			if t.seen.Contains(env.ID) {
				continue
			}
			t.seen.Add(env.ID, struct{}{})
		}
		a, ok := t.byKey[env.From]
		if !ok {
			t.cb.OnPeerRequest(env.From, env.Text)
			if a, ok = t.byKey[env.From]; !ok {
				t.log.Debug("dropping message from unknown peer", zap.String("key", env.From.Short()))
				continue
			}
		}
		t.cb.OnMessageReceived(a, env.Text)
	}

	if err := t.hub.AckMessages(ctx, t.self, len(envs)); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

func (t *Transport) receipts(ctx context.Context) error {
	rs, err := t.hub.FetchReceipts(ctx, t.self)
	if err != nil {
		return fmt.Errorf("receipts: %w", err)
	}
	for _, r := range rs {
		if a, ok := t.byKey[r.To]; ok {
			t.cb.OnSendAcknowledged(a, r.Seq)
		}
	}
	return nil
}

func (t *Transport) presence(ctx context.Context) error {
	var errs error
	for _, a := range slices.Sorted(maps.Keys(t.peers)) {
		p := t.peers[a]
		st, err := t.hub.Presence(ctx, p.key)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("presence %s: %w", p.key.Short(), err))
			continue
		}
		if st.Online != p.online {
			p.online = st.Online
			t.log.Info("peer connectivity", zap.Uint32("alias", uint32(a)), zap.Bool("online", st.Online))
			t.cb.OnConnectivityChanged(a, st.Online)
		}
	}
	return errs
}
