package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/metrics"
	"github.com/Aesylwinn/tox-forward/internal/relay/command"
)

// DefaultResendInterval is how long an unacknowledged line waits before it
// is sent again.
const DefaultResendInterval = 10 * time.Second

// DefaultAckWindow treats sequence ids as 32-bit serial numbers.
const DefaultAckWindow = 1 << 31

// Options tunes an Engine. Zero values pick the defaults.
type Options struct {
	ResendInterval time.Duration
	// AckWindow is how far past the last sent sequence an ack may be and
	// still match it.
	AckWindow uint32
	// Allowed keys are admitted when the transport raises a peer request.
	Allowed []domain.PeerKey

	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Relay
}

// Engine is the relay facade. It implements domain.Callbacks.
type Engine struct {
	tr   domain.Transport
	dir  *Directory
	work *WorkSet

	allowed map[domain.PeerKey]struct{}

	resendInterval time.Duration
	ackWindow      uint32

	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Relay
}

var _ domain.Callbacks = (*Engine)(nil)

// New builds an Engine and binds it to tr.
func New(tr domain.Transport, opts Options) *Engine {
	if opts.ResendInterval <= 0 {
		opts.ResendInterval = DefaultResendInterval
	}
	if opts.AckWindow == 0 {
		opts.AckWindow = DefaultAckWindow
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	e := &Engine{
		tr:             tr,
		dir:            newDirectory(),
		work:           newWorkSet(),
		allowed:        make(map[domain.PeerKey]struct{}, len(opts.Allowed)),
		resendInterval: opts.ResendInterval,
		ackWindow:      opts.AckWindow,
		clock:          opts.Clock,
		log:            opts.Logger.Named("relay"),
		metrics:        opts.Metrics,
	}
	for _, k := range opts.Allowed {
		e.allowed[k] = struct{}{}
	}
	tr.Bind(e)
	return e
}

// RegisterAllowed admits key without a handshake and creates its record.
// On failure no record is created.
func (e *Engine) RegisterAllowed(key domain.PeerKey) (domain.Alias, error) {
	a, err := e.tr.RegisterPeerNoHandshake(key)
	if err != nil {
		return domain.NoAlias, fmt.Errorf("register %s: %w", key.Short(), err)
	}
	e.allowed[key] = struct{}{}
	e.dir.get(a)
	e.log.Info("peer allowed", zap.Uint32("alias", uint32(a)), zap.String("key", key.Short()))
	return a, nil
}

// RegisterAll admits every key, continuing past failures. The returned
// error combines all failures.
func (e *Engine) RegisterAll(keys []domain.PeerKey) error {
	var errs error
	for _, k := range keys {
		if _, err := e.RegisterAllowed(k); err != nil {
			e.log.Warn("could not allow peer", zap.String("key", k.Short()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// OnConnectivityChanged keeps the WorkSet in step with a peer going online
// or offline. In-flight state is kept so the same head is retried later.
func (e *Engine) OnConnectivityChanged(a domain.Alias, online bool) {
	p := e.dir.get(a)
	switch {
	case online && len(p.Queue) > 0:
		e.work.add(a)
	case !online:
		e.work.remove(a)
	}
	e.log.Debug("connectivity", zap.Uint32("alias", uint32(a)), zap.Bool("online", online))
	e.observe()
}

// OnSendAcknowledged pops the head of a's queue if seq matches the
// outstanding send. Anything else is a stale ack and ignored.
func (e *Engine) OnSendAcknowledged(a domain.Alias, seq domain.Sequence) {
	e.acknowledge(a, seq)
	e.observe()
}

// OnMessageReceived interprets commands and routes everything else.
func (e *Engine) OnMessageReceived(a domain.Alias, payload string) {
	sender := e.dir.get(a)
	switch cmd := command.Parse(payload).(type) {
	case command.NotACommand:
		e.route(sender, payload)
	default:
		e.execute(sender, cmd)
	}
	e.observe()
}

// OnPeerRequest admits keys on the allow-list and ignores the rest.
func (e *Engine) OnPeerRequest(key domain.PeerKey, _ string) {
	if _, ok := e.allowed[key]; !ok {
		e.log.Info("ignoring request from peer not on allow-list", zap.String("key", key.Short()))
		return
	}
	if _, err := e.RegisterAllowed(key); err != nil {
		e.log.Warn("could not admit requesting peer", zap.String("key", key.Short()), zap.Error(err))
	}
}

// OnTick runs one delivery step.
func (e *Engine) OnTick() {
	e.tick()
	e.observe()
}

// Enqueue appends line to a's queue verbatim.
func (e *Engine) Enqueue(a domain.Alias, line string) {
	e.enqueue(e.dir.get(a), line)
	e.observe()
}

func (e *Engine) enqueue(p *PeerRecord, line string) {
	p.push(line)
	if e.tr.IsPeerConnected(p.Alias) {
		e.work.add(p.Alias)
	}
}

func (e *Engine) observe() { e.metrics.SetWorkSetSize(e.work.Len()) }

// Peer returns a copy of a's record.
func (e *Engine) Peer(a domain.Alias) (PeerRecord, bool) {
	p, ok := e.dir.lookup(a)
	if !ok {
		return PeerRecord{}, false
	}
	return p.clone(), true
}

// InWorkSet reports whether a has connected backlog.
func (e *Engine) InWorkSet(a domain.Alias) bool { return e.work.Contains(a) }

// WorkSet returns the current members in tick order.
func (e *Engine) WorkSet() []domain.Alias { return e.work.Sorted() }

// Peers returns the number of known peers.
func (e *Engine) Peers() int { return e.dir.Len() }

// CheckInvariants verifies WorkSet membership against connectivity and
// backlog, and that every nickname table is an exact inverse of its reverse.
func (e *Engine) CheckInvariants() error {
	var errs error
	for _, a := range e.work.Sorted() {
		if _, ok := e.dir.lookup(a); !ok {
			errs = multierr.Append(errs, fmt.Errorf("alias %d in work set without record", a))
		}
	}
	for _, a := range e.dir.aliases() {
		p := e.dir.peers[a]
		want := e.tr.IsPeerConnected(a) && len(p.Queue) > 0
		if got := e.work.Contains(a); got != want {
			errs = multierr.Append(errs, fmt.Errorf("alias %d: in work set %v, want %v", a, got, want))
		}
		if len(p.Aliases) != len(p.ReverseAliases) {
			errs = multierr.Append(errs, fmt.Errorf("alias %d: %d names for %d keys", a, len(p.Aliases), len(p.ReverseAliases)))
		}
		for name, key := range p.Aliases {
			if p.ReverseAliases[key] != name {
				errs = multierr.Append(errs, fmt.Errorf("alias %d: %q -> %s not mirrored", a, name, key.Short()))
			}
		}
	}
	if errs != nil {
		return errors.Join(errInvariant, errs)
	}
	return nil
}

var errInvariant = errors.New("relay invariant violated")
