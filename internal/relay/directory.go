package relay

import (
	"maps"
	"slices"
	"time"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// PeerRecord is everything the relay keeps about one peer.
type PeerRecord struct {
	Alias domain.Alias

	// CurrentReceiver is where this peer's ordinary messages go.
	CurrentReceiver domain.Alias
	// LastSender is the last peer whose text was queued for this peer.
	LastSender domain.Alias

	// Queue holds undelivered lines, head first.
	Queue []string

	InFlight         bool
	LastSentSequence domain.Sequence
	LastSentAt       time.Time

	// Aliases maps nickname to key, ReverseAliases key to nickname. The two
	// are always exact inverses.
	Aliases        map[string]domain.PeerKey
	ReverseAliases map[domain.PeerKey]string

	// retryAt delays the next first-send after the transport refused one.
	retryAt time.Time
}

func newPeerRecord(a domain.Alias) *PeerRecord {
	return &PeerRecord{
		Alias:           a,
		CurrentReceiver: domain.NoAlias,
		LastSender:      domain.NoAlias,
		Aliases:         make(map[string]domain.PeerKey),
		ReverseAliases:  make(map[domain.PeerKey]string),
	}
}

func (p *PeerRecord) push(line string) { p.Queue = append(p.Queue, line) }

func (p *PeerRecord) head() string { return p.Queue[0] }

func (p *PeerRecord) pop() {
	p.Queue[0] = ""
	p.Queue = p.Queue[1:]
	if len(p.Queue) == 0 {
		p.Queue = nil
	}
}

// setAlias records name <-> key, dropping whatever either side was bound to
// before so the two tables stay inverse.
func (p *PeerRecord) setAlias(name string, key domain.PeerKey) {
	if oldKey, ok := p.Aliases[name]; ok {
		delete(p.ReverseAliases, oldKey)
	}
	if oldName, ok := p.ReverseAliases[key]; ok {
		delete(p.Aliases, oldName)
	}
	p.Aliases[name] = key
	p.ReverseAliases[key] = name
}

// clone returns a deep copy safe to hand out of the engine.
func (p *PeerRecord) clone() PeerRecord {
	c := *p
	c.Queue = slices.Clone(p.Queue)
	c.Aliases = maps.Clone(p.Aliases)
	c.ReverseAliases = maps.Clone(p.ReverseAliases)
	return c
}

// Directory owns one PeerRecord per alias. Records are never evicted.
type Directory struct {
	peers map[domain.Alias]*PeerRecord
}

func newDirectory() *Directory {
	return &Directory{peers: make(map[domain.Alias]*PeerRecord)}
}

// get returns the record for a, creating it on first reference.
func (d *Directory) get(a domain.Alias) *PeerRecord {
	p, ok := d.peers[a]
	if !ok {
		p = newPeerRecord(a)
		d.peers[a] = p
	}
	return p
}

func (d *Directory) lookup(a domain.Alias) (*PeerRecord, bool) {
	p, ok := d.peers[a]
	return p, ok
}

// Len returns the number of known peers.
func (d *Directory) Len() int { return len(d.peers) }

func (d *Directory) aliases() []domain.Alias {
	return slices.Sorted(maps.Keys(d.peers))
}
