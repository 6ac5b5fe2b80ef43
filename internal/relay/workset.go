package relay

import (
	"maps"
	"slices"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// WorkSet is the set of aliases with connected, deliverable backlog.
type WorkSet struct {
	members map[domain.Alias]struct{}
}

func newWorkSet() *WorkSet {
	return &WorkSet{members: make(map[domain.Alias]struct{})}
}

func (w *WorkSet) add(a domain.Alias)    { w.members[a] = struct{}{} }
func (w *WorkSet) remove(a domain.Alias) { delete(w.members, a) }

// Contains reports whether a has pending, deliverable work.
func (w *WorkSet) Contains(a domain.Alias) bool {
	_, ok := w.members[a]
	return ok
}

// Len returns the number of members.
func (w *WorkSet) Len() int { return len(w.members) }

// Sorted returns the members in ascending order, the order a tick visits them.
func (w *WorkSet) Sorted() []domain.Alias {
	return slices.Sorted(maps.Keys(w.members))
}
