package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/transport/memnet"
)

type bogusCommand struct{}

func (bogusCommand) Verb() string { return "bogus" }

func TestExecute_UnknownCommandPanics(t *testing.T) {
	e := New(memnet.New(), Options{})
	p := e.dir.get(0)

	assert.Panics(t, func() { e.execute(p, bogusCommand{}) })
}

func TestTick_WorkSetWithoutBacklogPanics(t *testing.T) {
	e := New(memnet.New(), Options{})
	e.dir.get(3)
	e.work.add(3)

	assert.Panics(t, e.tick)
}

func TestCovers(t *testing.T) {
	e := New(memnet.New(), Options{})

	assert.True(t, e.covers(5, 5))
	assert.True(t, e.covers(6, 5))
	assert.False(t, e.covers(4, 5))
	assert.True(t, e.covers(2, 0xfffffffe))
	assert.False(t, e.covers(0xfffffffd, 0xfffffffe))
}

func TestSetAlias_KeepsTablesInverse(t *testing.T) {
	p := newPeerRecord(1)
	k1, k2 := domain.PeerKey("k1"), domain.PeerKey("k2")

	p.setAlias("a", k1)
	p.setAlias("b", k2)
	p.setAlias("a", k2)

	assert.Equal(t, map[string]domain.PeerKey{"a": k2}, p.Aliases)
	assert.Equal(t, map[domain.PeerKey]string{k2: "a"}, p.ReverseAliases)
}

func TestQueue_PopToEmpty(t *testing.T) {
	p := newPeerRecord(1)
	p.push("x")
	p.push("y")
	p.pop()
	assert.Equal(t, "y", p.head())
	p.pop()
	assert.Nil(t, p.Queue)
}
