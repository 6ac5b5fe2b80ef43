package relay_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/relay"
	"github.com/Aesylwinn/tox-forward/internal/relay/command"
	"github.com/Aesylwinn/tox-forward/internal/transport/memnet"
)

type harness struct {
	t   *testing.T
	net *memnet.Network
	clk *clock.Mock
	eng *relay.Engine
	n   int
}

func newHarness(t *testing.T, opts relay.Options) *harness {
	t.Helper()
	net := memnet.New()
	clk := clock.NewMock()
	opts.Clock = clk
	opts.Logger = zaptest.NewLogger(t)
	return &harness{t: t, net: net, clk: clk, eng: relay.New(net, opts)}
}

func testKey(i int) domain.PeerKey { return domain.PeerKey(fmt.Sprintf("%064x", i)) }

// addPeer allow-lists a fresh key and optionally brings it online.
func (h *harness) addPeer(online bool) (domain.Alias, domain.PeerKey) {
	h.t.Helper()
	h.n++
	key := testKey(h.n)
	a, err := h.eng.RegisterAllowed(key)
	require.NoError(h.t, err)
	if online {
		h.net.SetOnline(a, true)
		h.step()
	}
	return a, key
}

// step runs one driver iteration and checks the engine's invariants.
func (h *harness) step() {
	h.t.Helper()
	require.NoError(h.t, h.net.Iterate(context.Background()))
	require.NoError(h.t, h.eng.CheckInvariants())
}

func (h *harness) say(from domain.Alias, text string) {
	h.t.Helper()
	h.net.Deliver(from, text)
	h.step()
}

func (h *harness) peer(a domain.Alias) relay.PeerRecord {
	h.t.Helper()
	p, ok := h.eng.Peer(a)
	require.True(h.t, ok, "no record for alias %d", a)
	return p
}

func TestRegisterAllowed_Rejected(t *testing.T) {
	h := newHarness(t, relay.Options{})
	h.net.Reject(testKey(9))

	a, err := h.eng.RegisterAllowed(testKey(9))
	assert.ErrorIs(t, err, domain.ErrPeerRejected)
	assert.Equal(t, domain.NoAlias, a)
	assert.Zero(t, h.eng.Peers())
}

func TestRegisterAll_ContinuesPastFailures(t *testing.T) {
	h := newHarness(t, relay.Options{})
	h.net.Reject(testKey(2))

	err := h.eng.RegisterAll([]domain.PeerKey{testKey(1), testKey(2), testKey(3)})
	assert.ErrorIs(t, err, domain.ErrPeerRejected)
	assert.Equal(t, 2, h.eng.Peers())
}

func TestWorkSet_FollowsConnectivityAndBacklog(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(false)

	h.say(alice, "!forward "+carolKey.String())
	h.say(alice, "hi")
	assert.False(t, h.eng.InWorkSet(carol), "offline peer must not be in work set")
	assert.Equal(t, []string{"hi"}, h.peer(carol).Queue)

	h.net.SetOnline(carol, true)
	h.step()
	assert.True(t, h.eng.InWorkSet(carol))
	assert.Equal(t, []string{"hi"}, h.net.SentTo(carol))

	h.net.SetOnline(carol, false)
	h.step()
	assert.False(t, h.eng.InWorkSet(carol))

	// Online with an empty queue stays out.
	h.net.Ack(carol, 0)
	h.net.SetOnline(carol, true)
	h.step()
	assert.Empty(t, h.peer(carol).Queue)
	assert.False(t, h.eng.InWorkSet(carol))
}

func TestDelivery_FIFO(t *testing.T) {
	h := newHarness(t, relay.Options{})
	h.net.SetAutoAck(true)
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())

	var want []string
	for i := 0; i < 5; i++ {
		msg := fmt.Sprintf("m%d", i)
		want = append(want, msg)
		h.net.Deliver(alice, msg)
	}
	for i := 0; i < 10; i++ {
		h.step()
	}

	assert.Equal(t, want, h.net.SentTo(carol))
	assert.Empty(t, h.peer(carol).Queue)
	assert.False(t, h.eng.InWorkSet(carol))
}

func TestDelivery_SingleInFlight(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())

	h.net.Deliver(alice, "one")
	h.net.Deliver(alice, "two")
	h.net.Deliver(alice, "three")
	h.step()
	h.step()
	h.step()

	assert.Equal(t, []string{"one"}, h.net.SentTo(carol))
	p := h.peer(carol)
	assert.True(t, p.InFlight)
	assert.Equal(t, domain.Sequence(0), p.LastSentSequence)
	assert.Len(t, p.Queue, 3)

	h.net.Ack(carol, 0)
	h.step()
	assert.Equal(t, []string{"one", "two"}, h.net.SentTo(carol))
	assert.Equal(t, domain.Sequence(1), h.peer(carol).LastSentSequence)
}

func TestDelivery_ResendIsVerbatim(t *testing.T) {
	h := newHarness(t, relay.Options{ResendInterval: 10 * time.Second})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())
	h.say(alice, "hello there")
	require.Equal(t, []string{"hello there"}, h.net.SentTo(carol))

	h.clk.Add(10 * time.Second)
	h.step()
	assert.Len(t, h.net.SentTo(carol), 1, "resend only once the interval is exceeded")

	h.clk.Add(time.Millisecond)
	h.step()
	assert.Equal(t, []string{"hello there", "hello there"}, h.net.SentTo(carol))
	p := h.peer(carol)
	assert.True(t, p.InFlight)
	assert.Equal(t, domain.Sequence(0), p.LastSentSequence)
	assert.Equal(t, h.clk.Now(), p.LastSentAt)

	// The transport numbered the resend 1; an ack for it covers the original.
	h.net.Ack(carol, 1)
	h.step()
	p = h.peer(carol)
	assert.False(t, p.InFlight)
	assert.Empty(t, p.Queue)
	assert.False(t, h.eng.InWorkSet(carol))
}

func TestAck_StaleIsIgnored(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())

	// Ack with nothing in flight.
	h.net.Ack(carol, 0)
	h.step()

	h.say(alice, "first")
	h.say(alice, "second")
	h.net.Ack(carol, 0)
	h.step()
	require.Equal(t, []string{"first", "second"}, h.net.SentTo(carol))
	require.Equal(t, domain.Sequence(1), h.peer(carol).LastSentSequence)

	// A duplicate ack for the first line must not complete the second.
	h.net.Ack(carol, 0)
	h.step()
	p := h.peer(carol)
	assert.True(t, p.InFlight)
	assert.Equal(t, []string{"second"}, p.Queue)
}

func TestAck_AcrossSequenceWrap(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())
	h.net.SetNextSequence(carol, math.MaxUint32)

	h.say(alice, "edge")
	require.Equal(t, domain.Sequence(math.MaxUint32), h.peer(carol).LastSentSequence)

	h.net.Ack(carol, math.MaxUint32-1)
	h.step()
	assert.True(t, h.peer(carol).InFlight, "an ack from before the send is stale")

	h.net.Ack(carol, 0)
	h.step()
	assert.False(t, h.peer(carol).InFlight)
	assert.Empty(t, h.peer(carol).Queue)
}

func TestDisconnect_KeepsInFlightForRetry(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())
	h.say(alice, "x")

	h.net.SetOnline(carol, false)
	h.step()
	assert.False(t, h.eng.InWorkSet(carol))
	assert.True(t, h.peer(carol).InFlight)

	h.clk.Add(time.Minute)
	h.step()
	assert.Equal(t, []string{"x"}, h.net.SentTo(carol), "no sends while offline")

	h.net.SetOnline(carol, true)
	h.step()
	assert.Equal(t, []string{"x", "x"}, h.net.SentTo(carol))
	assert.Equal(t, domain.Sequence(0), h.peer(carol).LastSentSequence)
}

func TestDelivery_SendFailureBacksOff(t *testing.T) {
	h := newHarness(t, relay.Options{ResendInterval: 5 * time.Second})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(true)
	h.say(alice, "!forward "+carolKey.String())

	h.net.FailSends(errors.New("link down"))
	h.say(alice, "x")
	assert.False(t, h.peer(carol).InFlight)
	assert.True(t, h.eng.InWorkSet(carol))

	h.net.FailSends(nil)
	h.step()
	assert.Empty(t, h.net.SentTo(carol))

	h.clk.Add(5 * time.Second)
	h.step()
	assert.Equal(t, []string{"x"}, h.net.SentTo(carol))
	assert.True(t, h.peer(carol).InFlight)
}

func TestRouter_SenderChangeMarker(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, aliceKey := h.addPeer(false)
	bob, bobKey := h.addPeer(false)
	carol, carolKey := h.addPeer(false)

	h.say(alice, "!forward "+carolKey.String())
	h.say(bob, "!forward "+carolKey.String())

	h.say(alice, "a1")
	h.say(bob, "b1")
	h.say(bob, "b2")
	h.say(alice, "a2")

	assert.Equal(t, []string{
		"a1",
		command.SenderMarker(bobKey.String()),
		"b1",
		"b2",
		command.SenderMarker(aliceKey.String()),
		"a2",
	}, h.peer(carol).Queue)
	assert.Equal(t, alice, h.peer(carol).LastSender)
}

func TestRouter_MarkerUsesReceiversNickname(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	bob, bobKey := h.addPeer(false)
	carol, carolKey := h.addPeer(false)

	h.say(carol, "!alias bobby "+bobKey.String())
	h.say(alice, "!forward "+carolKey.String())
	h.say(bob, "!forward "+carolKey.String())
	h.say(alice, "a1")
	h.say(bob, "b1")

	q := h.peer(carol).Queue
	require.Len(t, q, 4)
	assert.True(t, strings.HasPrefix(q[0], "!server "))
	assert.Equal(t, []string{"a1", command.SenderMarker("bobby"), "b1"}, q[1:])
}

func TestRouter_NoDestinationDrops(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(true)
	carol, _ := h.addPeer(true)

	h.say(alice, "anyone?")
	assert.Empty(t, h.peer(alice).Queue)
	assert.Empty(t, h.peer(carol).Queue)
	assert.Empty(t, h.net.Sent())
}

func TestRouter_EscapesSigilText(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(false)
	h.say(alice, "!forward "+carolKey.String())
	before := len(h.peer(alice).Queue)

	h.say(alice, "!shrug")
	h.say(alice, "!help")

	assert.Equal(t, []string{"!!shrug"}, h.peer(carol).Queue)
	q := h.peer(alice).Queue
	require.Len(t, q, before+1)
	assert.Equal(t, command.ServerReply(command.HelpText), q[before])
}

func TestServerReply_DoesNotTouchLastSender(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(false)
	h.say(alice, "!forward "+carolKey.String())

	h.say(alice, "a1")
	h.say(carol, "!help")
	h.say(alice, "a2")

	assert.Equal(t, []string{"a1", command.ServerReply(command.HelpText), "a2"}, h.peer(carol).Queue)
	assert.Equal(t, alice, h.peer(carol).LastSender)
}

func TestCommand_AliasThenForwardMatchesRawKey(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	dave, _ := h.addPeer(false)
	bob, bobKey := h.addPeer(false)

	h.say(alice, "!alias bob "+strings.ToUpper(bobKey.String()))
	h.say(alice, "!forward bob")
	h.say(dave, "!forward "+bobKey.String())

	assert.Equal(t, bob, h.peer(alice).CurrentReceiver)
	assert.Equal(t, h.peer(dave).CurrentReceiver, h.peer(alice).CurrentReceiver)
	assert.Equal(t, map[string]domain.PeerKey{"bob": bobKey}, h.peer(alice).Aliases)
	assert.Equal(t, map[domain.PeerKey]string{bobKey: "bob"}, h.peer(alice).ReverseAliases)
}

func TestCommand_ForwardUnknownName(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	carol, carolKey := h.addPeer(false)

	h.say(alice, "!forward nonexistent-name")
	assert.Equal(t, domain.NoAlias, h.peer(alice).CurrentReceiver)
	assert.Equal(t, []string{command.ServerReply("no peer named nonexistent-name")}, h.peer(alice).Queue)

	h.say(alice, "!forward "+carolKey.String())
	n := len(h.peer(alice).Queue)
	h.say(alice, "!forward nonexistent-name")
	assert.Equal(t, carol, h.peer(alice).CurrentReceiver)
	assert.Len(t, h.peer(alice).Queue, n+1)
}

func TestCommand_AliasErrorsMutateNothing(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)

	h.say(alice, "!alias")
	h.say(alice, "!alias bob")
	h.say(alice, "!alias bob "+testKey(99).String())
	h.say(alice, "!forward")

	p := h.peer(alice)
	assert.Empty(t, p.Aliases)
	assert.Empty(t, p.ReverseAliases)
	assert.Equal(t, domain.NoAlias, p.CurrentReceiver)
	assert.Equal(t, []string{
		command.ServerReply("usage: !alias <name> <key>"),
		command.ServerReply("usage: !alias <name> <key>"),
		command.ServerReply("unknown peer key " + testKey(99).String()),
		command.ServerReply("usage: !forward <name|key>"),
	}, p.Queue)
}

func TestCommand_AliasTablesStayInverse(t *testing.T) {
	h := newHarness(t, relay.Options{})
	alice, _ := h.addPeer(false)
	_, k1 := h.addPeer(false)
	_, k2 := h.addPeer(false)

	h.say(alice, "!alias bob "+k1.String())
	h.say(alice, "!alias bob "+k2.String())
	p := h.peer(alice)
	assert.Equal(t, map[string]domain.PeerKey{"bob": k2}, p.Aliases)
	assert.Equal(t, map[domain.PeerKey]string{k2: "bob"}, p.ReverseAliases)

	h.say(alice, "!alias carol "+k2.String())
	p = h.peer(alice)
	assert.Equal(t, map[string]domain.PeerKey{"carol": k2}, p.Aliases)
	assert.Equal(t, map[domain.PeerKey]string{k2: "carol"}, p.ReverseAliases)
}

func TestOnPeerRequest_AllowListOnly(t *testing.T) {
	h := newHarness(t, relay.Options{Allowed: []domain.PeerKey{testKey(7)}})

	h.net.Request(testKey(7), "let me in")
	h.net.Request(testKey(8), "me too")
	h.step()

	_, ok := h.net.PeerByKey(testKey(7))
	assert.True(t, ok)
	_, ok = h.net.PeerByKey(testKey(8))
	assert.False(t, ok)
	assert.Equal(t, 1, h.eng.Peers())
}

func TestInvariants_RandomSchedule(t *testing.T) {
	h := newHarness(t, relay.Options{})
	rng := rand.New(rand.NewSource(1))

	var peers []domain.Alias
	var keys []domain.PeerKey
	for i := 0; i < 4; i++ {
		a, k := h.addPeer(rng.Intn(2) == 0)
		peers = append(peers, a)
		keys = append(keys, k)
	}
	online := make(map[domain.Alias]bool)

	for i := 0; i < 500; i++ {
		a := peers[rng.Intn(len(peers))]
		switch rng.Intn(6) {
		case 0:
			online[a] = !online[a]
			h.net.SetOnline(a, online[a])
		case 1:
			h.net.Deliver(a, "!forward "+keys[rng.Intn(len(keys))].String())
		case 2, 3:
			h.net.Deliver(a, fmt.Sprintf("msg %d", i))
		case 4:
			if p, _ := h.eng.Peer(a); p.InFlight {
				h.net.Ack(a, p.LastSentSequence)
			}
		case 5:
			h.clk.Add(time.Duration(rng.Intn(15)) * time.Second)
		}
		h.step()
	}
}
