package relay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/relay/command"
)

// route queues ordinary text from sender for its current receiver. Without
// a usable receiver the text is dropped silently.
func (e *Engine) route(sender *PeerRecord, payload string) {
	to := sender.CurrentReceiver
	dest, ok := e.dir.lookup(to)
	if !to.Valid() || !ok || !e.tr.PeerExists(to) {
		e.metrics.IncDropped()
		e.log.Debug("no destination, dropping", zap.Uint32("from", uint32(sender.Alias)))
		return
	}

	// The first sender a peer ever hears from is not announced; every later
	// change of sender is.
	if dest.LastSender != sender.Alias {
		if dest.LastSender.Valid() {
			e.enqueue(dest, command.SenderMarker(e.displayName(dest, sender)))
		}
		dest.LastSender = sender.Alias
	}
	e.enqueue(dest, command.Escape(payload))
	e.metrics.IncRelayed()
}

// reply queues relay-originated text for p. It never announces a sender
// and leaves LastSender alone.
func (e *Engine) reply(p *PeerRecord, text string) {
	e.enqueue(p, command.ServerReply(text))
}

// displayName is how viewer sees who: viewer's nickname for who's key if it
// has one, the raw key otherwise.
func (e *Engine) displayName(viewer, who *PeerRecord) string {
	key, ok := e.tr.PeerKey(who.Alias)
	if !ok {
		return fmt.Sprintf("#%d", who.Alias)
	}
	if name, ok := viewer.ReverseAliases[key]; ok {
		return name
	}
	return key.String()
}
