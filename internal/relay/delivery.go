package relay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// tick drives every peer in the WorkSet one step: send the head if nothing
// is in flight, or resend it once the resend interval has passed.
func (e *Engine) tick() {
	now := e.clock.Now()
	for _, a := range e.work.Sorted() {
		p, ok := e.dir.lookup(a)
		if !ok || len(p.Queue) == 0 {
			panic(fmt.Sprintf("relay: alias %d in work set without backlog", a))
		}

		if !p.InFlight {
			if now.Before(p.retryAt) {
				continue
			}
			seq, err := e.tr.SendToPeer(a, p.head())
			if err != nil {
				e.log.Warn("send failed", zap.Uint32("alias", uint32(a)), zap.Error(err))
				e.metrics.IncSendError()
				p.retryAt = now.Add(e.resendInterval)
				continue
			}
			p.InFlight = true
			p.LastSentSequence = seq
			p.LastSentAt = now
			e.metrics.IncSend()
			e.log.Debug("sent", zap.Uint32("alias", uint32(a)), zap.Uint32("seq", uint32(seq)),
				zap.Int("backlog", len(p.Queue)))
			continue
		}

		if now.Sub(p.LastSentAt) > e.resendInterval {
			// Same line, same sequence: only a fresh ack for the original
			// attempt (or a later one) completes it.
			if _, err := e.tr.SendToPeer(a, p.head()); err != nil {
				e.log.Warn("resend failed", zap.Uint32("alias", uint32(a)), zap.Error(err))
				e.metrics.IncSendError()
			} else {
				e.metrics.IncResend()
				e.log.Debug("resent", zap.Uint32("alias", uint32(a)),
					zap.Uint32("seq", uint32(p.LastSentSequence)))
			}
			p.LastSentAt = now
		}
	}
}

// acknowledge completes the in-flight item of a when seq covers it.
func (e *Engine) acknowledge(a domain.Alias, seq domain.Sequence) {
	p, ok := e.dir.lookup(a)
	if !ok || !p.InFlight || !e.covers(seq, p.LastSentSequence) {
		e.metrics.IncStaleAck()
		e.log.Debug("ignoring ack", zap.Uint32("alias", uint32(a)), zap.Uint32("seq", uint32(seq)))
		return
	}

	p.pop()
	p.InFlight = false
	e.metrics.IncAck()
	if len(p.Queue) == 0 {
		e.work.remove(a)
	}
}

// covers reports whether ack is at or after sent. Sequence ids are compared
// as serial numbers, so an ack less than ackWindow ids past sent matches even
// when the counter wrapped in between.
func (e *Engine) covers(ack, sent domain.Sequence) bool {
	return uint32(ack-sent) < e.ackWindow
}
