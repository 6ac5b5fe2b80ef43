// Package metrics holds the forwarder's Prometheus collectors.
//
// A nil *Relay is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "forwarder"

// Relay groups the counters updated by the relay engine.
type Relay struct {
	relayed    prometheus.Counter
	dropped    prometheus.Counter
	sends      prometheus.Counter
	resends    prometheus.Counter
	sendErrors prometheus.Counter
	acks       prometheus.Counter
	staleAcks  prometheus.Counter
	commands   *prometheus.CounterVec
	workSet    prometheus.Gauge
}

// NewRelay creates the collectors and registers them with reg.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_relayed_total",
			Help: "Peer messages enqueued for a destination.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_total",
			Help: "Peer messages dropped because the sender has no destination.",
		}),
		sends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sends_total",
			Help: "First delivery attempts of a queued item.",
		}),
		resends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resends_total",
			Help: "Timeout-driven retransmissions.",
		}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "send_errors_total",
			Help: "Sends refused by the transport.",
		}),
		acks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acks_total",
			Help: "Acknowledgments that completed a delivery.",
		}),
		staleAcks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stale_acks_total",
			Help: "Acknowledgments ignored as stale or unexpected.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "In-band commands handled, by verb and outcome.",
		}, []string{"verb", "outcome"}),
		workSet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "workset_size",
			Help: "Peers with connected, deliverable backlog.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.relayed, m.dropped, m.sends, m.resends, m.sendErrors,
			m.acks, m.staleAcks, m.commands, m.workSet)
	}
	return m
}

// IncRelayed counts a routed peer message.
func (m *Relay) IncRelayed() {
	if m != nil {
		m.relayed.Inc()
	}
}

// IncDropped counts a peer message with nowhere to go.
func (m *Relay) IncDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

// IncSend counts a first send of a queue head.
func (m *Relay) IncSend() {
	if m != nil {
		m.sends.Inc()
	}
}

// IncResend counts a retransmission.
func (m *Relay) IncResend() {
	if m != nil {
		m.resends.Inc()
	}
}

// IncSendError counts a send the transport refused.
func (m *Relay) IncSendError() {
	if m != nil {
		m.sendErrors.Inc()
	}
}

// IncAck counts an acknowledgment that popped a queue head.
func (m *Relay) IncAck() {
	if m != nil {
		m.acks.Inc()
	}
}

// IncStaleAck counts an ignored acknowledgment.
func (m *Relay) IncStaleAck() {
	if m != nil {
		m.staleAcks.Inc()
	}
}

// ObserveCommand counts a handled command; ok reports whether it succeeded.
func (m *Relay) ObserveCommand(verb string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.commands.WithLabelValues(verb, outcome).Inc()
}

// SetWorkSetSize records the current WorkSet cardinality.
func (m *Relay) SetWorkSetSize(n int) {
	if m != nil {
		m.workSet.Set(float64(n))
	}
}
