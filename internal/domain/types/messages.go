package types

// Envelope is the wire-format message posted to and fetched from the hub.
type Envelope struct {
	ID        string   `json:"id,omitempty"`
	From      PeerKey  `json:"from"`
	To        PeerKey  `json:"to"`
	Seq       Sequence `json:"seq"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}

// Receipt tells a sender that the envelope with Seq was fetched and acked
// by To.
type Receipt struct {
	To  PeerKey  `json:"to"`
	Seq Sequence `json:"seq"`
}

// Presence is what a peer publishes about itself with each heartbeat.
type Presence struct {
	Online bool   `json:"online"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}
