package command

import "strings"

const (
	serverPrefix = Sigil + "server "
	senderPrefix = Sigil + "sender "
)

// HelpText is the reply to !help.
const HelpText = `commands:
  !alias <name> <key>    remember <key> as <name>
  !forward <name|key>    send your following messages to that peer
  !help                  show this text
lines from the forwarder start with "!server", a new sender is announced with "!sender <name>"`

// Escape prepares peer text for delivery: a leading sigil is doubled.
func Escape(payload string) string {
	if strings.HasPrefix(payload, Sigil) {
		return Sigil + payload
	}
	return payload
}

// ServerReply wraps relay-originated text.
func ServerReply(text string) string { return serverPrefix + text }

// SenderMarker announces that the following lines come from name.
func SenderMarker(name string) string { return senderPrefix + name }

// Kind classifies a delivered line.
type Kind int

const (
	KindText Kind = iota
	KindServer
	KindSender
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindSender:
		return "sender"
	default:
		return "text"
	}
}

// Decode is the receiving client's view of a delivered line.
func Decode(line string) (Kind, string) {
	switch {
	case strings.HasPrefix(line, Sigil+Sigil):
		return KindText, line[len(Sigil):]
	case strings.HasPrefix(line, serverPrefix):
		return KindServer, line[len(serverPrefix):]
	case strings.HasPrefix(line, senderPrefix):
		return KindSender, line[len(senderPrefix):]
	default:
		return KindText, line
	}
}
