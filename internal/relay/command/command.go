package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sigil introduces a command or a relay-originated line.
const Sigil = "!"

// Verbs understood by the forwarder.
const (
	VerbAlias   = "alias"
	VerbForward = "forward"
	VerbHelp    = "help"
)

// Command is the result of parsing one inbound message.
type Command interface {
	// Verb returns the command word, or "" for NotACommand.
	Verb() string
}

// Alias names a peer key for the sender: !alias <name> <peerKeyHex>.
// Missing arguments are left empty and rejected by the interpreter.
type Alias struct {
	Name string
	Key  string
}

// Forward selects the sender's destination: !forward <nameOrPeerKeyHex>.
type Forward struct {
	Target string
}

// Help asks for the usage text.
type Help struct{}

// NotACommand is ordinary payload to be routed.
type NotACommand struct{}

func (Alias) Verb() string       { return VerbAlias }
func (Forward) Verb() string     { return VerbForward }
func (Help) Verb() string        { return VerbHelp }
func (NotACommand) Verb() string { return "" }

// Parse classifies msg. A message is a command iff it starts with the sigil,
// the verb follows the sigil immediately and the verb is known.
func Parse(msg string) Command {
	if !strings.HasPrefix(msg, Sigil) || len(msg) == len(Sigil) {
		return NotACommand{}
	}
	rest := msg[len(Sigil):]
	if r, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(r) {
		return NotACommand{}
	}

	words := strings.Fields(rest)
	args := words[1:]
	switch words[0] {
	case VerbAlias:
		return Alias{Name: arg(args, 0), Key: arg(args, 1)}
	case VerbForward:
		return Forward{Target: arg(args, 0)}
	case VerbHelp:
		return Help{}
	default:
		return NotACommand{}
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
