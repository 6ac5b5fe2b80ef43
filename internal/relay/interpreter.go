package relay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/crypto"
	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/relay/command"
)

// execute applies a parsed command on behalf of sender. Every outcome,
// success or not, produces exactly one server reply; failures mutate nothing.
func (e *Engine) execute(sender *PeerRecord, cmd command.Command) {
	var ok bool
	switch c := cmd.(type) {
	case command.Alias:
		ok = e.execAlias(sender, c)
	case command.Forward:
		ok = e.execForward(sender, c)
	case command.Help:
		e.reply(sender, command.HelpText)
		ok = true
	default:
		panic(fmt.Sprintf("relay: unexpected command %T reached the interpreter", cmd))
	}
	e.metrics.ObserveCommand(cmd.Verb(), ok)
}

func (e *Engine) execAlias(sender *PeerRecord, c command.Alias) bool {
	if c.Name == "" || c.Key == "" {
		e.reply(sender, "usage: !alias <name> <key>")
		return false
	}
	key := crypto.NormalizeKeyHex(c.Key)
	if _, ok := e.tr.PeerByKey(key); !ok {
		e.reply(sender, fmt.Sprintf("unknown peer key %s", c.Key))
		return false
	}

	sender.setAlias(c.Name, key)
	e.log.Info("alias set", zap.Uint32("alias", uint32(sender.Alias)),
		zap.String("name", c.Name), zap.String("key", key.Short()))
	e.reply(sender, fmt.Sprintf("%s is now %s", c.Name, key))
	return true
}

func (e *Engine) execForward(sender *PeerRecord, c command.Forward) bool {
	if c.Target == "" {
		e.reply(sender, "usage: !forward <name|key>")
		return false
	}
	to, ok := e.resolve(sender, c.Target)
	if !ok {
		e.reply(sender, fmt.Sprintf("no peer named %s", c.Target))
		return false
	}

	e.dir.get(to)
	sender.CurrentReceiver = to
	e.log.Info("forward set", zap.Uint32("alias", uint32(sender.Alias)), zap.Uint32("to", uint32(to)))
	e.reply(sender, fmt.Sprintf("forwarding to %s", c.Target))
	return true
}

// resolve maps a nickname from sender's table, or else a raw key, to the
// alias of a known peer.
func (e *Engine) resolve(sender *PeerRecord, target string) (domain.Alias, bool) {
	key, ok := sender.Aliases[target]
	if !ok {
		key = crypto.NormalizeKeyHex(target)
	}
	return e.tr.PeerByKey(key)
}
