// Package command implements the forwarder's in-band command language.
//
// Grammar (verbs are case-sensitive, arguments cannot contain whitespace):
//
//	!alias <name> <peerKeyHex>
//	!forward <nameOrPeerKeyHex>
//	!help
//
// Parse is pure: it turns a received message into one of the Command
// variants and never touches relay state. Text that is not a command but
// starts with the sigil is escaped by doubling the sigil, so relay-originated
// lines ("!server ...", "!sender ...") stay distinguishable from peer text
// on the wire. Decode is the client-side inverse.
package command
