package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// PeerKeyHexLen is the length of a hex encoded public key.
const PeerKeyHexLen = 2 * len(domain.X25519Public{})

// NormalizeKeyHex lowercases s and truncates or right-pads it with '0' to
// PeerKeyHexLen. It does not check that s is hex; lookups of a malformed key
// simply fail.
func NormalizeKeyHex(s string) domain.PeerKey {
	s = strings.ToLower(s)
	if len(s) >= PeerKeyHexLen {
		return domain.PeerKey(s[:PeerKeyHexLen])
	}
	return domain.PeerKey(s + strings.Repeat("0", PeerKeyHexLen-len(s)))
}

// KeyHex returns the peer key under which pub is known on the network.
func KeyHex(pub domain.X25519Public) domain.PeerKey {
	return domain.PeerKey(hex.EncodeToString(pub[:]))
}

// ParsePeerKey strictly validates s as a full-length hex public key, as used
// for the allow-list where a typo should be reported rather than padded.
func ParsePeerKey(s string) (domain.PeerKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != PeerKeyHexLen {
		return "", fmt.Errorf("peer key %q: want %d hex chars, got %d", s, PeerKeyHexLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("peer key %q: %w", s, err)
	}
	return domain.PeerKey(strings.ToLower(s)), nil
}
