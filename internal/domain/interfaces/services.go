package interfaces

import types "github.com/Aesylwinn/tox-forward/internal/domain/types"

// IdentityService creates and opens the local identity.
type IdentityService interface {
	GenerateIdentity(passphrase string, rotate bool) (types.Identity, error)
	LoadIdentity(passphrase string) (types.Identity, error)
	Address(passphrase string) (types.PeerKey, types.Fingerprint, error)
}
