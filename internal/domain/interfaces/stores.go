package interfaces

import domaintypes "github.com/Aesylwinn/tox-forward/internal/domain/types"

// IdentityStore persists the forwarder's long-term keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	HasIdentity() (bool, error)
}
