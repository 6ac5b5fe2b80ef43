package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aesylwinn/tox-forward/internal/crypto"
	"github.com/Aesylwinn/tox-forward/internal/services/identity"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the forwarder identity and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := identities().GenerateIdentity(passphrase, force)
			if errors.Is(err, identity.ErrExists) {
				return fmt.Errorf("%w in %s (use --force to rotate)", err, cfg.DataDir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nAddress:     %s\nFingerprint: %s\n",
				crypto.KeyHex(id.Public), crypto.Fingerprint(id.Public))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}
