package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/app"
	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/services/identity"
	"github.com/Aesylwinn/tox-forward/internal/store"
)

const passphraseEnv = "FORWARDER_PASSPHRASE"

var (
	configPath string
	dataDir    string
	passphrase string

	cfg    app.Config
	logger *zap.Logger
)

func Execute() error {
	root := newRootCmd()
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "forwarder",
		Short:        "Relay chat lines between allow-listed peers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg = app.DefaultConfig()
			if configPath != "" {
				if cfg, err = app.LoadConfig(configPath); err != nil {
					return err
				}
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if passphrase == "" {
				passphrase = os.Getenv(passphraseEnv)
			}
			logger, err = app.NewLogger(cfg.LogLevel)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to JSON config file")
	root.PersistentFlags().StringVar(&dataDir, "datadir", "", "data directory (overrides data_dir)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity (or $"+passphraseEnv+")")

	root.AddCommand(initCmd(), addressCmd(), runCmd())
	return root
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p or $%s)", passphraseEnv)
	}
	return nil
}

func identities() domain.IdentityService {
	return identity.New(store.NewIdentityFileStore(cfg.DataDir))
}
