package commands

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ciphercomm/internal/app"
)

var (
	home       string
	passphrase string

	ledgerURL    string
	gatewayURL   string
	directoryURL string
	listenAddr   string
	debug        bool

	wire *app.Wire
)

func Execute() error {
	// Optional local overrides; a missing .env is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "ciphercomm",
		Short: "End-to-end encrypted chat with anchored finalization",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".ciphercomm")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			wire, err = app.NewWire(app.Config{
				Home:         home,
				LedgerURL:    ledgerURL,
				GatewayURL:   gatewayURL,
				DirectoryURL: directoryURL,
				ListenAddr:   listenAddr,
				Debug:        debug,
			})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.ciphercomm)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the wallet keystore")
	root.PersistentFlags().StringVar(&ledgerURL, "ledger", envOr("CIPHERCOMM_LEDGER", "http://127.0.0.1:8545"), "anchoring bridge base URL")
	root.PersistentFlags().StringVar(&gatewayURL, "gateway", envOr("CIPHERCOMM_GATEWAY", "http://127.0.0.1:8081"), "pinning gateway base URL")
	root.PersistentFlags().StringVar(&directoryURL, "directory", envOr("CIPHERCOMM_DIRECTORY", "http://127.0.0.1:8082"), "peer directory base URL")
	root.PersistentFlags().StringVar(&listenAddr, "listen", envOr("CIPHERCOMM_LISTEN", "127.0.0.1:9000"), "listen address for inbound peers")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logs")

	root.AddCommand(initCmd(), fingerprintCmd(), registerCmd(), chatCmd())
	return root.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
