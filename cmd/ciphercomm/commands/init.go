package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphercomm/internal/wallet"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local wallet and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if wire.Keystore.Exists() {
				return fmt.Errorf("keystore already exists in %s", home)
			}
			w, err := wallet.Generate()
			if err != nil {
				return err
			}
			if err := wire.Keystore.Save(passphrase, w); err != nil {
				return err
			}
			fmt.Printf("Wallet created.\nAddress: %s\n", w.Address())
			return nil
		},
	}
}
