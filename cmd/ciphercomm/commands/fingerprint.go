package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the wallet address and derived chat public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			w, id, err := wire.Unlock(cmd.Context(), passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Address:  %s\nChat key: %s\n", w.Address(), id.Public)
			return nil
		},
	}
}
