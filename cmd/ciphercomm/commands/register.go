package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ciphercomm/internal/domain"
)

func registerCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish your listen address to the peer directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			w, _, err := wire.Unlock(cmd.Context(), passphrase)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = listenAddr
			}
			if !strings.Contains(addr, "://") {
				addr = "ws://" + addr
			}
			if err := wire.Directory.Register(cmd.Context(), w.Address(), domain.PeerAddr(addr)); err != nil {
				return err
			}
			fmt.Printf("Registered %s -> %s\n", w.Address(), addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "externally reachable address (default derived from --listen)")
	return cmd
}
