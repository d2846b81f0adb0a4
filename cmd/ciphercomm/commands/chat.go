package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ciphercomm/internal/domain"
	"ciphercomm/internal/protocol/fingerprint"
	"ciphercomm/internal/services/session"
)

// chatCmd runs the interactive chat loop. With a peer argument it dials
// out (resolving 0x party addresses through the directory); without one
// it waits for an inbound connection on the listen address.
func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [peer]",
		Short: "Connect to a peer (or wait for one) and talk",
		Long: `Connect to a peer and exchange end-to-end encrypted messages.

Inside the chat:
  /file <path>   send a file
  /finalize      anchor the chat fingerprint and announce it
  /hash          print the current chat fingerprint
  /quit          close the session and exit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			w, id, err := wire.Unlock(cmd.Context(), passphrase)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			ready := make(chan *session.Session, 1)
			hooks := session.Hooks{
				OnState: func(s *session.Session, st domain.SessionState) {
					switch st {
					case domain.SessionKeyExchanged:
						fmt.Printf("[secure channel established with %s]\n", s.Peer())
						select {
						case ready <- s:
						default:
						}
					case domain.SessionClosed:
						fmt.Println("[connection closed]")
					case domain.SessionErrored:
						fmt.Println("[connection failed]")
					}
				},
				OnMessage: func(s *session.Session, m domain.ChatMessage) {
					if m.Failed {
						fmt.Printf("[%s] <undecryptable message: %s>\n", m.Sender, m.Error)
						return
					}
					fmt.Printf("[%s] %s\n", m.Sender, m.Text)
				},
			}

			chat := wire.NewChat(id, w.Address(), hooks)
			chat.Files.OnUpdate = func(_ *session.Session, m domain.ChatMessage) {
				fmt.Println(m.Text)
			}
			chat.Finalizer.OnUpdate = func(_ *session.Session, r domain.FinalizationRecord) {
				fmt.Printf("[finalization %s: local=%s chain=%s]\n",
					r.Verified, r.VerifiedLocally, r.VerifiedOnChain)
			}

			if len(args) == 1 {
				target := args[0]
				if strings.HasPrefix(target, "0x") {
					resolved, err := wire.Directory.Resolve(ctx, domain.PartyID(target))
					if err != nil {
						return fmt.Errorf("resolve %s: %w", target, err)
					}
					target = string(resolved)
				}
				if _, err := chat.Manager.Connect(ctx, target); err != nil {
					return err
				}
			} else {
				ln, err := wire.Transport.Listen(domain.PeerAddr(listenAddr))
				if err != nil {
					return err
				}
				defer ln.Close()
				fmt.Printf("Waiting for a peer on %s...\n", ln.Addr())
				go chat.Manager.Serve(ctx, ln)
			}

			// Chatting starts once the handshake delivered the peer key.
			var sess *session.Session
			select {
			case sess = <-ready:
			case <-ctx.Done():
				return ctx.Err()
			}

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue

				case line == "/quit":
					return sess.Close()

				case line == "/hash":
					msgs := sess.Messages()
					if len(msgs) == 0 {
						fmt.Println("no messages yet")
						continue
					}
					fmt.Println(fingerprint.Compute(msgs))

				case line == "/finalize":
					rec, err := chat.Finalizer.Propose(ctx, sess)
					if err != nil {
						fmt.Printf("finalize: %v\n", err)
						continue
					}
					fmt.Printf("[anchored %s in %s]\n", rec.Hash, rec.TxHash)

				case strings.HasPrefix(line, "/file "):
					path := strings.TrimSpace(strings.TrimPrefix(line, "/file "))
					data, err := os.ReadFile(path)
					if err != nil {
						fmt.Printf("read %s: %v\n", path, err)
						continue
					}
					if _, err := chat.Files.Send(ctx, sess, filepath.Base(path), data); err != nil {
						fmt.Printf("send file: %v\n", err)
					}

				default:
					if _, err := chat.Manager.SendText(sess, line); err != nil {
						fmt.Printf("send: %v\n", err)
					}
				}
			}
			return scanner.Err()
		},
	}
	return cmd
}
