// Package commands defines the ciphercomm CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init         Create the local wallet keystore
//   - fingerprint  Print the wallet address and chat public key
//   - register     Publish your listen address to the peer directory
//   - chat         Connect to a peer (or wait for one) and talk
//
// # Implementation
//
// The root command loads optional .env settings and builds the adapter
// graph (ledger, gateway, directory, transport) before any subcommand
// runs, so handlers share one app context.
package commands
