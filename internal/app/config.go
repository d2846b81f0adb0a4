package app

import "net/http"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string       // config directory, e.g. $HOME/.ciphercomm
	LedgerURL    string       // anchoring bridge base URL
	GatewayURL   string       // pinning gateway base URL
	DirectoryURL string       // peer registry base URL
	ListenAddr   string       // local listen address for inbound peers
	Debug        bool         // verbose, human-readable logs
	HTTP         *http.Client // optional; defaults to http.DefaultClient
}
