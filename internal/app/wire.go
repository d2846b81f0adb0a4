package app

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"ciphercomm/internal/blobstore"
	"ciphercomm/internal/crypto"
	"ciphercomm/internal/directory"
	"ciphercomm/internal/domain"
	"ciphercomm/internal/ledger"
	"ciphercomm/internal/transport"
	"ciphercomm/internal/wallet"
)

// Wire bundles the adapters and infrastructure for the CLI.
type Wire struct {
	Logger    *zap.Logger
	Keystore  *wallet.FileStore
	Ledger    domain.Ledger
	Blobs     domain.BlobStore
	Directory domain.Directory
	Transport domain.Transport
	HTTP      *http.Client
	Config    Config
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	ledgerClient := ledger.NewHTTP(cfg.LedgerURL)
	ledgerClient.HTTP = httpClient
	gateway := blobstore.NewHTTP(cfg.GatewayURL)
	gateway.HTTP = httpClient
	registry := directory.NewHTTP(cfg.DirectoryURL)
	registry.HTTP = httpClient

	return &Wire{
		Logger:    logger,
		Keystore:  wallet.NewFileStore(cfg.Home),
		Ledger:    ledgerClient,
		Blobs:     gateway,
		Directory: registry,
		Transport: transport.NewWS(),
		HTTP:      httpClient,
		Config:    cfg,
	}, nil
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Unlock opens the keystore and derives the chat identity from the
// wallet's signature over the login challenge.
func (w *Wire) Unlock(ctx context.Context, passphrase string) (*wallet.Wallet, domain.Identity, error) {
	wal, err := w.Keystore.Load(passphrase)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	sig, err := wal.SignMessage(ctx, crypto.LoginChallenge)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	id, err := crypto.DeriveIdentity(sig)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	return wal, id, nil
}
