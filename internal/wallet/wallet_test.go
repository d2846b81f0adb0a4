package wallet_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"ciphercomm/internal/wallet"
)

func TestWallet_AddressShape(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := string(w.Address())
	if !strings.HasPrefix(addr, "0x") {
		t.Fatalf("address %q missing 0x prefix", addr)
	}
	if len(addr) != 2+40 {
		t.Fatalf("address %q has length %d, want 42", addr, len(addr))
	}
}

func TestWallet_SignDeterministic(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ctx := context.Background()
	a, err := w.SignMessage(ctx, "Login to CipherComm")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := w.SignMessage(ctx, "Login to CipherComm")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same key and message produced different signatures")
	}
}

func TestKeystore_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	ks := wallet.NewFileStore(home)
	if err := ks.Save(pass, w); err != nil {
		t.Fatalf("save wallet: %v", err)
	}

	got, err := ks.Load(pass)
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if got.Address() != w.Address() {
		t.Fatalf("address mismatch after load: %s != %s", got.Address(), w.Address())
	}

	sig1, _ := w.SignMessage(context.Background(), "probe")
	sig2, _ := got.SignMessage(context.Background(), "probe")
	if !bytes.Equal(sig1, sig2) {
		t.Fatal("reloaded wallet signs differently")
	}
}

func TestKeystore_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	ks := wallet.NewFileStore(home)

	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := ks.Save("correct", w); err != nil {
		t.Fatalf("save wallet: %v", err)
	}
	if _, err := ks.Load("wrong"); !errors.Is(err, wallet.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestKeystore_Missing(t *testing.T) {
	ks := wallet.NewFileStore(t.TempDir())
	if ks.Exists() {
		t.Fatal("empty dir reports keystore present")
	}
	if _, err := ks.Load("pass"); !errors.Is(err, wallet.ErrNoKeystore) {
		t.Fatalf("expected ErrNoKeystore, got %v", err)
	}
}
