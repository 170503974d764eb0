package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/silexa/hostctl/internal/config"
	"github.com/silexa/hostctl/internal/createpipeline"
	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	dockerprovider "github.com/silexa/hostctl/internal/provider/docker"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// buildProviders constructs every provider hostctl knows how to talk to.
// Docker is the only one shipped by core (spec.md §4.E); a config naming
// anything else is simply never connected to, not an error, so that
// listing/create commands fail with a clear "unknown provider" at the call
// site instead of here.
func buildProviders(cfg config.Config, log *slog.Logger) ([]provider.Provider, error) {
	signer, pubLine, err := loadOrCreateClientKeypair(filepath.Join(cfg.HostDir, "ssh"))
	if err != nil {
		return nil, fmt.Errorf("client ssh keypair: %w", err)
	}

	dp, err := dockerprovider.New(context.Background(), dockerprovider.Config{
		Prefix:           cfg.Prefix,
		ClientSigner:     signer,
		ClientPublicKey:  pubLine,
		HostKnownHosts:   filepath.Join(cfg.HostDir, "ssh", "known_hosts"),
		OfflineCachePath: filepath.Join(cfg.HostDir, "offline-cache.db"),
		Log:              log,
	})
	if err != nil {
		return nil, err
	}
	return []provider.Provider{dp}, nil
}

// findProvider looks up the provider named name among current.providers,
// defaulting to current.cfg.DefaultProvider when name is empty.
func findProvider(name string) (provider.Provider, error) {
	if name == "" {
		name = current.cfg.DefaultProvider
	}
	for _, p := range current.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// storeHolder is satisfied by any provider that exposes the statestore.Store
// backing its records, so createpipeline.CreateOptions.Store reads and
// writes the same place the provider itself does (spec.md §4.B). Not part
// of provider.Provider itself: an in-principle future provider might have
// no separate store of its own to expose.
type storeHolder interface {
	Store() statestore.Store
}

func storeFor(p provider.Provider) (statestore.Store, error) {
	sh, ok := p.(storeHolder)
	if !ok {
		return nil, fmt.Errorf("provider %s exposes no record store", p.Name())
	}
	return sh.Store(), nil
}

// hostdHost wraps an already-dialed Connector the same way
// createpipeline's own (unexported) defaultHostBuilder does, for
// subcommands that need a *hostd.Host without running the create
// pipeline.
func hostdHost(id ids.HostID, conn transport.Connector, store statestore.Store) *hostd.Host {
	return hostd.New(id, createpipeline.DefaultHostDirPath, createpipeline.DefaultSessionPrefix, conn, store, current.log)
}

// loadOrCreateClientKeypair persists an ed25519 keypair under dir so the
// provider authenticates to every host container with the same identity
// across CLI invocations, rather than minting a new one (and re-copying
// authorized_keys for no reason) on every run.
func loadOrCreateClientKeypair(dir string) (ssh.Signer, string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	keyPath := filepath.Join(dir, "id_ed25519")

	raw, err := os.ReadFile(keyPath)
	if err == nil {
		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", keyPath, err)
		}
		return signer, string(ssh.MarshalAuthorizedKey(signer.PublicKey())), nil
	}
	if !os.IsNotExist(err) {
		return nil, "", err
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", err
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, "", err
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, "", err
	}
	return signer, string(ssh.MarshalAuthorizedKey(signer.PublicKey())), nil
}
