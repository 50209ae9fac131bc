// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Command dstore-server runs the content propagation server: it loads
// configuration, wires the session registry, nonce and owner-permission
// caches, the root-history cache, and the external metadata module
// client together, then serves the upload and fetch HTTP surfaces until
// signaled to shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bitfsorg/dstore-go/config"
	"github.com/bitfsorg/dstore-go/datastore"
	"github.com/bitfsorg/dstore-go/external"
	"github.com/bitfsorg/dstore-go/fetch"
	"github.com/bitfsorg/dstore-go/layout"
	"github.com/bitfsorg/dstore-go/noncecache"
	"github.com/bitfsorg/dstore-go/ownercache"
	"github.com/bitfsorg/dstore-go/peers"
	"github.com/bitfsorg/dstore-go/protocol"
	"github.com/bitfsorg/dstore-go/rootcache"
	"github.com/bitfsorg/dstore-go/server"
	"github.com/bitfsorg/dstore-go/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the config file (default $HOME/.dstore/config)")
	initOnly := flag.Bool("init", false, "write a default config file and exit")
	flag.Parse()

	dataDir := config.DefaultDataDir()
	path := *configPath
	if path == "" {
		path = config.ConfigPath(dataDir)
	}

	if *initOnly {
		cfg := config.DefaultConfig()
		if err := config.SaveConfig(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "dstore-server: write default config: %v\n", err)
			return 1
		}
		fmt.Printf("dstore-server: wrote default config to %s\n", path)
		return 0
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dstore-server: load config %s: %v\n", path, err)
		return 1
	}
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "dstore-server: invalid config: %v\n", err)
		return 1
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dstore-server: set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	if err := serve(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stdout
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}

func serve(cfg config.Config, log *slog.Logger) error {
	lay := layout.New(cfg.StorePath())
	if err := layout.EnsureDir(lay.Root()); err != nil {
		return fmt.Errorf("create store root: %w", err)
	}

	store := datastore.New(lay)
	sessions := session.New(lay, time.Duration(cfg.SessionTTLSeconds)*time.Second)
	nonces := noncecache.New(time.Duration(cfg.NonceTTLSeconds)*time.Second, log)
	defer nonces.Close()

	metadata := external.NewMetadataClient(cfg.ExternalMetadataURL)
	owners := ownercache.New(time.Duration(cfg.OwnerCacheTTLSeconds)*time.Second, metadata, log)

	rootDB := filepath.Join(cfg.DataDir, "rootcache.db")
	roots, err := rootcache.Open(rootDB, metadata, log)
	if err != nil {
		return fmt.Errorf("open root cache: %w", err)
	}
	defer roots.Close()

	proto := &protocol.Handlers{
		Layout:            lay,
		Sessions:          sessions,
		Nonces:            nonces,
		Owners:            owners,
		Store:             store,
		SigVerifier:       external.NewECSignatureVerifier(),
		RootHistory:       roots,
		TreeValidator:     metadata,
		ManifestGen:       metadata,
		CoinInfo:          metadata,
		OwnerUsername:     cfg.OwnerUsername,
		OwnerPasswordHash: cfg.OwnerPasswordHash,
		Log:               log,
	}
	fetchHandlers := &fetch.Handlers{Store: store}

	srv := server.New(server.Options{
		ListenAddr:           cfg.ListenAddr,
		TLSCertFile:          cfg.TLSCertFile,
		TLSKeyFile:           cfg.TLSKeyFile,
		ClientCAFile:         cfg.ClientCAFile,
		UploadStartRateLimit: cfg.UploadStartRateLimit,
		FetchRateLimit:       cfg.FetchRateLimit,
		Log:                  log,
	}, proto, fetchHandlers)

	if cfg.PeerDomain != "" {
		resolver := peers.NewDNSResolver(cfg.DNSUpstream)
		if _, err := server.PeerDiscovery(resolver, cfg.PeerDomain, log); err != nil {
			log.Warn("continuing without a resolved peer list", "error", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("dstore-server starting", "listen", cfg.ListenAddr, "store_root", lay.Root())
	return srv.ListenAndServe(ctx)
}
