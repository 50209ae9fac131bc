// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package server wires the upload protocol engine and fetch surface
// into a single HTTPS listener: request routing, the logging and
// panic-recovery middleware, the upload-start and fetch rate limits,
// mutual-TLS client certificate verification, and graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bitfsorg/dstore-go/fetch"
	"github.com/bitfsorg/dstore-go/protocol"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownGrace     = 10 * time.Second

	rateLimitWindow = 15 * time.Minute
)

// Options configures a Server beyond the handlers it routes to.
type Options struct {
	ListenAddr string

	// TLSCertFile/TLSKeyFile, if both set, serve HTTPS with this
	// certificate. ClientCAFile, if set, additionally requires and
	// verifies a client certificate signed by that CA (mutual TLS).
	// If none are set, the server listens over plain HTTP — intended
	// for tests and for deployments that terminate TLS upstream.
	TLSCertFile  string
	TLSKeyFile   string
	ClientCAFile string

	// UploadStartRateLimit bounds POST /upload/{storeId} per client IP,
	// per 15 minutes. FetchRateLimit bounds HEAD|GET /fetch/... per
	// (ip, storeId, path), per 15 minutes. Either may be <= 0 to
	// disable that limit.
	UploadStartRateLimit int
	FetchRateLimit       int

	Log *slog.Logger
}

// Server is the propagation server's single HTTPS listener.
type Server struct {
	opts     Options
	log      *slog.Logger
	protocol *protocol.Handlers
	fetch    *fetch.Handlers

	uploadLimiter *rateLimiter
	fetchLimiter  *rateLimiter

	httpServer *http.Server
}

// New constructs a Server routing to proto and fetchHandlers.
func New(opts Options, proto *protocol.Handlers, fetchHandlers *fetch.Handlers) *Server {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		opts:          opts,
		log:           log,
		protocol:      proto,
		fetch:         fetchHandlers,
		uploadLimiter: newRateLimiter(opts.UploadStartRateLimit, rateLimitWindow),
		fetchLimiter:  newRateLimiter(opts.FetchRateLimit, rateLimitWindow),
	}
}

// Handler builds the routed, middleware-wrapped http.Handler. Exported
// as a method (rather than only via ListenAndServe) so tests can drive
// the server with httptest without opening a real listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("HEAD /{storeId}", s.protocol.Exists)

	mux.Handle("POST /upload/{storeId}",
		rateLimited(s.uploadLimiter, clientIP, http.HandlerFunc(s.protocol.StartUpload)))
	mux.HandleFunc("HEAD /upload/{storeId}/{sessionId}/{filename...}", s.protocol.IssueNonce)
	mux.HandleFunc("PUT /upload/{storeId}/{sessionId}/{filename...}", s.protocol.UploadFile)
	mux.HandleFunc("POST /commit/{storeId}/{sessionId}", s.protocol.Commit)
	mux.HandleFunc("POST /abort/{storeId}/{sessionId}", s.protocol.Abort)

	mux.Handle("HEAD /fetch/{storeId}/{roothash}/{dataPath...}",
		rateLimited(s.fetchLimiter, fetchKey, http.HandlerFunc(s.fetch.Probe)))
	mux.Handle("GET /fetch/{storeId}/{dataPath...}",
		rateLimited(s.fetchLimiter, fetchKey, http.HandlerFunc(s.fetch.Download)))

	return withRecovery(s.log, withLogging(s.log, mux))
}

// fetchKey keys the fetch rate limiter by (ip, storeId, path), per
// spec section 5's resource bounds.
func fetchKey(r *http.Request) string {
	return clientIP(r) + "|" + r.PathValue("storeId") + "|" + r.URL.Path
}

// ListenAndServe builds the TLS configuration (mutual TLS if
// ClientCAFile is set, server-only TLS if only cert/key are set, plain
// HTTP otherwise) and serves until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	tlsConfig, err := s.tlsConfig()
	if err != nil {
		return fmt.Errorf("server: build tls config: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.Handler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		// WriteTimeout is left at zero: fetch streams large blobs and
		// a fixed write deadline would cut off a slow, otherwise
		// healthy download.
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var serveErr error
		if tlsConfig != nil {
			serveErr = s.httpServer.ListenAndServeTLS("", "")
		} else {
			serveErr = s.httpServer.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.log.Info("shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// tlsConfig builds *tls.Config from the server's TLS options, or
// returns nil if no TLS material was configured.
func (s *Server) tlsConfig() (*tls.Config, error) {
	if s.opts.TLSCertFile == "" && s.opts.TLSKeyFile == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(s.opts.TLSCertFile, s.opts.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if s.opts.ClientCAFile != "" {
		pemBytes, err := os.ReadFile(s.opts.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("read client CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("no certificates parsed from %s", s.opts.ClientCAFile)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}
