// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const DefaultListenAddress = ":8080"

type Config struct {
	ListenAddress string
	// MaxBodyBytes limits the size of POST bodies
	MaxBodyBytes int64
}

// Server is the REST and event stream API for a governance node
type Server struct {
	config     Config
	logger     *slog.Logger
	node       GovernanceNode
	httpServer *http.Server
	addr       net.Addr
	mu         sync.Mutex
	// closed when the server stops, so event streams end with it
	doneCh chan struct{}
}

// New creates an API server. It does not listen until Start is called.
func New(
	cfg Config,
	node GovernanceNode,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Server{
		config: cfg,
		logger: logger,
		node:   node,
		doneCh: make(chan struct{}),
	}
}

// Handler returns the routes wrapped for cleartext HTTP/2
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v0/governance", s.handleGovernance)
	mux.HandleFunc("GET /api/v0/deposits/{account}", s.handleDepositOf)
	mux.HandleFunc("POST /api/v0/deposits", s.handleDeposit)
	mux.HandleFunc("POST /api/v0/withdrawals", s.handleWithdraw)
	mux.HandleFunc("GET /api/v0/proposals", s.handleProposals)
	mux.HandleFunc("POST /api/v0/proposals", s.handlePropose)
	mux.HandleFunc("GET /api/v0/proposals/{id}", s.handleProposal)
	mux.HandleFunc(
		"GET /api/v0/proposals/{id}/votes/{account}",
		s.handleVoteOf,
	)
	mux.HandleFunc("POST /api/v0/proposals/{id}/votes", s.handleCastVote)
	mux.HandleFunc("POST /api/v0/proposals/{id}/execute", s.handleExecute)
	mux.HandleFunc("GET /api/v0/events", s.handleEvents)
	return h2c.NewHandler(mux, &http2.Server{})
}

// Start binds the listener and serves in the background until ctx is
// cancelled or Stop is called
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	doneCh := s.doneCh
	s.mu.Unlock()

	ln, err := s.startServer(server)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.logger.Info(
		"API listener started",
		"address", ln.Addr().String(),
	)

	go func() {
		select {
		case <-ctx.Done():
		case <-doneCh:
			return
		}
		s.logger.Debug("context cancelled, shutting down API server")
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil when not serving
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop ends event streams and gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.addr = nil
	if srv != nil {
		close(s.doneCh)
		s.doneCh = make(chan struct{})
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

func (s *Server) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// startServer binds the socket first so port conflicts surface immediately
func (s *Server) startServer(server *http.Server) (net.Listener, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return ln, nil
}
