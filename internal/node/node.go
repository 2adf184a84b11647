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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/api"
	"github.com/blinklabs-io/tally/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Open creates a node from the config. The caller must close it.
func Open(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*tally.Node, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	return tally.New(
		tally.NewConfig(
			tally.WithLogger(logger),
			tally.WithDatabasePath(cfg.DatabasePath),
			tally.WithBlobPlugin(cfg.BlobPlugin),
			tally.WithMetadataPlugin(cfg.MetadataPlugin),
			tally.WithPrometheusRegistry(promRegistry),
			tally.WithTracing(cfg.Tracing),
			tally.WithTracingStdout(cfg.TracingStdout),
			tally.WithShutdownTimeout(shutdownTimeout),
		),
	)
}

// Run serves the node until SIGINT or SIGTERM
func Run(cfg *config.Config, logger *slog.Logger) error {
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	return Serve(signalCtx, cfg, logger)
}

// Serve runs the API and metrics listeners until ctx is done. A zero port
// disables the listener.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	n, err := Open(cfg, logger, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
		}
	}()
	if !n.Initialized() {
		logger.Warn(
			"governance is not deployed yet, run 'tally init' to deploy",
			"component", "node",
		)
	}

	errChan := make(chan error, 2)
	var apiServer *api.Server
	if cfg.ApiPort > 0 {
		apiServer = api.New(
			api.Config{ListenAddress: listenAddress(cfg.BindAddr, cfg.ApiPort)},
			n,
			logger,
		)
		if err := apiServer.Start(ctx); err != nil {
			return err
		}
	}

	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              listenAddress(cfg.BindAddr, cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		ln, err := net.Listen("tcp", metricsServer.Addr)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		logger.Info(
			"serving prometheus metrics on "+ln.Addr().String(),
			"component", "node",
		)
		go func() {
			if err := metricsServer.Serve(ln); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		logger.Error("listener error", "component", "node", "error", runErr)
	}

	//nolint:contextcheck
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if apiServer != nil {
		//nolint:contextcheck
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
	}
	if metricsServer != nil {
		//nolint:contextcheck
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	if runErr == nil {
		logger.Info("shutdown complete", "component", "node")
	}
	return runErr
}

func listenAddress(bindAddr string, port uint) string {
	return net.JoinHostPort(bindAddr, strconv.FormatUint(uint64(port), 10))
}
