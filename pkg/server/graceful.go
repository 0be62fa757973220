// Package server provides the graceful HTTP server wrapping the API:
// signal-driven shutdown and SIGHUP rule reload.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

// ReloadFunc reloads the rule files. Wired by the daemon; invoked on SIGHUP.
type ReloadFunc func() error

// GracefulServer wraps an HTTP server with graceful shutdown capabilities.
type GracefulServer struct {
	server       *http.Server
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	reloadFn     ReloadFunc
	reloadMu     sync.RWMutex
}

// NewGracefulServer creates a graceful HTTP server around the handler.
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start runs the server and handles shutdown signals until the server stops.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.logger.Info("HTTP server listening", logging.String("addr", gs.server.Addr))
	if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown initiates a graceful shutdown, waiting up to timeout for in-flight
// requests to drain.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("starting graceful shutdown", logging.Duration("timeout", timeout))

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("shutdown failed", logging.Error(shutdownErr))
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// handleSignals listens for OS signals. SIGINT/SIGTERM shut down, SIGHUP
// reloads the rule files.
func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			gs.logger.Info("received shutdown signal", logging.String("signal", sig.String()))
			if err := gs.Shutdown(30 * time.Second); err != nil {
				os.Exit(1)
			}
			os.Exit(0)

		case syscall.SIGHUP:
			gs.logger.Info("received SIGHUP, reloading rules")
			if err := gs.Reload(); err != nil {
				gs.logger.Error("rule reload failed", logging.Error(err))
			}
		}
	}
}

// IsShuttingDown reports whether shutdown has been initiated.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function invoked on SIGHUP.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload invokes the configured reload function.
func (gs *GracefulServer) Reload() error {
	gs.reloadMu.RLock()
	reloadFn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Warn("reload requested but no reload function configured")
		return nil
	}
	return reloadFn()
}
