// Package server runs the HTTP surface with graceful shutdown and SIGHUP
// configuration reload.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining.
const DefaultShutdownTimeout = 10 * time.Second

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// Options configures a GracefulServer.
type Options struct {
	Addr            string
	Handler         http.Handler
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Logger          logging.Logger
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	configReloadFn  ConfigReloadFunc
	configMu        sync.RWMutex

	listenerMu sync.Mutex
	listener   net.Listener
	ready      chan struct{}
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(opts Options) *GracefulServer {
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           opts.Handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logging.OrDefault(opts.Logger).With(logging.Component("server")),
		shutdownTimeout: shutdownTimeout,
		shutdownCh:      make(chan struct{}),
		ready:           make(chan struct{}),
	}
}

// Run serves until ctx is done, then drains connections. SIGHUP triggers
// a configuration reload while running.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	gs.listenerMu.Lock()
	gs.listener = ln
	gs.listenerMu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go gs.handleSignals(ctx, sigCh)
	close(gs.ready)

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("starting HTTP server", logging.String("addr", ln.Addr().String()))
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
			return err
		}
		return <-errCh
	}
}

// Addr blocks until the server is listening and returns its address.
func (gs *GracefulServer) Addr() net.Addr {
	<-gs.ready
	gs.listenerMu.Lock()
	defer gs.listenerMu.Unlock()
	return gs.listener.Addr()
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))
		if err = gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("error during shutdown", logging.Error(err))
			return
		}
		gs.logger.Info("server shutdown complete")
	})
	return err
}

// RegisterOnShutdown runs fn when shutdown starts. Hijacked connections
// such as websocket streams are not tracked by the server, so their owners
// close them here.
func (gs *GracefulServer) RegisterOnShutdown(fn func()) {
	gs.server.RegisterOnShutdown(fn)
}

func (gs *GracefulServer) handleSignals(ctx context.Context, sigCh <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-gs.shutdownCh:
			return
		case <-sigCh:
			gs.logger.Info("received SIGHUP, reloading configuration")
			if err := gs.ReloadConfig(); err != nil {
				gs.logger.Warn("configuration reload error", logging.Error(err))
			}
		}
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.configMu.Lock()
	defer gs.configMu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.configMu.RLock()
	reloadFn := gs.configReloadFn
	gs.configMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Debug("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		return err
	}
	gs.logger.Info("configuration reload complete")
	return nil
}
