package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/eventloop"
	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/radio"
	"github.com/muurk/wificfg/internal/scancache"
	"github.com/muurk/wificfg/internal/settings"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	RestartDelay    time.Duration // delay between a restart decision and the radio restart
	ShutdownTimeout time.Duration

	// Ready, when set, receives the bound listen address once serving.
	Ready func(addr net.Addr)
}

// Server is the WiFi configuration service.
type Server struct {
	config *Config
	dev    radio.Device

	loop       *eventloop.Loop
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	cache      *scancache.Cache
	reconciler *settings.Reconciler
	fields     *settings.Fields
	restarter  *settings.Restarter

	httpServer *http.Server

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	closing     bool
}

// New creates a server for dev and starts its event loop.
func New(config *Config, dev radio.Device) *Server {
	loop := eventloop.New(eventloop.DefaultDepth)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:      config,
		dev:         dev,
		loop:        loop,
		loopCancel:  cancel,
		loopDone:    make(chan struct{}),
		cache:       scancache.New(dev, loop),
		fields:      settings.NewFields(dev),
		activeConns: make(map[string]*websocket.Conn),
	}
	s.restarter = settings.NewRestarter(config.RestartDelay, s.restartRadio)
	s.reconciler = settings.NewReconciler(dev, s.restarter)

	go func() {
		defer close(s.loopDone)
		_ = loop.Run(ctx)
	}()

	return s
}

// restartRadio runs when the restart timer fires.
func (s *Server) restartRadio() {
	if !s.loop.Post(s.dev.Restart) {
		logging.Error("Event loop rejected radio restart")
	}
}

// Cache returns the scan cache.
func (s *Server) Cache() *scancache.Cache {
	return s.cache
}

// Start listens on the configured address and serves until a shutdown
// signal arrives, ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Starting WiFi configuration server",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("restart_delay", s.config.RestartDelay),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
		logging.Info("Context cancelled, stopping server...")
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Serve handles requests on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.httpServer == nil {
		s.httpServer = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	srv := s.httpServer
	s.mu.Unlock()

	if s.config.Ready != nil {
		s.config.Ready(listener.Addr())
	}

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	srv := s.httpServer
	for addr, conn := range s.activeConns {
		logging.Info("Closing websocket feed", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			logging.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
	}

	if s.restarter.Stop() {
		logging.Info("Cancelled pending radio restart")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	s.loopCancel()
	<-s.loopDone

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of open websocket feeds.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
