package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server hosts the sync API over HTTP
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New wires the handlers into a server listening on addr
func New(addr string, sync *SyncHandler, run *SyncRunHandler, connections *ConnectionsHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/sync", sync)
	mux.Handle("POST /api/sync/run", run)
	mux.HandleFunc("GET /api/connections", connections.List)
	mux.HandleFunc("POST /api/connections", connections.Create)
	mux.HandleFunc("PATCH /api/connections/{id}", connections.Update)
	mux.HandleFunc("DELETE /api/connections/{id}", connections.Delete)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		addr:   addr,
		logger: logger,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving. It returns once the listener is bound, so the
// bound address is available immediately afterwards.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info("Sync server listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, waiting for in-flight requests up to the
// context deadline
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.wg.Wait()
	return nil
}
