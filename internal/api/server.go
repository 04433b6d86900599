package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server envuelve el http.Server de la API.
type Server struct {
	httpServer *http.Server
}

// NewServer crea el servidor. writeTimeout debe cubrir el presupuesto de
// evaluación del pipeline.
func NewServer(addr string, handler http.Handler, writeTimeout time.Duration) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start bloquea hasta que el servidor se detiene.
func (s *Server) Start() error {
	slog.Info("starting api server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api.Start: %w", err)
	}
	return nil
}

// Shutdown detiene el servidor esperando a las peticiones en curso.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down api server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api.Shutdown: %w", err)
	}
	return nil
}
