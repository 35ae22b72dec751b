// Package web exposes the internal-only HTTP surface: a write-hook
// trigger and two read-only job-status endpoints. There is no public
// REST/auth surface here (login/session auth is out of scope), so this
// mounts no WebSocket manager and no session handlers — just a
// gorilla/mux router and the otelhttp wrapper.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server owns the internal hook/status HTTP surface.
type Server struct {
	Addr          string
	HookHandler   *HookHandler
	StatusHandler *StatusHandler

	srv *http.Server
}

// NewServer builds a Server ready to have Run called on it.
func NewServer(addr string, hook *HookHandler, status *StatusHandler) *Server {
	return &Server{Addr: addr, HookHandler: hook, StatusHandler: status}
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/internal/hooks/lease-write", s.HookHandler.ServeHTTP).Methods(http.MethodPost)
	r.HandleFunc("/internal/jobs", s.StatusHandler.ServeList).Methods(http.MethodGet)
	r.HandleFunc("/internal/jobs/{id}", s.StatusHandler.ServeGet).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Run starts the server and blocks until ctx is cancelled, then
// performs a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	instrumented := otelhttp.NewHandler(s.routes(), "lade-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumented,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("lade: web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("lade: web server shutdown error", "error", err)
		}
	}()

	slog.Info("lade: web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
