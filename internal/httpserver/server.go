// internal/httpserver/server.go
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/mw"
	"github.com/MrSnakeDoc/linkdesk/internal/httpserver/routes"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

// RequestTimeout bounds one API request, GitHub round trips included.
const RequestTimeout = 60 * time.Second

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http    *http.Server
	logger  logger.Logger
	started time.Time
}

// NewRouter builds the router with global middlewares and every route.
func NewRouter(loggerClient logger.Logger, d deps.Deps) chi.Router {
	r := chi.NewRouter()

	// --- Global middlewares (safe defaults)
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)               // X-Request-ID on each request
	r.Use(middleware.Recoverer)               // never crash the process on panic
	r.Use(middleware.Timeout(RequestTimeout)) // per-request timeout
	r.Use(mw.Log(loggerClient, d.TrustProxy)) // structured access logs

	routes.RegisterAll(r, d)
	return r
}

// New builds the HTTP server (router, middlewares, route registration).
func New(listen string, loggerClient logger.Logger, d deps.Deps) *Server {
	s := &http.Server{
		Addr:              listen,
		Handler:           NewRouter(loggerClient, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:    s,
		logger:  loggerClient,
		started: d.StartTime,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
