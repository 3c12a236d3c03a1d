package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/config"
	"github.com/coreqcapital/coreq-migrate/internal/http/handlers"
	"github.com/coreqcapital/coreq-migrate/internal/middleware"
)

// Deps are the services the ops routes call into.
type Deps struct {
	Logins   handlers.LoginService
	Statuses handlers.StatusRefresher
	Rates    handlers.RateFixer
	Tokens   *auth.TokenManager
	Database handlers.Pinger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg config.Config, deps Deps) http.Handler {
	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), deps.Database).Register(mux)
	handlers.NewAuthHandler(deps.Logins).Register(mux)
	handlers.NewOpsHandler(deps.Statuses, deps.Rates).Register(mux, middleware.RequireAdmin(deps.Tokens))

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.OpsAddress(),
		Handler:           NewHandler(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a status pass over the whole loan book can take a while
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
