// Package api exposes the kanban backend over HTTP: account registration
// and login, board and column endpoints with lazy provisioning, board
// membership management, and the client-state snapshot.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/middleware"
	"github.com/alcadeta/portfolio-goteam/pkg/observability"
	"github.com/alcadeta/portfolio-goteam/pkg/provision"
	"github.com/alcadeta/portfolio-goteam/pkg/state"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// Server is the API server.
type Server struct {
	router      *mux.Router
	store       storage.Store
	logger      *slog.Logger
	metrics     *observability.Metrics
	verifier    *auth.Verifier
	authorizer  *auth.Authorizer
	provisioner *provision.Provisioner
	assembler   *state.Assembler
}

// NewServer creates the API server and sets up its routes. metrics may be
// nil when metrics are disabled.
func NewServer(store storage.Store, logger *slog.Logger, metrics *observability.Metrics) *Server {
	verifier := auth.NewVerifier(store)
	provisioner := provision.New(store)
	s := &Server{
		router:      mux.NewRouter(),
		store:       store,
		logger:      logger,
		metrics:     metrics,
		verifier:    verifier,
		authorizer:  auth.NewAuthorizer(store),
		provisioner: provisioner,
		assembler:   state.NewAssembler(store, verifier, provisioner),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recovery(s.logger))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	// Account routes authenticate by password, not token.
	accountHandlers := NewAccountHandlers(s.store, s.logger)
	accountHandlers.RegisterRoutes(s.router)

	// The snapshot endpoint verifies credentials itself: it doubles as
	// the client's login check, so its auth failures must come from the
	// same verification path as its data.
	clientStateHandlers := NewClientStateHandlers(s.assembler, s.logger)
	clientStateHandlers.RegisterRoutes(s.router)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(middleware.Auth(s.verifier, s.metrics))

	boardHandlers := NewBoardHandlers(s.store, s.authorizer, s.provisioner, s.logger, s.metrics)
	boardHandlers.RegisterRoutes(protected)

	columnHandlers := NewColumnHandlers(s.store, s.authorizer, s.provisioner, s.logger, s.metrics)
	columnHandlers.RegisterRoutes(protected)

	userHandlers := NewUserHandlers(s.store, s.authorizer, s.logger)
	userHandlers.RegisterRoutes(protected)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
