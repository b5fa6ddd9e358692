package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/middleware"
	"github.com/theschoolhq/gatekeeper/pkg/observability"
	"github.com/theschoolhq/gatekeeper/pkg/ws"
)

// Server wires the authentication endpoints onto a router.
type Server struct {
	router *mux.Router

	store         auth.Store
	service       *auth.Service
	resetFlow     *auth.ResetFlow
	authenticator *auth.TokenAuthenticator
	gateway       *ws.Gateway

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Deps carries the server's collaborators.
type Deps struct {
	Store         auth.Store
	Service       *auth.Service
	ResetFlow     *auth.ResetFlow
	Authenticator *auth.TokenAuthenticator
	Gateway       *ws.Gateway // optional; no websocket route when nil
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	s := &Server{
		router:        mux.NewRouter(),
		store:         deps.Store,
		service:       deps.Service,
		resetFlow:     deps.ResetFlow,
		authenticator: deps.Authenticator,
		gateway:       deps.Gateway,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	tokenAuth := middleware.NewTokenAuth(s.authenticator, s.logger, s.metrics)
	s.router.Use(observability.RecoveryMiddleware(s.logger))
	s.router.Use(tokenAuth.Handler)

	s.router.HandleFunc("/auth/login", s.login).Methods("POST")
	s.router.HandleFunc("/auth/check-login", s.checkLogin).Methods("GET")
	s.router.Handle("/auth/logout", middleware.RequireAuth(http.HandlerFunc(s.logout))).Methods("POST")

	s.router.HandleFunc("/auth/request-reset-password", s.requestReset).Methods("POST")
	s.router.HandleFunc("/auth/reset-password", s.validateReset).Methods("GET")
	s.router.HandleFunc("/auth/reset-password", s.consumeReset).Methods("POST")

	s.router.Handle("/auth/groups", middleware.RequireAuth(http.HandlerFunc(s.listGroups))).Methods("GET")

	if s.gateway != nil {
		s.router.Handle("/ws", s.gateway)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
