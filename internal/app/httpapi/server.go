// Package httpapi exposes the JSON API and assembles the ingress chain in
// front of it.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/soundstack/soundstack/internal/app/metrics"
	"github.com/soundstack/soundstack/internal/app/services/songs"
	"github.com/soundstack/soundstack/internal/app/services/users"
	"github.com/soundstack/soundstack/internal/config"
	"github.com/soundstack/soundstack/internal/middleware"
	"github.com/soundstack/soundstack/internal/session"
	"github.com/soundstack/soundstack/internal/upload"
	"github.com/soundstack/soundstack/pkg/logger"
)

// HealthChecker is a dependency the health endpoint probes.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the API is built from.
type Deps struct {
	Config   *config.Config
	Users    *users.Service
	Songs    *songs.Service
	Sessions *session.Manager
	Receiver *upload.Receiver
	// MediaDir is served under /media/. Empty disables it.
	MediaDir string
	// Static serves the frontend for non-API paths. Nil answers them with 404.
	Static http.Handler
	Checks map[string]HealthChecker
	Log    *logger.Logger
}

// Server is the fully assembled HTTP handler.
type Server struct {
	handler   http.Handler
	responder *Responder
	limiter   *middleware.RateLimiter
}

type handler struct {
	deps      Deps
	responder *Responder
	limiter   *middleware.RateLimiter
	started   time.Time
}

// NewServer wires the router behind the ingress chain. Chain order is
// tracing, metrics, cookies, CORS (non-production only), security headers,
// CSRF, session restore, then the router.
func NewServer(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logger.NewDefault("httpapi")
	}
	cfg := deps.Config
	responder := NewResponder(cfg.Security, cfg.Upload.FieldName, deps.Log)
	limiter := middleware.NewRateLimiter(float64(cfg.Auth.LoginRatePerSecond), cfg.Auth.LoginBurst, responder, deps.Log)

	h := &handler{deps: deps, responder: responder, limiter: limiter, started: time.Now()}
	router := h.routes()

	var chain http.Handler = router
	chain = middleware.NewSessionMiddleware(deps.Sessions, deps.Users, deps.Log).Handler(chain)
	chain = middleware.NewCSRFMiddleware(cfg.CSRF.Secret, cfg.CSRF.CookieName, cfg.Security, responder, deps.Log).Handler(chain)
	chain = middleware.SecurityHeaders(chain)
	if cfg.Security.CORSEnabled {
		chain = middleware.NewCORSMiddleware([]string{"*"}).Handler(chain)
	}
	chain = middleware.CookieParser(chain)
	chain = middleware.MetricsMiddleware()(chain)
	chain = middleware.NewTracingMiddleware(deps.Log).Handler(chain)

	return &Server{handler: chain, responder: responder, limiter: limiter}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Responder is the terminal error responder used by the chain.
func (s *Server) Responder() *Responder {
	return s.responder
}

// Limiter is the login and signup throttle, exposed for periodic sweeping.
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.limiter
}

func (h *handler) routes() *mux.Router {
	notFound := http.HandlerFunc(h.responder.NotFound)
	requireAuth := middleware.RequireAuth(h.responder)
	throttle := h.limiter.Handler

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound

	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = notFound

	api.HandleFunc("/csrf/restore", h.csrfRestore).Methods(http.MethodGet)
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api.HandleFunc("/session", h.getSession).Methods(http.MethodGet)
	api.Handle("/session", throttle(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	api.HandleFunc("/session", h.logout).Methods(http.MethodDelete)

	api.Handle("/users", throttle(http.HandlerFunc(h.signup))).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)

	api.HandleFunc("/songs", h.listSongs).Methods(http.MethodGet)
	api.Handle("/songs", requireAuth(http.HandlerFunc(h.createSong))).Methods(http.MethodPost)
	api.HandleFunc("/songs/{id}", h.getSong).Methods(http.MethodGet)
	api.Handle("/songs/{id}", requireAuth(http.HandlerFunc(h.updateSong))).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/songs/{id}", requireAuth(http.HandlerFunc(h.deleteSong))).Methods(http.MethodDelete)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	if h.deps.MediaDir != "" {
		r.HandleFunc(upload.MediaPrefix+"{file}", h.media).Methods(http.MethodGet, http.MethodHead)
	}
	if h.deps.Static != nil {
		r.PathPrefix("/").Handler(h.deps.Static).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}
