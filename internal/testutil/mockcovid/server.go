// Package mockcovid provides an in-process COVID counter API for tests and
// local demos. It implements the auth endpoints (with optional emailed
// passcodes) and the four editable datasets.
package mockcovid

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// API is the mock API handler and its mutable state.
type API struct {
	state       *State
	router      chi.Router
	secret      []byte
	tokenTTL    time.Duration
	otpTTL      time.Duration
	requireAuth bool
	logger      *slog.Logger

	faultsMu   sync.Mutex
	nextErrors []injectedError
	delayFunc  func(r *http.Request) time.Duration
}

type injectedError struct {
	status  int
	message string
}

// Option configures an API.
type Option func(*API)

// WithSecret sets the HMAC key used to sign tokens.
func WithSecret(secret []byte) Option {
	return func(a *API) {
		a.secret = secret
	}
}

// WithRequireAuth rejects dataset requests that carry no valid token.
// The real service leaves the datasets open, so this is off by default.
func WithRequireAuth(require bool) Option {
	return func(a *API) {
		a.requireAuth = require
	}
}

// WithLogger enables request/response logging.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithoutSeed starts with empty datasets.
func WithoutSeed() Option {
	return func(a *API) {
		a.state = NewState()
	}
}

// NewAPI builds the mock handler without starting a listener.
func NewAPI(opts ...Option) *API {
	a := &API{
		state:    SeededState(),
		secret:   []byte("mockcovid-signing-secret"),
		tokenTTL: 24 * time.Hour,
		otpTTL:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(a.logger))
	r.Use(a.faultMiddleware)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/register", a.handleRegister)
		r.Post("/verify-otp", a.handleVerifyOTP)
		r.Post("/logout", a.handleLogout)
	})

	for _, ds := range datasetSpecs {
		ds := ds
		r.Group(func(r chi.Router) {
			r.Use(a.authMiddleware)
			r.Get(ds.path, a.handleList(ds))
			r.Put(ds.path+"/{key}", a.handleUpdate(ds))
		})
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	a.router = r
	return a
}

// Handler returns the HTTP handler.
func (a *API) Handler() http.Handler {
	return a.router
}

// SetNextError makes the next count requests fail with status and message.
// An empty message produces an empty body.
func (a *API) SetNextError(status int, message string, count int) {
	a.faultsMu.Lock()
	defer a.faultsMu.Unlock()
	for i := 0; i < count; i++ {
		a.nextErrors = append(a.nextErrors, injectedError{status: status, message: message})
	}
}

// SetDelayFunc delays every response by the duration f returns.
// Pass nil to remove the delay.
func (a *API) SetDelayFunc(f func(r *http.Request) time.Duration) {
	a.faultsMu.Lock()
	defer a.faultsMu.Unlock()
	a.delayFunc = f
}

func (a *API) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.faultsMu.Lock()
		delay := time.Duration(0)
		if a.delayFunc != nil {
			delay = a.delayFunc(r)
		}
		var fault *injectedError
		if len(a.nextErrors) > 0 {
			fault = &a.nextErrors[0]
			a.nextErrors = a.nextErrors[1:]
		}
		a.faultsMu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fault != nil {
			if fault.message == "" {
				w.WriteHeader(fault.status)
				return
			}
			writeError(w, fault.status, fault.message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// State exposes the underlying state for assertions and seeding.
func (a *API) State() *State {
	return a.state
}

// Server is a mock API listening on a local httptest server.
type Server struct {
	*API
	srv *httptest.Server
}

// New starts a mock API on a random local port.
func New(opts ...Option) *Server {
	api := NewAPI(opts...)
	return &Server{API: api, srv: httptest.NewServer(api.Handler())}
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns an HTTP client configured for the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}
