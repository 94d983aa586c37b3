package fakeapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures a Server. Zero values select the defaults noted on
// each field.
type Options struct {
	// Secret signs access and refresh tokens. Default: a fixed test secret.
	Secret []byte
	// AccessTTL is the access token lifetime. Default 5m.
	AccessTTL time.Duration
	// RefreshTTL is the refresh token lifetime. Default 24h.
	RefreshTTL time.Duration
	// RefreshDelay holds every refresh response, widening the window in
	// which concurrent 401s pile up.
	RefreshDelay time.Duration
	// RotateRefresh issues a new refresh token on every refresh and revokes
	// the old one. When false the refresh response carries only "access".
	RotateRefresh bool
	// Seeds replaces DefaultSeeds.
	Seeds []Seed
	// BasePath prefixes every route. Default "/api".
	BasePath string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Server is the fake backend.
type Server struct {
	opts   Options
	router chi.Router

	mu       sync.Mutex
	accounts map[int64]*account
	nextID   int64
	refresh  map[string]int64
	resets   map[string]string
	verify   map[string]string

	failRefresh atomic.Bool
	hitsMu      sync.Mutex
	hits        map[string]int
}

// New builds a Server seeded with opts.Seeds.
func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakeapi-test-secret")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Seeds == nil {
		opts.Seeds = DefaultSeeds
	}
	if opts.BasePath == "" {
		opts.BasePath = "/api"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		opts:     opts,
		accounts: make(map[int64]*account),
		refresh:  make(map[string]int64),
		resets:   make(map[string]string),
		verify:   make(map[string]string),
		hits:     make(map[string]int),
	}
	for _, seed := range opts.Seeds {
		s.addLocked(seed)
	}
	s.router = s.routes()
	return s
}

func (s *Server) now() time.Time {
	return s.opts.Now()
}

// BasePath is the prefix all routes are mounted under.
func (s *Server) BasePath() string {
	return s.opts.BasePath
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetFailRefresh makes every refresh call fail with 401 while on.
func (s *Server) SetFailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

// Hits returns how many requests reached route, written as it was
// registered, e.g. "POST /auth/refresh/".
func (s *Server) Hits(route string) int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	return s.hits[route]
}

// RefreshCalls returns how many refresh requests reached the server.
func (s *Server) RefreshCalls() int {
	return s.Hits("POST /auth/refresh/")
}

// ResetToken returns the pending password reset (uid, token) for email.
func (s *Server) ResetToken(email string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byEmailLocked(email)
	if a == nil {
		return "", "", false
	}
	uid := uidOf(a.user.ID)
	token, ok := s.resets[uid]
	return uid, token, ok
}

// VerificationToken returns the pending email verification (uid, token)
// for email.
func (s *Server) VerificationToken(email string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byEmailLocked(email)
	if a == nil {
		return "", "", false
	}
	uid := uidOf(a.user.ID)
	token, ok := s.verify[uid]
	return uid, token, ok
}

func (s *Server) routes() chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Recoverer)

	r := chi.NewRouter()
	r.Use(s.count)

	r.Post("/auth/login/", s.login)
	r.Post("/auth/register/", s.register)
	r.Post("/auth/refresh/", s.refreshTokens)
	r.Post("/auth/password/reset/", s.passwordReset)
	r.Post("/auth/password/reset/confirm/", s.passwordResetConfirm)
	r.Post("/auth/verify-email/", s.verifyEmail)
	r.Post("/auth/resend-verification/", s.resendVerification)
	r.Get("/debug/status/{code}/", s.debugStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/auth/logout/", s.logout)
		r.Get("/auth/profile/", s.profile)
		r.Patch("/auth/profile/", s.updateProfile)
		r.Delete("/auth/profile/", s.deleteProfile)
		r.Post("/auth/password/change/", s.changePassword)
		r.Get("/debug/protected/", s.protected)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStaff)

			r.Get("/users/", s.listUsers)
			r.Get("/users/{id}/", s.getUser)
			r.Patch("/users/{id}/", s.updateUser)
			r.Delete("/users/{id}/", s.deleteUser)
			r.Post("/users/{id}/activate/", s.setActive(true))
			r.Post("/users/{id}/deactivate/", s.setActive(false))
			r.Post("/users/{id}/reset-password/", s.resetUserPassword)
		})
	})

	root.Mount(s.opts.BasePath, r)
	return root
}

// count records one hit per matched route pattern.
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		pattern := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			pattern = rctx.RoutePattern()
		}
		if pattern == "" {
			pattern = r.URL.Path
		}
		s.hitsMu.Lock()
		s.hits[r.Method+" "+trimBase(pattern, s.opts.BasePath)]++
		s.hitsMu.Unlock()
	})
}

func trimBase(pattern, base string) string {
	if len(pattern) >= len(base) && pattern[:len(base)] == base {
		return pattern[len(base):]
	}
	return pattern
}

/*
====================================
RESPONSES
====================================
*/

type envelope struct {
	Data      any    `json:"data"`
	Message   string `json:"message,omitempty"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{
		Data:      data,
		Message:   message,
		Status:    status,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFields(w http.ResponseWriter, status int, fields map[string][]string) {
	writeJSON(w, status, fields)
}

func decode(r *http.Request, value any) error {
	return json.NewDecoder(r.Body).Decode(value)
}
