// Package web serves the public teaser, the sign-in flow and the
// authenticated dashboard.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cdb-lab/product-radar/internal/auth"
	"github.com/cdb-lab/product-radar/internal/catalog"
	db "github.com/cdb-lab/product-radar/internal/storage"
)

// Rate limiting constants for the sign-in endpoints.
const (
	rateLimitRequests = 10
	rateLimitBurst    = 20
	rateLimitWindow   = time.Minute
)

// HTTP server timeouts.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	readyCheckTimeout = 2 * time.Second
)

// HTTP header constants.
const headerContentType = "Content-Type"

// Store is the read surface the handlers depend on. Row visibility is
// enforced here, behind the audience parameter, never in the handlers.
type Store interface {
	ListTopProducts(ctx context.Context, audience db.Audience, runDate string, limit int) ([]catalog.Product, error)
	GetProductBySlug(ctx context.Context, audience db.Audience, slug string) (*catalog.Product, error)
	GetSettings(ctx context.Context, keys []string) (map[string]db.SettingValue, error)
}

// Options configures the web server.
type Options struct {
	Port           int
	AppEnv         string
	DashboardLimit int
}

// Server wires the handlers, the session provider and the renderer.
type Server struct {
	opts     Options
	store    Store
	provider auth.Provider
	hub      *auth.Hub
	renderer *Renderer
	ready    func(ctx context.Context) error
	logger   *zerolog.Logger

	// IP-based rate limiting for the sign-in endpoints
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// NewServer creates the web server.
func NewServer(store Store, provider auth.Provider, hub *auth.Hub, opts Options, ready func(ctx context.Context) error, logger *zerolog.Logger) (*Server, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	return &Server{
		opts:     opts,
		store:    store,
		provider: provider,
		hub:      hub,
		renderer: renderer,
		ready:    ready,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Routes builds the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleLanding)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login/magic", s.handleMagicLink)
	mux.HandleFunc("GET /auth/callback", s.handleAuthCallback)
	mux.HandleFunc("GET /app", s.handleDashboard)
	mux.HandleFunc("GET /app/product/{slug}", s.handleProduct)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /session/ws", s.handleSessionSocket)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return securityHeaders(mux)
}

// Start serves until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", server.Addr).Msg("web server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		if err := s.ready(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)

			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowRequest(ip string) bool {
	s.limitersMu.Lock()

	limiter, ok := s.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(rateLimitWindow/rateLimitRequests), rateLimitBurst)
		s.limiters[ip] = limiter
	}

	s.limitersMu.Unlock()

	return limiter.Allow()
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (common with reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
