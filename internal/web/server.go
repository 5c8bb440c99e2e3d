// Package web provides the HTTP API for the salon catalog and imports.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/salon/internal/config"
	"github.com/JonMunkholm/salon/internal/core"
	"github.com/JonMunkholm/salon/internal/metrics"
	"github.com/JonMunkholm/salon/internal/web/middleware"
)

// Server is the HTTP server for the catalog and import API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	metrics *metrics.Registry
	router  *chi.Mux
	server  *http.Server

	stopLimiter context.CancelFunc
}

// NewServer creates a new Server. reg may be nil, in which case /metrics
// is not mounted.
func NewServer(service *core.Service, cfg *config.Config, reg *metrics.Registry) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: reg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopLimiter = cancel
	limiter := newRateLimiter(ctx, s.cfg.Security.RequestsPerMinute, time.Minute)
	s.router.Use(limiter.middleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/template/{table}", s.handleDownloadTemplate)

		// Catalog
		r.Get("/ranges", s.handleRanges)
		r.Get("/services", s.handleServices)
		r.Get("/export/services", s.handleExportServices)

		// Bookings
		r.Get("/bookings/upcoming", s.handleUpcoming)

		// Writes sit behind the API key; import replaces whole tables.
		r.Get("/import/status", s.handleImportStatus)
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Security))
			r.Post("/import", s.handleImport)
			r.Post("/services", s.handleCreateService)
			r.Put("/services/{id}", s.handleUpdateService)
			r.Delete("/services/{id}", s.handleDeleteService)
			r.Post("/bookings", s.handleBook)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiter()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a fixed-window request budget per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter. Stale visitors are swept until ctx
// is cancelled.
func newRateLimiter(ctx context.Context, rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup(ctx)
	return rl
}

// cleanup removes stale visitor entries once per window.
func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rate limits by r.RemoteAddr, which TrustedRealIP has already
// replaced with the client address when the request came through a proxy.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(middleware.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONStatus(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
				Action:  "Wait a minute and try again",
				Code:    "RATE001",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
