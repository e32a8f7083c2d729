package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skridlevsky/bounty-feed/internal/fund"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Store     *fund.Store
	Scheduler StatusSource

	// Allowed CORS origins. Empty allows any origin.
	CORSOrigins []string
	// Requests per minute per client IP, 0 uses the default
	RateLimit int
}

// RouterResult holds the router and resources that need cleanup
type RouterResult struct {
	Router       *chi.Mux
	RateLimiters *RateLimiters
}

// NewRouter creates and configures the HTTP router.
// Caller must call result.RateLimiters.Stop() on shutdown.
func NewRouter(cfg *RouterConfig) *RouterResult {
	r := chi.NewRouter()

	rateLimiters := NewRateLimiters(cfg.RateLimit)

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	r.Use(rateLimiters.Global.Middleware)

	r.Get("/api/health", HealthHandler)

	fundHandler := NewFundHandler(cfg.Store, cfg.Scheduler)
	r.Get("/api/issues", fundHandler.Issues)
	r.Get("/api/repositories", fundHandler.Repositories)
	r.Get("/api/fund", fundHandler.Fund)

	return &RouterResult{
		Router:       r,
		RateLimiters: rateLimiters,
	}
}
