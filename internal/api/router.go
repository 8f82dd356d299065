package api

import (
	"net/http"
	"time"

	"showdown/internal/game"
	"showdown/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest published snapshot (nil before the first match)
	GetSnapshot() *game.Snapshot
	// StartMatch replaces the running match
	StartMatch(opts game.MatchOptions) (*game.Snapshot, error)
	// SetInput replaces the player's held input
	SetInput(in game.Input)
	// Events returns buffered events after a sequence number
	Events(since uint64, limit int) []game.Event
	// Roster is the character table
	Roster() *game.Roster
	// MatchStats reports live counters, false when no match exists
	MatchStats() (game.MatchStats, bool)
	// GetEventLogStats returns event bus counters
	GetEventLogStats() map[string]interface{}
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool

	// ControlToken guards the mutating routes when non-empty.
	ControlToken string

	// MinimapSize is the default edge of /api/minimap.png.
	MinimapSize int
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine      EngineInterface
	minimapSize int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects beyond the rate limiter's cleanup goroutine
// (when it creates its own limiter), so it is safe to use with
// httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = GetRateLimiterFromRouter(cfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		engine:      cfg.Engine,
		minimapSize: cfg.MinimapSize,
	}

	r.Route("/api", func(r chi.Router) {
		// Read-only views
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/roster", h.handleGetRoster)
		r.Get("/events", h.handleGetEvents)
		r.Get("/minimap.png", h.handleMinimap)

		// Control
		r.Group(func(r chi.Router) {
			r.Use(RequireToken(cfg.ControlToken))
			r.Post("/match", h.handleStartMatch)
			r.Post("/input", h.handleInput)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

// metricsMiddleware records latency per route pattern, keeping label
// cardinality bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// GetRateLimiterFromRouter builds the limiter a router config implies.
func GetRateLimiterFromRouter(cfg RouterConfig) *IPRateLimiter {
	if cfg.RateLimiter != nil {
		return cfg.RateLimiter
	}
	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}
	return NewIPRateLimiter(rateLimitCfg)
}

// defaultMinimapSize is the edge used when ?size= is absent.
func (h *routerHandlers) defaultMinimapSize() int {
	if h.minimapSize > 0 {
		return render.ClampSize(h.minimapSize)
	}
	return render.DefaultSize
}
