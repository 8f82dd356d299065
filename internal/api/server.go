package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"showdown/internal/config"
	"showdown/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	cfg         config.ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() is called, so tests can
// construct the server and use Router() without goroutines running.
func NewServer(engine *game.Engine, cfg config.ServerConfig) *Server {
	s := &Server{
		engine: engine,
		cfg:    cfg,
		wsHub: NewWebSocketHub(engine, HubConfig{
			ControlToken:      cfg.ControlToken,
			CORSOrigins:       cfg.CORSOrigins,
			BroadcastInterval: cfg.BroadcastInterval,
			TickRate:          engine.TickRate(),
		}),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:       engine,
		RateLimiter:  s.rateLimiter,
		CORSOrigins:  cfg.CORSOrigins,
		ControlToken: cfg.ControlToken,
		MinimapSize:  cfg.MinimapSize,
	})

	// The websocket route needs the hub instance, so it lives outside NewRouter.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start runs the hub and broadcast loop, then serves HTTP until Shutdown.
// It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.engine.EventLog().Subscribe(s.wsHub.PublishEvents)
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop()

	log.Printf("🌐 API server starting on %s", s.httpServer.Addr)
	log.Printf("🗺️  Minimap: http://localhost%s/api/minimap.png", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown disconnects websocket clients and drains HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
