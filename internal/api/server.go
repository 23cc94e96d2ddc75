package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Nertsal/trail-blazer/internal/config"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub feeding the match.
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	log         *zap.SugaredLogger
}

// NewServer creates a new API server from the application configuration.
//
// No listener is opened until Start is called, so tests can construct the
// server and use Router() with httptest.
func NewServer(m MatchInterface, j JournalInterface, cfg config.AppConfig, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		rateLimiter: NewIPRateLimiter(RateLimitConfigFrom(cfg.Limits)),
		wsHub:       NewWebSocketHub(m, cfg.Limits, cfg.Server.AllowedOrigins, log),
		log:         log,
	}

	s.router = NewRouter(RouterConfig{
		Match:          m,
		Journal:        j,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.Server.AllowedOrigins,
		DisableLogging: cfg.Log.Level != "debug",
		Log:            log,
	})

	// WebSocket endpoint needs the hub instance, so it is not part of NewRouter.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves HTTP until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	s.log.Infow("API server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones up to ctx.
// Hijacked websocket connections are not waited for; the match closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}
