package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Nertsal/trail-blazer/internal/game"
	"github.com/Nertsal/trail-blazer/internal/journal"
	"github.com/Nertsal/trail-blazer/internal/match"
	"github.com/Nertsal/trail-blazer/internal/ranking"
)

// MatchInterface defines the match methods used by the API.
// This interface enables mocking for tests without running the match loop.
type MatchInterface interface {
	// Snapshot returns the latest published match state
	Snapshot() *match.Snapshot
	// Leaderboard returns the live ranking
	Leaderboard() *ranking.Leaderboard
	// NextClientID allocates an id for a new websocket client
	NextClientID() game.ClientID
	// Post delivers an inbox message to the match loop
	Post(ctx context.Context, msg any) error
}

// JournalInterface defines the event journal methods used by the API.
type JournalInterface interface {
	Stats() journal.Stats
	Recent(n int) []journal.Record
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Match: mockMatch,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Match is the running match (required)
	Match MatchInterface

	// Journal is the event journal. Optional; /api/events is empty without it.
	Journal JournalInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is the list of allowed CORS origins. Nil allows all.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool

	Log *zap.SugaredLogger
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	match   MatchInterface
	journal JournalInterface
	limiter *IPRateLimiter
	log     *zap.SugaredLogger
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects besides the rate limiter's cleanup
// goroutine, which is only started when no RateLimiter is passed in.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &routerHandlers{
		match:   cfg.Match,
		journal: cfg.Journal,
		limiter: rateLimiter,
		log:     log,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/players/{id}", h.handleGetPlayer)
		r.Get("/events", h.handleGetEvents)
		r.Get("/board.png", h.handleGetBoard)
	})

	return r
}

// metricsMiddleware records latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := timeNow()
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, timeNow().Sub(start))
	})
}
