package api

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Nertsal/trail-blazer/internal/config"
	"github.com/Nertsal/trail-blazer/internal/game"
)

var timeNow = time.Now

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_tick_duration_seconds",
		Help:    "Time spent in a match tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "match_player_count",
		Help: "Current number of players on the board",
	})

	spectatorCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "match_spectator_count",
		Help: "Connected clients without a player",
	})

	// Bounded: one label value per game event kind.
	gameEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_events_total",
		Help: "Game events emitted by the match",
	}, []string{"kind"})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // "rate_limit", "origin", "codec", "ws_total_limit", "ws_ip_limit", "ws_rate"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket messages by direction",
	}, []string{"direction"}) // "in", "out"

	wsMessagesInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_invalid_total",
		Help: "Inbound WebSocket messages that failed to decode",
	})
)

func init() {
	for _, k := range game.EventKinds {
		gameEvents.WithLabelValues(k.String())
	}
}

// MatchMetrics feeds match telemetry into Prometheus.
type MatchMetrics struct{}

func (MatchMetrics) ObserveTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

func (MatchMetrics) ObserveEvents(events []game.GameEvent) {
	for _, e := range events {
		gameEvents.WithLabelValues(e.Kind.String()).Inc()
	}
}

func (MatchMetrics) SetPopulation(players, spectators int) {
	playerCount.Set(float64(players))
	spectatorCount.Set(float64(spectators))
}

// RegisterJournalMetrics exposes the journal counters. Collectors that are
// already registered are left alone.
func RegisterJournalMetrics(j JournalInterface) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "journal_events_total",
			Help: "Game events offered to the journal",
		}, func() float64 { return float64(j.Stats().Total) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "journal_events_dropped_total",
			Help: "Events dropped due to rate limiting or buffer full",
		}, func() float64 { return float64(j.Stats().Dropped) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "journal_events_written_total",
			Help: "Events written to the journal file",
		}, func() float64 { return float64(j.Stats().Written) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "journal_events_pending",
			Help: "Events buffered but not yet written",
		}, func() float64 { return float64(j.Stats().Pending) }),
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// StartDebugServer starts the internal observability server and returns it
// so the caller can shut it down. It returns nil when disabled.
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg config.DebugConfig, log *zap.SugaredLogger) *http.Server {
	if !cfg.Enabled {
		log.Info("debug server disabled")
		return nil
	}

	addr := debugAddr(cfg.Addr)
	if addr != cfg.Addr {
		log.Warnw("debug server forced to localhost", "requested", cfg.Addr)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           debugMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infow("debug server starting",
			"pprof", "http://"+addr+"/debug/pprof/",
			"metrics", "http://"+addr+"/metrics",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnw("debug server error", "error", err)
		}
	}()

	return srv
}

// debugAddr keeps the listener on a loopback address unless
// ALLOW_DEBUG_EXTERNAL is set.
func debugAddr(addr string) string {
	if os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true" {
		return addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1:6060"
	}
	if host == "localhost" {
		return addr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return addr
	}
	return net.JoinHostPort("127.0.0.1", port)
}

func debugMux() *http.ServeMux {
	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// RecordConnectionRejected increments the rejection counter.
// reason must be a bounded label value.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}
