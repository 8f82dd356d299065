package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sync"
	"time"

	"showdown/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-entity labels)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	})

	entityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_entity_count",
		Help: "Entities alive in the current match",
	})

	projectileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_projectile_count",
		Help: "Projectiles in flight",
	})

	hazardCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_hazard_count",
		Help: "Active pools and mines",
	})

	scheduledCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_scheduled_actions",
		Help: "Pending scheduled actions",
	})

	projectilesFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_projectiles_fired_total",
		Help: "Projectiles spawned",
	})

	damageDealt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_damage_dealt_total",
		Help: "Hit points removed from entities",
	})

	matchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_matches_finished_total",
		Help: "Finished matches by outcome",
	}, []string{"outcome"}) // Bounded: "VICTORY", "DEFEAT"

	// Event log metrics
	eventLogTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_dropped_total",
		Help: "Events dropped due to rate limiting",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin or token check",
	}, []string{"reason"})

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcasts",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // loopback only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// isLoopback reports whether addr binds to a loopback interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// DebugHandler builds the pprof, metrics and health mux.
func DebugHandler(cfg ObservabilityConfig, engine EngineInterface) http.Handler {
	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{"status": "ok"}
		if engine != nil {
			snap := engine.GetSnapshot()
			if snap == nil {
				health["status"] = "idle"
			} else {
				health["matchId"] = snap.MatchID
				health["tick"] = snap.Tick
				health["outcome"] = snap.Outcome
			}
			health["events"] = engine.GetEventLogStats()
		}
		writeJSON(w, health)
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return handler
}

// StartDebugServer starts the internal observability server. It returns
// nil when disabled; otherwise the caller owns shutdown.
func StartDebugServer(cfg ObservabilityConfig, engine EngineInterface) *http.Server {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLoopback(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = DefaultObservabilityConfig().ListenAddr
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           DebugHandler(cfg, engine),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// counterDelta remembers the last seen value of a cumulative source that
// resets between matches, and returns how much to add to a prometheus counter.
type counterDelta struct {
	last uint64
}

func (d *counterDelta) next(v uint64) uint64 {
	delta := v - d.last
	if v < d.last {
		// source was reset (new match)
		delta = v
	}
	d.last = v
	return delta
}

// TickRecorder turns engine tick callbacks into metrics.
type TickRecorder struct {
	mu       sync.Mutex
	fired    counterDelta
	damage   counterDelta
	total    counterDelta
	dropped  counterDelta
	finished string // match id whose result was already counted

	events func() (total, dropped uint64)
	match  func() string
}

// ObserveEngine wires metrics into the engine's tick observer.
func ObserveEngine(e *game.Engine) *TickRecorder {
	rec := &TickRecorder{
		events: func() (uint64, uint64) {
			el := e.EventLog()
			return el.GetTotalCount(), el.GetDroppedCount()
		},
		match: func() string {
			if s := e.GetSnapshot(); s != nil {
				return s.MatchID
			}
			return ""
		},
	}
	e.SetTickObserver(rec.Record)
	return rec
}

// Record updates metrics for one tick.
func (t *TickRecorder) Record(s game.TickStats) {
	RecordTick(s.Duration)
	entityCount.Set(float64(s.Match.Entities))
	projectileCount.Set(float64(s.Match.Projectiles))
	hazardCount.Set(float64(s.Match.Hazards))
	scheduledCount.Set(float64(s.Match.Scheduled))

	t.mu.Lock()
	defer t.mu.Unlock()

	projectilesFired.Add(float64(t.fired.next(s.Match.ProjectilesFired)))
	damageDealt.Add(float64(t.damage.next(s.Match.DamageDealt)))

	if t.events != nil {
		total, dropped := t.events()
		UpdateEventLogStats(t.total.next(total), t.dropped.next(dropped))
	}

	if s.Outcome != game.InProgress && t.match != nil {
		if id := t.match(); id != t.finished {
			t.finished = id
			matchesFinished.WithLabelValues(s.Outcome.String()).Inc()
		}
	}
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateEventLogStats adds event log deltas to the counters
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Add(float64(total))
	eventLogDropped.Add(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter.
// reason must be a fixed string: "rate_limit", "origin", "unauthorized",
// "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
