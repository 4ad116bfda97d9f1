package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ErlanBelekov/blog-cms/internal/health"
)

var (
	// RPC metrics, labelled by procedure name rather than URL path

	RPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blog",
		Name:      "rpc_duration_seconds",
		Help:      "RPC latency by procedure.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"procedure", "method", "status"})

	RPCRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "rpc_requests_total",
		Help:      "Total RPC calls by procedure.",
	}, []string{"procedure", "method", "status"})

	RPCInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blog",
		Name:      "rpc_in_flight",
		Help:      "RPC calls currently being served.",
	})

	// Content metrics

	CacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "cache_requests_total",
		Help:      "Published post list cache lookups, by result (hit, miss, error).",
	}, []string{"result"})

	PostsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "posts_created_total",
		Help:      "Total posts created.",
	})

	UploadURLsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "upload_urls_issued_total",
		Help:      "Total presigned upload URLs issued.",
	})

	// Auth metrics

	TokenVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "token_verifications_total",
		Help:      "Server-side token verifications, by outcome (valid, invalid).",
	}, []string{"outcome"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Name:      "logins_total",
		Help:      "Login attempts, by outcome (success, failure).",
	}, []string{"outcome"})
)

func Register() {
	prometheus.MustRegister(
		RPCDuration,
		RPCRequestsTotal,
		RPCInFlight,
		CacheRequestsTotal,
		PostsCreatedTotal,
		UploadURLsIssuedTotal,
		TokenVerificationsTotal,
		LoginsTotal,
	)
}

// NewServer exposes /metrics plus the liveness and readiness probes. It runs
// on its own port so probes never pass through the API middleware.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
