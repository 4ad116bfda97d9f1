package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool and cache.RedisStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies that all dependencies are reachable.
type Checker struct {
	deps   map[string]Pinger
	names  []string
	logger *slog.Logger
	gauge  *prometheus.GaugeVec
}

// NewChecker creates a health checker over the named dependencies and
// registers its Prometheus gauge.
func NewChecker(deps map[string]Pinger, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "blog",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Checker{
		deps:   deps,
		names:  names,
		logger: logger.With("component", "health"),
		gauge:  gauge,
	}
}

// Liveness returns a simple "up" response if the process is running.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness pings every dependency concurrently under one shared deadline
// and reports per-check status. A single failing check marks the service down.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	checks := make([]CheckResult, len(c.names))
	var wg sync.WaitGroup
	for i, name := range c.names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = c.ping(checkCtx, name)
		}()
	}
	wg.Wait()

	result := HealthResult{
		Status: "up",
		Checks: make(map[string]CheckResult, len(c.names)),
	}
	for i, name := range c.names {
		if checks[i].Status != "up" {
			result.Status = "down"
		}
		result.Checks[name] = checks[i]
	}
	return result
}

func (c *Checker) ping(ctx context.Context, name string) CheckResult {
	start := time.Now()
	err := c.deps[name].Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		c.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
		c.gauge.WithLabelValues(name).Set(0)
		return CheckResult{Status: "down", Error: err.Error(), LatencyMS: latency}
	}
	c.gauge.WithLabelValues(name).Set(1)
	return CheckResult{Status: "up", LatencyMS: latency}
}
