// Package healthserver runs a standalone HTTP server exposing Kubernetes
// liveness/readiness probes and Prometheus metrics for a running fernd
// process, separate from the main httpapi mux so that probe traffic keeps
// working even if the main listener is saturated or memory-pressure-gated.
package healthserver

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fernsearch/fern/manager"
	"github.com/fernsearch/fern/memory"
)

// Gauges holds the Prometheus collectors this server keeps refreshed from
// the Manager on every /metrics scrape.
type Gauges struct {
	ActiveWriters   prometheus.Gauge
	MaxWriters      prometheus.Gauge
	FacetCacheSize  prometheus.Gauge
	FacetCacheCap   prometheus.Gauge
	HeapAllocatedMB prometheus.Gauge
	SystemLimitMB   prometheus.Gauge
	PressureLevel   prometheus.Gauge
}

// NewGauges registers the fern_* metrics on reg.
func NewGauges(reg *prometheus.Registry) *Gauges {
	factory := promauto.With(reg)
	return &Gauges{
		ActiveWriters:   factory.NewGauge(prometheus.GaugeOpts{Name: "fern_active_writers", Help: "Currently acquired writer budget slots."}),
		MaxWriters:      factory.NewGauge(prometheus.GaugeOpts{Name: "fern_max_concurrent_writers", Help: "Configured writer concurrency ceiling."}),
		FacetCacheSize:  factory.NewGauge(prometheus.GaugeOpts{Name: "fern_facet_cache_entries", Help: "Live entries in the facet bucket cache."}),
		FacetCacheCap:   factory.NewGauge(prometheus.GaugeOpts{Name: "fern_facet_cache_capacity", Help: "Pressure-scaled facet cache capacity."}),
		HeapAllocatedMB: factory.NewGauge(prometheus.GaugeOpts{Name: "fern_heap_allocated_mb", Help: "Observed process heap allocation in MB."}),
		SystemLimitMB:   factory.NewGauge(prometheus.GaugeOpts{Name: "fern_system_limit_mb", Help: "Configured system memory limit in MB."}),
		PressureLevel:   factory.NewGauge(prometheus.GaugeOpts{Name: "fern_pressure_level", Help: "Memory pressure level: 0=normal, 1=elevated, 2=critical."}),
	}
}

// refresh samples mgr's current state into g's gauges. Called on every
// /metrics scrape rather than on a timer, so a slow-moving scrape interval
// never reads stale numbers.
func (g *Gauges) refresh(mgr *manager.Manager) {
	g.ActiveWriters.Set(float64(mgr.Budget().ActiveWriters()))
	g.MaxWriters.Set(float64(mgr.Budget().MaxConcurrentWriters()))
	entries, capacity := mgr.FacetCacheStats()
	g.FacetCacheSize.Set(float64(entries))
	g.FacetCacheCap.Set(float64(capacity))

	if obs := mgr.Observer(); obs != nil {
		stats := obs.Stats()
		g.HeapAllocatedMB.Set(float64(stats.HeapAllocatedBytes) / (1024 * 1024))
		g.SystemLimitMB.Set(float64(stats.SystemLimitBytes) / (1024 * 1024))
		g.PressureLevel.Set(float64(stats.PressureLevel))
	} else {
		g.PressureLevel.Set(float64(memory.Normal))
	}
}

// Server is the liveness/readiness/metrics HTTP server for one fernd
// process. Unlike httpapi.Server it is never memory-pressure-gated: probes
// and scrapes must keep answering exactly when the system is under the
// pressure they're reporting on.
type Server struct {
	mgr    *manager.Manager
	gauges *Gauges
	reg    *prometheus.Registry
	log    *zap.Logger
	srv    *http.Server
}

// New builds a Server bound to mgr, registering its metrics on a fresh
// Registry (pass nil to have one created).
func New(mgr *manager.Manager, reg *prometheus.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{mgr: mgr, reg: reg, gauges: NewGauges(reg), log: log}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.mgr.RefreshPressure() == memory.Critical {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	metricsHandler := promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		s.gauges.refresh(s.mgr)
		metricsHandler.ServeHTTP(w, r)
	})
	return mux
}

// Start launches the server on addr in the background and returns
// immediately. Call Shutdown to stop it.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		s.log.Info("starting health/metrics server", zap.String("addr", addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("health server error", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
