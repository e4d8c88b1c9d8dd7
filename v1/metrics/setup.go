package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the awadb collectors, their registry and the HTTP server
// exposing them at /metrics.
type Metrics struct {
	// Server defines the HTTP server used to expose the /metrics endpoint.
	Server *http.Server

	// Registry is the isolated registry served by Server.
	Registry *prometheus.Registry

	// registerer adds the service label to dynamically created metrics.
	registerer prometheus.Registerer

	documentsTotal *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
	freezesTotal   *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec
}

// NewMetrics builds an isolated registry whose metrics all carry a constant
// service label, registers the awadb collectors (and the Go, process and
// build info collectors when enabled), and prepares the HTTP server.
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "awadb"})
//	go m.Server.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	// Every metric carries service="<cfg.ServiceName>".
	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	m := &Metrics{
		Registry:   registry,
		registerer: wrappedRegistry,
	}

	m.documentsTotal = createCounterVec("awadb_documents_ingested_total", "Documents accepted by Add", []string{"table"})
	m.rejectedTotal = createCounterVec("awadb_batches_rejected_total", "Batches aborted by a validation or engine error", []string{"table", "kind"})
	m.freezesTotal = createCounterVec("awadb_table_freezes_total", "Tables frozen by their first write", []string{"table"})
	m.skippedTotal = createCounterVec("awadb_filter_keys_skipped_total", "Filter keys naming no known field", []string{"table"})
	m.engineDuration = createHistogramVec("awadb_engine_call_duration_seconds", "Duration of engine calls in seconds", []string{"op", "status"}, prometheus.DefBuckets)

	wrappedRegistry.MustRegister(
		m.documentsTotal,
		m.rejectedTotal,
		m.freezesTotal,
		m.skippedTotal,
		m.engineDuration,
	)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.Server = &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m
}
