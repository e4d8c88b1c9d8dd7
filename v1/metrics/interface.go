package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector records the awadb ingestion and query metrics.
//
// This interface is implemented by the concrete *Metrics type.
type MetricsCollector interface {
	// DocumentsIngested counts documents accepted for a table.
	DocumentsIngested(table string, n int)

	// BatchRejected counts a batch aborted with an error of the given kind.
	BatchRejected(table, kind string)

	// TableFrozen counts first-write freezes.
	TableFrozen(table string)

	// FilterKeysSkipped counts filter keys naming no known field.
	FilterKeysSkipped(table string, n int)

	// ObserveEngineCall records the duration of an engine call.
	ObserveEngineCall(start time.Time, op string, err error)

	// Dynamic metric factories

	CreateCounter(name, help string, labels []string) *prometheus.CounterVec
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec
	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec
}

var _ MetricsCollector = (*Metrics)(nil)
