package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Metrics) DocumentsIngested(table string, n int) {
	if n > 0 {
		m.documentsTotal.WithLabelValues(table).Add(float64(n))
	}
}

func (m *Metrics) BatchRejected(table, kind string) {
	m.rejectedTotal.WithLabelValues(table, kind).Inc()
}

func (m *Metrics) TableFrozen(table string) {
	m.freezesTotal.WithLabelValues(table).Inc()
}

func (m *Metrics) FilterKeysSkipped(table string, n int) {
	if n > 0 {
		m.skippedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// ObserveEngineCall records the time since start under op, labelled ok or
// error.
// Example: defer func(start time.Time) { m.ObserveEngineCall(start, "search", err) }(time.Now())
func (m *Metrics) ObserveEngineCall(start time.Time, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.engineDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// CreateCounter creates a new CounterVec metric and registers it.
func (m *Metrics) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := createCounterVec(name, help, labels)
	m.registerer.MustRegister(counter)
	return counter
}

// CreateHistogram creates a new HistogramVec metric and registers it.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hist := createHistogramVec(name, help, labels, buckets)
	m.registerer.MustRegister(hist)
	return hist
}

// CreateGauge creates a new GaugeVec metric and registers it.
func (m *Metrics) CreateGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := createGaugeVec(name, help, labels)
	m.registerer.MustRegister(gauge)
	return gauge
}

func createCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func createHistogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
}

func createGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}
