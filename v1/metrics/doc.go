// Package metrics exposes awadb's Prometheus metrics.
//
// Metrics owns an isolated registry. Every metric carries a constant service
// label:
//
//	awadb_documents_ingested_total{table}
//	awadb_batches_rejected_total{table,kind}
//	awadb_table_freezes_total{table}
//	awadb_filter_keys_skipped_total{table}
//	awadb_engine_call_duration_seconds{op,status}
//
// CreateCounter, CreateHistogram and CreateGauge register further metrics
// on the same registry. FXModule serves the registry at Config.Address under
// /metrics.
//
// Environment:
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_SERVICE_NAME=awadb
package metrics
