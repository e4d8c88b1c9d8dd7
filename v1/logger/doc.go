// Package logger provides structured logging on top of zap.
//
// LoggerClient writes JSON entries with an ISO8601 timestamp, capital
// levels, the pid and service fields and the caller. Every method takes a
// message, an optional error and optional field maps:
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "awadb"})
//	log.Info("table frozen", nil, map[string]interface{}{"table": "default/docs"})
//	log.Error("snapshot save failed", err)
//
// The WithContext variants add trace_id and span_id from the OpenTelemetry
// span in the context when Config.EnableTracing is set.
//
// Environment:
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning or error
//	LOGGER_ENABLE_TRACING=true
//	LOGGER_SERVICE_NAME=awadb
//
// Packages depending on logging declare a local interface with the methods
// they call, and FXModule provides both *LoggerClient and Logger.
package logger
