package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config defines the configuration for the logger.
type Config struct {
	// Level is one of debug, info, warning or error. Defaults to info.
	Level string `yaml:"level" env:"ZAP_LOGGER_LEVEL"`

	// EnableTracing adds trace_id and span_id from the context to entries
	// logged through the WithContext methods.
	EnableTracing bool `yaml:"enable_tracing" env:"LOGGER_ENABLE_TRACING"`

	// ServiceName is attached to every entry as the service field.
	ServiceName string `yaml:"service_name" env:"LOGGER_SERVICE_NAME"`
}
