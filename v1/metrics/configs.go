package metrics

// Config configures the metrics registry and its HTTP endpoint.
type Config struct {
	// Address the /metrics server listens on, e.g. ":9090".
	Address string `yaml:"address" env:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers the Go, process and build info
	// collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" env:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// ServiceName is added to every metric as the service label.
	ServiceName string `yaml:"service_name" env:"METRICS_SERVICE_NAME"`
}
