package tracer

// Config configures span export.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `yaml:"service_name" env:"TRACER_SERVICE_NAME"`

	// Endpoint is the host:port of an OTLP/HTTP collector. Spans are not
	// exported when it is empty.
	Endpoint string `yaml:"endpoint" env:"TRACER_ENDPOINT"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" env:"TRACER_INSECURE"`

	// SampleRatio is the fraction of root spans sampled. Zero samples all.
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACER_SAMPLE_RATIO"`
}
