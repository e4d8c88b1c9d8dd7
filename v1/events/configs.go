package events

import (
	"fmt"
	"time"
)

// Backends accepted by Config.Backend.
const (
	BackendNone  = "none"
	BackendKafka = "kafka"
	BackendAMQP  = "amqp"
)

// Config selects and configures the event publisher.
type Config struct {
	// Backend is none, kafka or amqp. Empty means none.
	Backend string `yaml:"backend" env:"AWADB_EVENTS_BACKEND"`

	Kafka KafkaConfig `yaml:"kafka"`
	AMQP  AMQPConfig  `yaml:"amqp"`
}

// KafkaConfig configures the Kafka producer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`

	// RequiredAcks is -1 for all replicas, 1 for the leader or 0 for none.
	RequiredAcks int `yaml:"required_acks" env:"KAFKA_REQUIRED_ACKS"`

	MaxAttempts  int           `yaml:"max_attempts" env:"KAFKA_MAX_ATTEMPTS"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"KAFKA_WRITE_TIMEOUT"`

	// CompressionCodec is one of gzip, snappy, lz4 or zstd. Empty disables
	// compression.
	CompressionCodec string `yaml:"compression_codec" env:"KAFKA_COMPRESSION_CODEC"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`
}

type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" env:"KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" env:"KAFKA_TLS_CA_CERT_PATH"`
	ClientCertPath     string `yaml:"client_cert_path" env:"KAFKA_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath      string `yaml:"client_key_path" env:"KAFKA_TLS_CLIENT_KEY_PATH"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

type SASLConfig struct {
	Enabled bool `yaml:"enabled" env:"KAFKA_SASL_ENABLED"`

	// Mechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	Mechanism string `yaml:"mechanism" env:"KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" env:"KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" env:"KAFKA_SASL_PASSWORD"`
}

// AMQPConfig configures the RabbitMQ publisher.
type AMQPConfig struct {
	Host     string `yaml:"host" env:"RABBITMQ_HOST"`
	Port     uint   `yaml:"port" env:"RABBITMQ_PORT"`
	User     string `yaml:"user" env:"RABBITMQ_USER"`
	Password string `yaml:"password" env:"RABBITMQ_PASSWORD"`

	// IsSSLEnabled dials amqps.
	IsSSLEnabled bool `yaml:"is_ssl_enabled" env:"RABBITMQ_IS_SSL_ENABLED"`

	// Exchange is declared as a durable topic exchange. Events are
	// routed by <RoutingKeyPrefix><type>.
	Exchange         string `yaml:"exchange" env:"RABBITMQ_EXCHANGE"`
	RoutingKeyPrefix string `yaml:"routing_key_prefix" env:"RABBITMQ_ROUTING_KEY_PREFIX"`
}

const (
	DefaultKafkaTopic   = "awadb.schema"
	DefaultMaxAttempts  = 3
	DefaultWriteTimeout = 10 * time.Second
	DefaultExchange     = "awadb.schema"
	DefaultRoutingKey   = "schema."
)

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.Topic == "" {
		c.Topic = DefaultKafkaTopic
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	return c
}

func (c AMQPConfig) withDefaults() AMQPConfig {
	if c.Port == 0 {
		c.Port = 5672
	}
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.RoutingKeyPrefix == "" {
		c.RoutingKeyPrefix = DefaultRoutingKey
	}
	return c
}

// New opens the publisher selected by cfg.Backend.
func New(cfg Config) (Publisher, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return Nop{}, nil
	case BackendKafka:
		return NewKafkaPublisher(cfg.Kafka)
	case BackendAMQP:
		return NewAMQPPublisher(cfg.AMQP)
	}
	return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
}
