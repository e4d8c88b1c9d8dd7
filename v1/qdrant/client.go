package qdrant

import (
	"context"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding/gzip"
)

// Logger is the logging surface used by this package.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{}) {}
func (nopLogger) Warn(string, error, ...map[string]interface{}) {}

// QdrantClient wraps the official Qdrant Go client and owns its connection.
type QdrantClient struct {
	api     *qdrant.Client
	cfg     Config
	log     Logger
	started bool
}

const (
	defaultBatchSize = 200 // points per upsert request
	scrollPageSize   = 256 // points per scroll page
)

// NewQdrantClient connects to Qdrant and validates connectivity via a health
// check, so an unreachable service fails at startup.
func NewQdrantClient(cfg Config, log Logger) (*QdrantClient, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = nopLogger{}
	}
	log.Info("[Qdrant] connecting", nil, map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"port":     cfg.Port,
	})

	var opts []grpc.DialOption
	if cfg.Compression {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.UseCompressor(gzip.Name)))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   cfg.Port,
		APIKey:                 cfg.ApiKey,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
		GrpcOptions:            opts,
	})
	if err != nil {
		return nil, fmt.Errorf("[Qdrant] failed to initialize client: %w", err)
	}

	qc := &QdrantClient{
		api:     client,
		cfg:     cfg,
		log:     log,
		started: true,
	}

	if err := qc.healthCheck(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return qc, nil
}

// healthCheck calls the server health endpoint within ConnectTimeout.
func (c *QdrantClient) healthCheck() error {
	if !c.started || c.api == nil {
		return fmt.Errorf("[Qdrant] client not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	resp, err := c.api.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("[Qdrant] health check failed: %w", err)
	}

	c.log.Info("[Qdrant] health check passed", nil, map[string]interface{}{
		"title":    resp.GetTitle(),
		"version":  resp.GetVersion(),
		"endpoint": c.cfg.Endpoint,
	})
	return nil
}

// Client returns the underlying Qdrant SDK client.
func (c *QdrantClient) Client() *qdrant.Client {
	return c.api
}

// Close releases the gRPC connection.
func (c *QdrantClient) Close() error {
	if !c.started {
		return nil
	}
	c.started = false
	c.log.Info("[Qdrant] closing client", nil)
	return c.api.Close()
}
