package awadb

import (
	"github.com/awa-ai/awadb/v1/embedding"
	"github.com/awa-ai/awadb/v1/events"
	"github.com/awa-ai/awadb/v1/metrics"
	"github.com/awa-ai/awadb/v1/tracer"
)

// Option configures optional collaborators of a Client.
type Option func(*options)

type options struct {
	embedder embedding.Embedder
	notifier *events.Notifier
	metrics  metrics.MetricsCollector
	tracer   *tracer.Tracer
	log      Logger
	newID    func() string
}

func collect(opts []Option) options {
	o := options{log: nopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = nopLogger{}
	}
	return o
}

// WithEmbedder enables text queries and AddTexts without explicit embeddings.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithNotifier publishes schema changes through n.
func WithNotifier(n *events.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithMetrics(m metrics.MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracer(t *tracer.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func WithLogger(l Logger) Option {
	return func(o *options) { o.log = l }
}

// WithIDGenerator replaces the random primary-key generator used when
// deduplication does not apply.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}
