// Command awadb-server hosts a storage engine over gRPC together with the
// schema layer that recovers unfinished table creations on startup.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/awa-ai/awadb/v1/awadb"
	"github.com/awa-ai/awadb/v1/events"
	"github.com/awa-ai/awadb/v1/logger"
	"github.com/awa-ai/awadb/v1/memengine"
	"github.com/awa-ai/awadb/v1/metrics"
	"github.com/awa-ai/awadb/v1/qdrant"
	"github.com/awa-ai/awadb/v1/rpcengine"
	"github.com/awa-ai/awadb/v1/snapshot"
	"github.com/awa-ai/awadb/v1/tracer"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		showVersion bool
	)
	flag.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: awadb-server [options]\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEvery setting can also be given through its environment variable,\n")
		fmt.Fprintf(os.Stderr, "e.g. AWADB_ENGINE=qdrant QDRANT_ENDPOINT=qdrant.local AWADB_ROOT=/data.\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("awadb-server version %s (commit: %s)\n", version, commit)
		return
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := append(options(cfg), fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: l.Zap}
	}))
	fx.New(opts...).Run()
}

// options assembles the application graph for cfg.
func options(cfg *config) []fx.Option {
	return []fx.Option{
		fx.Supply(
			cfg.Logger,
			cfg.Metrics,
			cfg.Tracer,
			cfg.Snapshot,
			cfg.RPC,
			cfg.Events,
			cfg.Client,
		),
		fx.Provide(
			func(l *logger.LoggerClient) metrics.Logger { return l },
			func(l *logger.LoggerClient) rpcengine.Logger { return l },
			func(l *logger.LoggerClient) events.Logger { return l },
			func(l *logger.LoggerClient) qdrant.Logger { return l },
			func(l *logger.LoggerClient) awadb.Logger { return l },
		),

		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		snapshot.FXModule,
		engineModule(cfg.Engine),
		rpcengine.ServerModule,
		events.FXModule,
		awadb.FXModule,

		fx.Invoke(func(c *awadb.Client, l awadb.Logger) {
			l.Info("schema layer ready", nil, map[string]interface{}{
				"db":     c.Config().DB,
				"engine": cfg.Engine.Backend,
			})
		}),
	}
}

func engineModule(cfg engineConfig) fx.Option {
	if cfg.Backend == engineQdrant {
		q := cfg.Qdrant
		return fx.Options(fx.Supply(&q), qdrant.FXModule)
	}
	return fx.Options(fx.Supply(cfg.Memory), memengine.FXModule)
}
