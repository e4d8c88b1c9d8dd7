package main

import (
	"encoding"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

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

const (
	engineMemory = "memory"
	engineQdrant = "qdrant"
)

// config is the complete server configuration. Values come from defaults,
// then the YAML file, then environment variables named by the env tags.
type config struct {
	Logger   logger.Config          `yaml:"logger"`
	Metrics  metrics.Config         `yaml:"metrics"`
	Tracer   tracer.Config          `yaml:"tracer"`
	Snapshot snapshot.Config        `yaml:"snapshot"`
	Engine   engineConfig           `yaml:"engine"`
	RPC      rpcengine.ServerConfig `yaml:"rpc"`
	Events   events.Config          `yaml:"events"`
	Client   awadb.Config           `yaml:"client"`
}

type engineConfig struct {
	// Backend is memory or qdrant.
	Backend string           `yaml:"backend" env:"AWADB_ENGINE"`
	Memory  memengine.Config `yaml:"memory"`
	Qdrant  qdrant.Config    `yaml:"qdrant"`
}

func defaultConfig() *config {
	return &config{
		Logger:   logger.Config{Level: logger.Info, ServiceName: "awadb-server"},
		Metrics:  metrics.Config{Address: ":9090", EnableDefaultCollectors: true, ServiceName: "awadb-server"},
		Tracer:   tracer.Config{ServiceName: "awadb-server"},
		Snapshot: snapshot.DefaultConfig(),
		Engine: engineConfig{
			Backend: engineMemory,
			Memory:  memengine.DefaultConfig(),
			Qdrant:  *qdrant.DefaultConfig(),
		},
		RPC:    rpcengine.ServerConfig{Address: ":7100"},
		Events: events.Config{Backend: events.BackendNone},
		Client: awadb.DefaultConfig(),
	}
}

// loadConfig reads path, when set, over the defaults and applies the
// environment on top.
func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(reflect.ValueOf(cfg).Elem(), os.LookupEnv); err != nil {
		return nil, err
	}

	switch cfg.Engine.Backend {
	case engineMemory, engineQdrant:
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
	}
	// Collections are created with the metric queries are composed with.
	cfg.Engine.Qdrant.Metric = cfg.Client.Metric
	return cfg, nil
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// applyEnv walks v and sets every field carrying an env tag whose variable
// is present. Nested structs are walked whether or not they are tagged.
func applyEnv(v reflect.Value, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)

		name := sf.Tag.Get("env")
		if name == "" {
			if fv.Kind() == reflect.Struct {
				if err := applyEnv(fv, lookup); err != nil {
					return err
				}
			}
			continue
		}
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		if err := setField(fv, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

func setField(fv reflect.Value, raw string) error {
	if fv.CanAddr() && fv.Addr().Type().Implements(textUnmarshalerType) {
		return fv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", fv.Type())
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		fv.Set(reflect.ValueOf(parts).Convert(fv.Type()))
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}
