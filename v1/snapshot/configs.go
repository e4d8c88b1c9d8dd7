package snapshot

import (
	"context"
	"fmt"

	"github.com/awa-ai/awadb/v1/schema"
)

// Backend names a snapshot store implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMinio    Backend = "minio"
)

const (
	// DefaultRetention is the number of snapshot versions SQL stores keep.
	DefaultRetention = 20

	// DefaultObjectName is the object key used by MinioStore.
	DefaultObjectName = "data/tables.meta.zst"
)

// Config selects and configures the snapshot store.
type Config struct {
	// Backend is one of file, sqlite, postgres or minio. Defaults to file.
	Backend Backend `yaml:"backend" env:"AWADB_SNAPSHOT_BACKEND"`

	// Root is the FileStore root directory; the snapshot lives in <Root>/data.
	Root string `yaml:"root" env:"AWADB_ROOT"`

	// SQLitePath is the database file of the SQLite store.
	SQLitePath string `yaml:"sqlite_path" env:"AWADB_SNAPSHOT_SQLITE_PATH"`

	// Retention is the number of versions SQLite keeps.
	Retention int `yaml:"retention" env:"AWADB_SNAPSHOT_RETENTION"`

	Postgres PostgresConfig `yaml:"postgres"`
	Minio    MinioConfig    `yaml:"minio"`
}

// PostgresConfig holds the connection settings of PostgresStore.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"AWADB_SNAPSHOT_PG_HOST"`
	Port     string `yaml:"port" env:"AWADB_SNAPSHOT_PG_PORT"`
	User     string `yaml:"user" env:"AWADB_SNAPSHOT_PG_USER"`
	Password string `yaml:"password" env:"AWADB_SNAPSHOT_PG_PASSWORD"`
	DbName   string `yaml:"db_name" env:"AWADB_SNAPSHOT_PG_DB"`
	SSLMode  string `yaml:"ssl_mode" env:"AWADB_SNAPSHOT_PG_SSLMODE"`

	MaxOpenConns int `yaml:"max_open_conns" env:"AWADB_SNAPSHOT_PG_MAX_OPEN_CONNS"`
	Retention    int `yaml:"retention" env:"AWADB_SNAPSHOT_PG_RETENTION"`
	MaxAttempts  int `yaml:"max_attempts" env:"AWADB_SNAPSHOT_PG_MAX_ATTEMPTS"`
}

// DSN renders the libpq keyword/value connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DbName, sslMode)
}

// MinioConfig holds the connection settings of MinioStore.
type MinioConfig struct {
	Endpoint        string `yaml:"endpoint" env:"AWADB_SNAPSHOT_MINIO_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWADB_SNAPSHOT_MINIO_ACCESS_KEY"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWADB_SNAPSHOT_MINIO_SECRET_KEY"`
	UseSSL          bool   `yaml:"use_ssl" env:"AWADB_SNAPSHOT_MINIO_USE_SSL"`
	Region          string `yaml:"region" env:"AWADB_SNAPSHOT_MINIO_REGION"`
	Bucket          string `yaml:"bucket" env:"AWADB_SNAPSHOT_MINIO_BUCKET"`
	Object          string `yaml:"object" env:"AWADB_SNAPSHOT_MINIO_OBJECT"`
}

// DefaultConfig stores snapshots on the local filesystem below ./awadb.
func DefaultConfig() Config {
	return Config{Backend: BackendFile, Root: "./awadb", Retention: DefaultRetention}
}

// Store is a schema.Store that holds resources.
type Store interface {
	schema.Store
	Close() error
}

// New opens the store selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendFile, "":
		store, err = asStore(NewFileStore(cfg.Root))
	case BackendSQLite:
		store, err = asStore(NewSQLiteStore(ctx, cfg.SQLitePath, cfg.Retention))
	case BackendPostgres:
		store, err = asStore(NewPostgresStore(ctx, cfg.Postgres))
	case BackendMinio:
		store, err = asStore(NewMinioStore(ctx, cfg.Minio))
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
