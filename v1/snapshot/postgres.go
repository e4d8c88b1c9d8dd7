package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awa-ai/awadb/v1/schema"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// snapshotRecord is one saved snapshot version.
type snapshotRecord struct {
	Version   int64     `gorm:"primaryKey;autoIncrement"`
	Body      []byte    `gorm:"type:bytea;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (snapshotRecord) TableName() string {
	return "schema_snapshots"
}

// PostgresStore keeps snapshot versions in a schema_snapshots table.
type PostgresStore struct {
	db        *gorm.DB
	retention int
	attempts  int
}

// NewPostgresStore connects with the given DSN and migrates the snapshot table.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to snapshot database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot database instance: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 4
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.WithContext(ctx).AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema_snapshots: %w", err)
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &PostgresStore{db: db, retention: retention, attempts: attempts}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*schema.Snapshot, error) {
	var rec snapshotRecord
	err := s.db.WithContext(ctx).Order("version DESC").Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return Unmarshal(rec.Body)
}

// Save inserts a new version and prunes old ones in one transaction.
// Serialization failures and dropped connections are retried.
func (s *PostgresStore) Save(ctx context.Context, snap *schema.Snapshot) error {
	body, err := Marshal(snap)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rec := snapshotRecord{Body: body, CreatedAt: time.Now().UTC()}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			return tx.Where("version <= ?", rec.Version-int64(s.retention)).Delete(&snapshotRecord{}).Error
		})
		if err == nil {
			return nil
		}
		if attempt >= s.attempts || !retryable(err) || ctx.Err() != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// retryable reports whether err is a transient PostgreSQL failure:
// serialization failures, deadlocks and connection exceptions.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	}
	return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
}
