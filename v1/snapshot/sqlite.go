package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/awa-ai/awadb/v1/schema"
	_ "modernc.org/sqlite"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS schema_snapshots (
	version    INTEGER PRIMARY KEY AUTOINCREMENT,
	body       BLOB    NOT NULL,
	created_at INTEGER NOT NULL
);`

// SQLiteStore keeps every saved snapshot as a row of schema_snapshots; the
// row with the highest version is current. Older rows beyond the retention
// limit are pruned on save.
type SQLiteStore struct {
	db        *sql.DB
	retention int
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string, retention int) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite snapshot store: %w", err)
	}
	// A single connection keeps writers serialized inside the process.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite snapshot store: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema_snapshots: %w", err)
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &SQLiteStore{db: db, retention: retention}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*schema.Snapshot, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM schema_snapshots ORDER BY version DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return Unmarshal(body)
}

func (s *SQLiteStore) Save(ctx context.Context, snap *schema.Snapshot) error {
	body, err := Marshal(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO schema_snapshots (body, created_at) VALUES (?, ?)`, body, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	version, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read snapshot version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_snapshots WHERE version <= ?`, version-int64(s.retention)); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return tx.Commit()
}

// Versions returns the number of retained snapshot rows.
func (s *SQLiteStore) Versions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_snapshots`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
