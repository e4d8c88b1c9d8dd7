package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/awa-ai/awadb/v1/schema"
)

// MetaFileName is the snapshot file name below <root>/data.
const MetaFileName = "tables.meta"

// FileStore keeps the snapshot in <root>/data/tables.meta.
type FileStore struct {
	path string
}

// NewFileStore creates the data directory below root if needed.
func NewFileStore(root string) (*FileStore, error) {
	dir := filepath.Join(root, "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, MetaFileName)}, nil
}

// Path returns the location of the snapshot file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (*schema.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return schema.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return Unmarshal(data)
}

// Save replaces the snapshot atomically: the document is written to a
// temporary file in the same directory, synced, and renamed over the old one.
func (s *FileStore) Save(ctx context.Context, snap *schema.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, MetaFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	syncDir(dir)
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// syncDir makes the rename durable. Some filesystems do not support syncing
// directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
