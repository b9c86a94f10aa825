package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"exchange-ledger/pkg/errors"
)

// FileSlot stores a slot as <dir>/<key>.json.
type FileSlot struct {
	dir string
	key string
}

// NewFileSlot creates a file-backed slot, creating dir if needed.
func NewFileSlot(dir, key string) (*FileSlot, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.DataSourceError(errors.CodeStorageWrite, dir, err)
	}
	return &FileSlot{dir: dir, key: key}, nil
}

// Key returns the slot name.
func (s *FileSlot) Key() string {
	return s.key
}

// Path returns the file backing the slot.
func (s *FileSlot) Path() string {
	return filepath.Join(s.dir, s.key+".json")
}

// Read returns the file contents, or ok=false if the file does not exist.
func (s *FileSlot) Read(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.DataSourceError(errors.CodeStorageRead, s.key, err)
	}
	return data, true, nil
}

// Write replaces the file contents. The new value is written to a temporary
// file in the same directory and renamed into place.
func (s *FileSlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, s.key+".*.tmp")
	if err != nil {
		return errors.DataSourceError(errors.CodeStorageWrite, s.key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.DataSourceError(errors.CodeStorageWrite, s.key, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.DataSourceError(errors.CodeStorageWrite, s.key, err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		return errors.DataSourceError(errors.CodeStorageWrite, s.key,
			fmt.Errorf("rename %s: %w", tmpName, err))
	}
	return nil
}
