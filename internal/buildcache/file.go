package buildcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// FileStore keeps one msgpack sidecar per block, <dir>/<id>.hash.
type FileStore struct {
	dir string
}

// NewFileStore creates dir when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating hash dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the sidecar path of a block.
func (s *FileStore) Path(blockID string) string {
	return filepath.Join(s.dir, recordKey(blockID)+".hash")
}

func (s *FileStore) Get(ctx context.Context, blockID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(blockID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	r := new(Record)
	if err := msgpack.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Path(blockID), err)
	}
	return r, nil
}

func (s *FileStore) Put(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.Path(r.BlockID), data)
}

func (s *FileStore) Close() error { return nil }

// WriteFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path. Readers see the old content or the new one, never a
// partial write.
func WriteFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
